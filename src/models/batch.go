package models

import "time"

// MBatchResult is emitted once per input part, in input order.
type MBatchResult struct {
	RunID        string         `json:"run_id"`
	Index        int            `json:"index"`
	MPN          string         `json:"mpn"`
	Best         *MObservation  `json:"best"`
	Observations []MObservation `json:"observations"`
	Elapsed      time.Duration  `json:"elapsed"`
	Failed       bool           `json:"failed"`
	Error        string         `json:"error,omitempty"`
}

// MBatchProgress is a cumulative snapshot taken after each emitted result.
type MBatchProgress struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

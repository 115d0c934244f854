package models

// Feed event types pushed to websocket subscribers.
const (
	FeedProgress = "progress"
	FeedResult   = "result"
	FeedDone     = "done"
)

// MFeedEvent wraps a batch update for the live feed. Exactly one of
// Progress or Result is set, except for FeedDone.
type MFeedEvent struct {
	Type     string          `json:"type"`
	RunID    string          `json:"run_id"`
	Progress *MBatchProgress `json:"progress,omitempty"`
	Result   *MBatchResult   `json:"result,omitempty"`
}

// MSubscribeCommand is sent by websocket clients to filter the feed by run.
// An empty RunID subscribes to every run.
type MSubscribeCommand struct {
	Command string `json:"command"`
	RunID   string `json:"run_id"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ObservationStatus string

const (
	StatusSuccess  ObservationStatus = "success"
	StatusNotFound ObservationStatus = "not_found"
	StatusMismatch ObservationStatus = "mismatch"
	StatusError    ObservationStatus = "error"
)

// ErrorKind is only set on observations with StatusError.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindFatalConfig ErrorKind = "fatal_config"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindPanic       ErrorKind = "panic"
)

type StockState string

const (
	StockUnknown StockState = "unknown"
	StockIn      StockState = "in_stock"
	StockOut     StockState = "out_of_stock"
)

// MatchRule names the predicate used to accept a vendor's listing for a
// requested part number.
type MatchRule string

const (
	MatchExact           MatchRule = "exact"
	MatchCaseInsensitive MatchRule = "case_insensitive"
	MatchNormalized      MatchRule = "normalized"
)

// -----------------------------------------------------------------------------

// MCandidate is what an extractor believes is the listing for a part.
type MCandidate struct {
	MatchedMPN  string           `json:"matched_mpn"`
	ProductName string           `json:"product_name"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency"`
	URL         string           `json:"url"`
	InStock     StockState       `json:"in_stock"`
	Strategy    string           `json:"strategy"`
}

// -----------------------------------------------------------------------------

// MObservation is the outcome of asking one vendor about one part.
type MObservation struct {
	Vendor      Vendor            `json:"vendor"`
	MPN         string            `json:"mpn"`
	MatchedMPN  string            `json:"matched_mpn,omitempty"`
	ProductName string            `json:"product_name,omitempty"`
	Price       *decimal.Decimal  `json:"price"`
	Currency    string            `json:"currency,omitempty"`
	URL         string            `json:"url,omitempty"`
	InStock     StockState        `json:"in_stock"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Status      ObservationStatus `json:"status"`
	Message     string            `json:"message,omitempty"`
	ErrorKind   ErrorKind         `json:"error_kind,omitempty"`
	Strategy    string            `json:"strategy,omitempty"`
}

// Succeeded reports whether the observation carries a usable price.
func (o MObservation) Succeeded() bool {
	return o.Status == StatusSuccess && o.Price != nil
}

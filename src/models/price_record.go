package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MPriceRecord is one distinct price point in a vendor's history for a part.
type MPriceRecord struct {
	ID          int64           `json:"id"`
	Vendor      Vendor          `json:"vendor"`
	MPN         string          `json:"mpn"`
	Price       decimal.Decimal `json:"price"`
	FirstSeenAt time.Time       `json:"first_seen_at"`
	LastSeenAt  time.Time       `json:"last_seen_at"`
}

type RecordAction string

const (
	RecordInserted  RecordAction = "inserted"
	RecordRefreshed RecordAction = "refreshed"
	RecordStale     RecordAction = "stale"
)

// MRecordResult reports what Record did with an observation. For a stale
// observation Record holds the newer row that was kept.
type MRecordResult struct {
	Record MPriceRecord `json:"record"`
	Action RecordAction `json:"action"`
}

// MPriceStats summarises recorded price points, not individual polls.
type MPriceStats struct {
	Vendor Vendor          `json:"vendor,omitempty"`
	Count  int             `json:"count"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Avg    decimal.Decimal `json:"avg"`
	StdDev decimal.Decimal `json:"std_dev"`
}

// MPriceTrend summarises one vendor's price history for a part.
type MPriceTrend struct {
	Vendor    Vendor          `json:"vendor"`
	MPN       string          `json:"mpn"`
	Points    int             `json:"points"`
	First     decimal.Decimal `json:"first"`
	Current   decimal.Decimal `json:"current"`
	Low       decimal.Decimal `json:"low"`
	High      decimal.Decimal `json:"high"`
	ChangePct decimal.Decimal `json:"change_pct"`
	Since     time.Time       `json:"since"`
	LastSeen  time.Time       `json:"last_seen"`
	Records   []MPriceRecord  `json:"records"`
}

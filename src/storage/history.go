package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"price-scout/src/analysis"
	"price-scout/src/helpers"
	"price-scout/src/logger"
	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

// dialect carries what differs between the SQLite and PostgreSQL backends.
// Queries are written with ? placeholders and rebound by bind.
type dialect struct {
	table     string
	forUpdate string
	bind      func(query string) string
	lockKey   func(ctx context.Context, tx *sql.Tx, key string) error
}

// historyDB implements the change-aware price history on top of database/sql.
type historyDB struct {
	db      *sql.DB
	dialect dialect
	locks   *keyLocks
	Logger  *logger.Logger
}

const recordColumns = "id, vendor, mpn, price, first_seen_at, last_seen_at"

// -----------------------------------------------------------------------------

// Record applies an observation to the history of its (vendor, mpn).
// A new row is inserted when the price changed, the latest row is refreshed
// when it did not, and an out-of-order observation with a different price is
// reported as stale.
func (h *historyDB) Record(ctx context.Context, obs models.MObservation) (models.MRecordResult, error) {
	if !obs.Succeeded() {
		return models.MRecordResult{}, helpers.NewValidationError("only successful observations are recorded, got status %s for %s/%s", obs.Status, obs.Vendor, obs.MPN)
	}
	if obs.FetchedAt.IsZero() {
		return models.MRecordResult{}, helpers.NewValidationError("observation for %s/%s has no fetched_at", obs.Vendor, obs.MPN)
	}

	vendor, mpn := obs.Vendor, strings.TrimSpace(obs.MPN)
	price := obs.Price.Round(2)
	ts := toMicros(obs.FetchedAt)
	key := string(vendor) + "/" + mpn

	unlock := h.locks.Lock(key)
	defer unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return models.MRecordResult{}, helpers.NewDatabaseError("begin record transaction", err)
	}
	defer tx.Rollback()

	if h.dialect.lockKey != nil {
		if err := h.dialect.lockKey(ctx, tx, key); err != nil {
			return models.MRecordResult{}, helpers.NewDatabaseError("lock "+key, err)
		}
	}

	latest, err := h.latestInTx(ctx, tx, vendor, mpn)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.MRecordResult{}, helpers.NewDatabaseError("load latest record", err)
	}

	var result models.MRecordResult
	switch {
	case errors.Is(err, sql.ErrNoRows), !latest.Price.Equal(price) && ts > toMicros(latest.LastSeenAt):
		rec, err := h.insert(ctx, tx, vendor, mpn, price, ts)
		if err != nil {
			return models.MRecordResult{}, err
		}
		result = models.MRecordResult{Record: rec, Action: models.RecordInserted}

	case latest.Price.Equal(price):
		if ts > toMicros(latest.LastSeenAt) {
			q := h.dialect.bind(fmt.Sprintf("UPDATE %s SET last_seen_at = ? WHERE id = ?", h.dialect.table))
			if _, err := tx.ExecContext(ctx, q, ts, latest.ID); err != nil {
				return models.MRecordResult{}, helpers.NewDatabaseError("refresh last_seen_at", err)
			}
			latest.LastSeenAt = fromMicros(ts)
		}
		result = models.MRecordResult{Record: latest, Action: models.RecordRefreshed}

	default:
		h.Logger.Warning("stale observation for %s/%s at %s: price %s, latest row already seen at %s with %s",
			vendor, mpn, obs.FetchedAt.Format(time.RFC3339), price, latest.LastSeenAt.Format(time.RFC3339), latest.Price)
		return models.MRecordResult{Record: latest, Action: models.RecordStale}, nil
	}

	if err := tx.Commit(); err != nil {
		return models.MRecordResult{}, helpers.NewDatabaseError("commit record", err)
	}
	h.Logger.Debug("%s %s/%s at %s", result.Action, vendor, mpn, price)
	return result, nil
}

// -----------------------------------------------------------------------------

func (h *historyDB) latestInTx(ctx context.Context, tx *sql.Tx, vendor models.Vendor, mpn string) (models.MPriceRecord, error) {
	q := h.dialect.bind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE vendor = ? AND mpn = ? ORDER BY last_seen_at DESC, id DESC LIMIT 1%s",
		recordColumns, h.dialect.table, h.dialect.forUpdate))
	return scanRecord(tx.QueryRowContext(ctx, q, string(vendor), mpn))
}

// -----------------------------------------------------------------------------

func (h *historyDB) insert(ctx context.Context, tx *sql.Tx, vendor models.Vendor, mpn string, price decimal.Decimal, ts int64) (models.MPriceRecord, error) {
	q := h.dialect.bind(fmt.Sprintf(
		"INSERT INTO %s (vendor, mpn, price, first_seen_at, last_seen_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		h.dialect.table))

	rec := models.MPriceRecord{
		Vendor:      vendor,
		MPN:         mpn,
		Price:       price,
		FirstSeenAt: fromMicros(ts),
		LastSeenAt:  fromMicros(ts),
	}
	if err := tx.QueryRowContext(ctx, q, string(vendor), mpn, price, ts, ts).Scan(&rec.ID); err != nil {
		return models.MPriceRecord{}, helpers.NewDatabaseError("insert price record", err)
	}
	return rec, nil
}

// -----------------------------------------------------------------------------

// History returns records oldest first. Empty vendor or mpn matches any.
func (h *historyDB) History(ctx context.Context, vendor models.Vendor, mpn string) ([]models.MPriceRecord, error) {
	where, args := filters(vendor, mpn)
	q := h.dialect.bind(fmt.Sprintf("SELECT %s FROM %s%s ORDER BY first_seen_at ASC, id ASC",
		recordColumns, h.dialect.table, where))
	return h.queryRecords(ctx, q, args...)
}

// -----------------------------------------------------------------------------

// Latest returns the most recently seen record of each vendor for mpn.
func (h *historyDB) Latest(ctx context.Context, mpn string) (map[models.Vendor]models.MPriceRecord, error) {
	records, err := h.History(ctx, "", mpn)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Vendor]models.MPriceRecord)
	for _, r := range records {
		cur, ok := out[r.Vendor]
		if !ok || r.LastSeenAt.After(cur.LastSeenAt) || (r.LastSeenAt.Equal(cur.LastSeenAt) && r.ID > cur.ID) {
			out[r.Vendor] = r
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Stats aggregates the distinct recorded price points of vendor, or of all
// vendors when vendor is empty.
func (h *historyDB) Stats(ctx context.Context, vendor models.Vendor) (models.MPriceStats, error) {
	records, err := h.History(ctx, vendor, "")
	if err != nil {
		return models.MPriceStats{}, err
	}

	prices := make([]decimal.Decimal, len(records))
	for i, r := range records {
		prices[i] = r.Price
	}
	return analysis.SummarizePrices(vendor, prices), nil
}

// -----------------------------------------------------------------------------

func (h *historyDB) MPNs(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT mpn FROM %s ORDER BY mpn", h.dialect.table)
	rows, err := h.db.QueryContext(ctx, q)
	if err != nil {
		return nil, helpers.NewDatabaseError("list mpns", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var mpn string
		if err := rows.Scan(&mpn); err != nil {
			return nil, helpers.NewDatabaseError("scan mpn", err)
		}
		out = append(out, mpn)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate mpns", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Trends groups the history of mpn by vendor, each oldest first.
func (h *historyDB) Trends(ctx context.Context, mpn string) (map[models.Vendor][]models.MPriceRecord, error) {
	records, err := h.History(ctx, "", mpn)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Vendor][]models.MPriceRecord)
	for _, r := range records {
		out[r.Vendor] = append(out[r.Vendor], r)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Prune deletes records last seen before cutoff.
func (h *historyDB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	q := h.dialect.bind(fmt.Sprintf("DELETE FROM %s WHERE last_seen_at < ?", h.dialect.table))
	res, err := h.db.ExecContext(ctx, q, toMicros(cutoff))
	if err != nil {
		return 0, helpers.NewDatabaseError("prune price records", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, helpers.NewDatabaseError("prune rows affected", err)
	}
	h.Logger.Info("Pruned %d price records last seen before %s", n, cutoff.Format(time.RFC3339))
	return n, nil
}

// -----------------------------------------------------------------------------

func (h *historyDB) queryRecords(ctx context.Context, q string, args ...interface{}) ([]models.MPriceRecord, error) {
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, helpers.NewDatabaseError("query price records", err)
	}
	defer rows.Close()

	var out []models.MPriceRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, helpers.NewDatabaseError("scan price record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate price records", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.MPriceRecord, error) {
	var (
		r           models.MPriceRecord
		vendor      string
		first, last int64
	)
	if err := row.Scan(&r.ID, &vendor, &r.MPN, &r.Price, &first, &last); err != nil {
		return models.MPriceRecord{}, err
	}
	r.Vendor = models.Vendor(vendor)
	r.FirstSeenAt = fromMicros(first)
	r.LastSeenAt = fromMicros(last)
	return r, nil
}

// -----------------------------------------------------------------------------

func filters(vendor models.Vendor, mpn string) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if vendor != "" {
		clauses = append(clauses, "vendor = ?")
		args = append(args, string(vendor))
	}
	if mpn = strings.TrimSpace(mpn); mpn != "" {
		clauses = append(clauses, "mpn = ?")
		args = append(args, mpn)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// -----------------------------------------------------------------------------

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

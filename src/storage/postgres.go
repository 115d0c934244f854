package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"price-scout/src/helpers"
	"price-scout/src/logger"
	"price-scout/src/models"

	_ "github.com/lib/pq"
)

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// -----------------------------------------------------------------------------

// PostgresDB stores price history in a dedicated schema. Same-key writes from
// separate processes are serialized with a transaction-scoped advisory lock.
type PostgresDB struct {
	historyDB
	Config *models.MConfig
	DB     *sql.DB
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	schema := cfg.Storage.DBSchema
	if schema == "" {
		schema = "price_scout"
	}
	if !schemaNameRe.MatchString(schema) {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("invalid postgres schema name %q", schema), nil)
	}

	return &PostgresDB{
		historyDB: historyDB{
			dialect: dialect{
				table:     fmt.Sprintf(`"%s"."price_records"`, schema),
				forUpdate: " FOR UPDATE",
				bind:      rebindDollar,
				lockKey:   advisoryLock,
			},
			locks:  newKeyLocks(),
			Logger: log,
		},
		Config: cfg,
		Schema: schema,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	if _, err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		db.Close()
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			vendor TEXT NOT NULL,
			mpn TEXT NOT NULL,
			price NUMERIC(12, 2) NOT NULL,
			first_seen_at BIGINT NOT NULL,
			last_seen_at BIGINT NOT NULL,
			UNIQUE (vendor, mpn, first_seen_at)
		);
		CREATE INDEX IF NOT EXISTS price_records_latest_idx ON %[1]s (vendor, mpn, last_seen_at);
		CREATE INDEX IF NOT EXISTS price_records_mpn_idx ON %[1]s (mpn);
	`, d.dialect.table)
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return helpers.NewDatabaseError("create price_records", err)
	}

	d.DB = db
	d.db = db
	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func advisoryLock(ctx context.Context, tx *sql.Tx, key string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key)
	return err
}

// -----------------------------------------------------------------------------

// rebindDollar turns ? placeholders into $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

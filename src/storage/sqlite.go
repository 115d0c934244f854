package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	"price-scout/src/helpers"
	"price-scout/src/logger"
	"price-scout/src/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS price_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vendor TEXT NOT NULL,
		mpn TEXT NOT NULL,
		price TEXT NOT NULL,
		first_seen_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL,
		UNIQUE (vendor, mpn, first_seen_at)
	);
	CREATE INDEX IF NOT EXISTS idx_price_records_latest ON price_records (vendor, mpn, last_seen_at);
	CREATE INDEX IF NOT EXISTS idx_price_records_mpn ON price_records (mpn);
`

// -----------------------------------------------------------------------------

// AsyncSQLiteDB stores price history in a local SQLite file. Prices are kept
// as TEXT so they round-trip exactly.
type AsyncSQLiteDB struct {
	historyDB
	Config *models.MConfig
	DB     *sql.DB
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		historyDB: historyDB{
			dialect: dialect{
				table: "price_records",
				bind:  func(q string) string { return q },
			},
			locks:  newKeyLocks(),
			Logger: log,
		},
		Config: cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return helpers.NewDatabaseError("create data directory "+dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite "+dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite "+dsn, err)
	}

	// One connection: SQLite has a single writer and :memory: is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return helpers.NewDatabaseError("set busy timeout", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return helpers.NewDatabaseError("create price_records", err)
	}

	d.DB = db
	d.db = db
	d.Logger.Info("SQLite price history ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

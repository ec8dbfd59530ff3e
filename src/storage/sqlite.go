package storage

import (
	"os"
	"path/filepath"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	sqlStore
	Path string
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg models.MStorageConfig, log *logger.Logger) *AsyncSQLiteDB {
	return &AsyncSQLiteDB{
		sqlStore: sqlStore{
			Logger:        log,
			RetentionDays: cfg.DataRetentionDays,
			ticksTable:    "ticks",
			candlesTable:  "candles",
			signalsTable:  "signals",
		},
		Path: cfg.DBPath,
	}
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	if dir := filepath.Dir(d.Path); d.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	db, err := sqlx.Connect("sqlite", d.Path)
	if err != nil {
		return errors.Wrapf(err, "open sqlite %s", d.Path)
	}
	// modernc serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.recreateTables([]string{
		`CREATE TABLE ticks (
			symbol TEXT NOT NULL,
			time INTEGER NOT NULL,
			bid REAL,
			ask REAL,
			mid REAL,
			PRIMARY KEY (symbol, time)
		)`,
		`CREATE TABLE candles (
			symbol TEXT NOT NULL,
			tf TEXT NOT NULL,
			time INTEGER NOT NULL,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			PRIMARY KEY (symbol, tf, time)
		)`,
		`CREATE TABLE signals (
			symbol TEXT NOT NULL,
			tf TEXT NOT NULL,
			signal TEXT NOT NULL,
			time INTEGER NOT NULL,
			meta TEXT,
			PRIMARY KEY (symbol, tf)
		)`,
	})
}

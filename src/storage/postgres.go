package storage

import (
	"fmt"
	"regexp"
	"strings"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var schemaUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	sqlStore
	DSN    string
	Schema string
}

// -----------------------------------------------------------------------------

// NewPostgresDB archives into a schema named after the application.
func NewPostgresDB(cfg models.MStorageConfig, appName string, log *logger.Logger) *PostgresDB {
	schema := schemaUnsafe.ReplaceAllString(strings.ToLower(appName), "_")
	if schema == "" {
		schema = "candle_relay"
	}

	return &PostgresDB{
		sqlStore: sqlStore{
			Logger:        log,
			RetentionDays: cfg.DataRetentionDays,
			ticksTable:    fmt.Sprintf(`"%s"."ticks"`, schema),
			candlesTable:  fmt.Sprintf(`"%s"."candles"`, schema),
			signalsTable:  fmt.Sprintf(`"%s"."signals"`, schema),
		},
		DSN:    cfg.DBConnectionString,
		Schema: schema,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sqlx.Connect("postgres", d.DSN)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return errors.Wrapf(err, "failed to create schema %s", d.Schema)
	}

	if err := d.recreateTables([]string{
		fmt.Sprintf(`CREATE TABLE %s (
			symbol TEXT NOT NULL,
			time BIGINT NOT NULL,
			bid DOUBLE PRECISION,
			ask DOUBLE PRECISION,
			mid DOUBLE PRECISION,
			PRIMARY KEY (symbol, time)
		)`, d.ticksTable),
		fmt.Sprintf(`CREATE TABLE %s (
			symbol TEXT NOT NULL,
			tf TEXT NOT NULL,
			time BIGINT NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (symbol, tf, time)
		)`, d.candlesTable),
		fmt.Sprintf(`CREATE TABLE %s (
			symbol TEXT NOT NULL,
			tf TEXT NOT NULL,
			signal TEXT NOT NULL,
			time BIGINT NOT NULL,
			meta JSONB,
			PRIMARY KEY (symbol, tf)
		)`, d.signalsTable),
	}); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

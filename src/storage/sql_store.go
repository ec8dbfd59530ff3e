package storage

import (
	"encoding/json"
	"time"

	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// Row types (sqlx column mapping)
// -----------------------------------------------------------------------------

type tickRow struct {
	Symbol string  `db:"symbol"`
	Time   int64   `db:"time"`
	Bid    float64 `db:"bid"`
	Ask    float64 `db:"ask"`
	Mid    float64 `db:"mid"`
}

type candleRow struct {
	Symbol    string  `db:"symbol"`
	Timeframe string  `db:"tf"`
	Time      int64   `db:"time"`
	Open      float64 `db:"open"`
	High      float64 `db:"high"`
	Low       float64 `db:"low"`
	Close     float64 `db:"close"`
	Volume    float64 `db:"volume"`
}

type signalRow struct {
	Symbol    string `db:"symbol"`
	Timeframe string `db:"tf"`
	Label     string `db:"signal"`
	Time      int64  `db:"time"`
	Meta      string `db:"meta"`
}

// -----------------------------------------------------------------------------
// sqlStore holds the dialect-independent archive logic. Table names are
// qualified by the dialect (plain for sqlite, schema-prefixed for postgres).
// -----------------------------------------------------------------------------

type sqlStore struct {
	DB            *sqlx.DB
	Logger        *logger.Logger
	RetentionDays int

	ticksTable   string
	candlesTable string
	signalsTable string
}

// -----------------------------------------------------------------------------

func (s *sqlStore) recreateTables(ddl []string) error {
	for _, table := range []string{s.ticksTable, s.candlesTable, s.signalsTable} {
		if _, err := s.DB.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errors.Wrapf(err, "failed to drop %s", table)
		}
	}
	for _, stmt := range ddl {
		if _, err := s.DB.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to create archive tables")
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveTicks(ticks []models.MTick) error {
	if len(ticks) == 0 {
		return nil
	}

	query := `INSERT INTO ` + s.ticksTable + ` (symbol, time, bid, ask, mid)
		VALUES (:symbol, :time, :bid, :ask, :mid)
		ON CONFLICT (symbol, time) DO UPDATE SET
			bid = excluded.bid, ask = excluded.ask, mid = excluded.mid`

	return s.inTx("save ticks", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamed(query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range ticks {
			row := tickRow{Symbol: t.Symbol, Time: t.Time, Bid: t.Bid, Ask: t.Ask, Mid: t.Mid}
			if _, err := stmt.Exec(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveCandles(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	query := `INSERT INTO ` + s.candlesTable + ` (symbol, tf, time, open, high, low, close, volume)
		VALUES (:symbol, :tf, :time, :open, :high, :low, :close, :volume)
		ON CONFLICT (symbol, tf, time) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`

	return s.inTx("save candles", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamed(query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range candles {
			row := candleRow{
				Symbol: c.Symbol, Timeframe: c.Timeframe, Time: c.Time,
				Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
			}
			if _, err := stmt.Exec(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveSignals(signals []models.MSignal) error {
	if len(signals) == 0 {
		return nil
	}

	query := `INSERT INTO ` + s.signalsTable + ` (symbol, tf, signal, time, meta)
		VALUES (:symbol, :tf, :signal, :time, :meta)
		ON CONFLICT (symbol, tf) DO UPDATE SET
			signal = excluded.signal, time = excluded.time, meta = excluded.meta`

	return s.inTx("save signals", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamed(query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sig := range signals {
			meta, err := json.Marshal(sig.Meta)
			if err != nil {
				return errors.Wrapf(err, "encode meta for %s %s", sig.Symbol, sig.Timeframe)
			}
			row := signalRow{Symbol: sig.Symbol, Timeframe: sig.Timeframe, Label: sig.Label, Time: sig.Time, Meta: string(meta)}
			if _, err := stmt.Exec(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------

func (s *sqlStore) inTx(op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return errors.Wrapf(err, "%s: begin", op)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return helpers.NewDatabaseError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError(op+": commit", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// CleanupOldData deletes ticks and candles older than the retention window.
// Signals are one row per key and are kept.
func (s *sqlStore) CleanupOldData() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.RetentionDays).UnixMilli()
	s.Logger.Info("Cleaning up data older than %d days (time < %d)...", s.RetentionDays, cutoff)

	for _, table := range []string{s.ticksTable, s.candlesTable} {
		if _, err := s.DB.Exec(s.DB.Rebind("DELETE FROM "+table+" WHERE time < ?"), cutoff); err != nil {
			s.Logger.Error("Cleanup %s error: %v", table, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// LoadCandles reads archived candles for one series, oldest first.
func (s *sqlStore) LoadCandles(symbol, tf string, limit int) ([]models.MCandle, error) {
	var rows []candleRow
	query := s.DB.Rebind(`SELECT symbol, tf, time, open, high, low, close, volume FROM ` + s.candlesTable +
		` WHERE symbol = ? AND tf = ? ORDER BY time DESC LIMIT ?`)
	if err := s.DB.Select(&rows, query, symbol, tf, limit); err != nil {
		return nil, errors.Wrapf(err, "load candles %s %s", symbol, tf)
	}

	out := make([]models.MCandle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = models.MCandle{
			Symbol: r.Symbol, Timeframe: r.Timeframe, Time: r.Time,
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

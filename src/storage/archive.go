package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Archiver buffers outbound events and writes them to an IDatabase in the
// background. It is an IEventSink: Publish never waits on the database, and a
// full queue drops the event (the archive is best-effort).
// -----------------------------------------------------------------------------

type Archiver struct {
	db            interfaces.IDatabase
	queue         chan *models.MOutbound
	flushInterval time.Duration
	cleanupEvery  time.Duration

	ticks   []models.MTick
	candles map[candleKey]models.MCandle
	signals map[models.MSeriesKey]models.MSignal

	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	Logger *logger.Logger
}

type candleKey struct {
	series models.MSeriesKey
	time   int64
}

// -----------------------------------------------------------------------------

func NewArchiver(db interfaces.IDatabase, flushInterval time.Duration, queueSize int, l *logger.Logger) *Archiver {
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 8192
	}
	return &Archiver{
		db:            db,
		queue:         make(chan *models.MOutbound, queueSize),
		flushInterval: flushInterval,
		cleanupEvery:  time.Hour,
		candles:       make(map[candleKey]models.MCandle),
		signals:       make(map[models.MSeriesKey]models.MSignal),
		done:          make(chan struct{}),
		Logger:        l,
	}
}

// -----------------------------------------------------------------------------

// Publish implements interfaces.IEventSink.
func (a *Archiver) Publish(event *models.MOutbound) {
	select {
	case a.queue <- event:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Archiver) Dropped() int64 {
	return a.dropped.Load()
}

// -----------------------------------------------------------------------------

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop drains the queue, flushes and returns. The database is not closed.
func (a *Archiver) Stop() {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
}

// -----------------------------------------------------------------------------

func (a *Archiver) run() {
	defer a.wg.Done()

	flush := time.NewTicker(a.flushInterval)
	defer flush.Stop()
	cleanup := time.NewTicker(a.cleanupEvery)
	defer cleanup.Stop()

	for {
		select {
		case ev := <-a.queue:
			a.collect(ev)

		case <-flush.C:
			a.Flush()

		case <-cleanup.C:
			if err := a.db.CleanupOldData(); err != nil {
				a.Logger.Error("Archive cleanup failed: %v", err)
			}

		case <-a.done:
			for {
				select {
				case ev := <-a.queue:
					a.collect(ev)
				default:
					a.Flush()
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// collect buffers one event. Later candles for the same bucket overwrite earlier ones.
func (a *Archiver) collect(ev *models.MOutbound) {
	switch ev.Type {
	case models.EventTick:
		if ev.Tick != nil {
			a.ticks = append(a.ticks, *ev.Tick)
		}
	case models.EventBarNew, models.EventBarUpdate:
		if ev.Candle != nil {
			a.candles[candleKey{series: ev.Candle.Key(), time: ev.Candle.Time}] = *ev.Candle
		}
	case models.EventCandles:
		for _, c := range ev.Candles {
			a.candles[candleKey{series: c.Key(), time: c.Time}] = c
		}
	case models.EventSignal:
		if ev.Signal != nil {
			a.signals[models.MSeriesKey{Symbol: ev.Signal.Symbol, Timeframe: ev.Signal.Timeframe}] = *ev.Signal
		}
	}
}

// -----------------------------------------------------------------------------

// Flush writes everything buffered so far. Buffers are cleared even when a
// write fails so a broken database cannot grow memory without bound.
func (a *Archiver) Flush() {
	if len(a.ticks) > 0 {
		if err := a.db.SaveTicks(a.ticks); err != nil {
			a.Logger.Error("Archive ticks failed: %v", err)
		}
		a.ticks = nil
	}

	if len(a.candles) > 0 {
		batch := make([]models.MCandle, 0, len(a.candles))
		for _, c := range a.candles {
			batch = append(batch, c)
		}
		if err := a.db.SaveCandles(batch); err != nil {
			a.Logger.Error("Archive candles failed: %v", err)
		}
		a.candles = make(map[candleKey]models.MCandle)
	}

	if len(a.signals) > 0 {
		batch := make([]models.MSignal, 0, len(a.signals))
		for _, s := range a.signals {
			batch = append(batch, s)
		}
		if err := a.db.SaveSignals(batch); err != nil {
			a.Logger.Error("Archive signals failed: %v", err)
		}
		a.signals = make(map[models.MSeriesKey]models.MSignal)
	}
}

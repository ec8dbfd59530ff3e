package mockfeed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/utils"
)

// Spread is the half-spread applied around the walked mid price.
const Spread = 0.01

// DefaultBasePrices seed the walk for symbols without a configured price.
var DefaultBasePrices = map[string]float64{
	"EURUSD": 1.09,
	"XAUUSD": 2050.0,
	"XAGUSD": 24.0,
	"BTCUSD": 43000.0,
	"ETHUSD": 2300.0,
}

// -----------------------------------------------------------------------------
// MockSource emits random-walk ticks for a fixed symbol list. When a session
// MIC is configured, symbols only tick while their venue is open.
// -----------------------------------------------------------------------------

type MockSource struct {
	SourceConfig    models.MSourceConfig
	Logger          *logger.Logger
	MarketScheduler *utils.MarketScheduler

	walkMu    sync.Mutex
	prices    map[string]float64 // guarded by walkMu
	rng       *rand.Rand
	now       func() time.Time
	interval  time.Duration
	isRunning atomic.Bool
	cancel    context.CancelFunc
	mu        sync.Mutex
}

// -----------------------------------------------------------------------------

func NewMockSource(cfg models.MSourceConfig, l *logger.Logger) *MockSource {
	symbols := utils.NormalizeSymbols(cfg.Symbols)

	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		p, ok := cfg.BasePrices[sym]
		if !ok {
			p, ok = DefaultBasePrices[sym]
		}
		if !ok || p <= 0 {
			p = 100.0
		}
		prices[sym] = p
	}

	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}

	return &MockSource{
		SourceConfig:    cfg,
		Logger:          l,
		MarketScheduler: utils.NewMarketScheduler(symbols, cfg.SessionMIC, l.Named("MarketScheduler-"+cfg.Name)),
		prices:          prices,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		now:             time.Now,
		interval:        interval,
	}
}

// -----------------------------------------------------------------------------

func (s *MockSource) Name() string {
	return s.SourceConfig.Name
}

// IsRealTime returns true: ticks are produced continuously.
func (s *MockSource) IsRealTime() bool {
	return true
}

// -----------------------------------------------------------------------------

func (s *MockSource) Start(parentCtx context.Context, out chan<- models.MIngest, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, out, wg)
	s.Logger.Info("Started MockSource: %s (%d symbols every %s)", s.Name(), len(s.prices), s.interval)
	return nil
}

// -----------------------------------------------------------------------------

func (s *MockSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	s.cancel()
	s.isRunning.Store(false)
	s.Logger.Info("Stopped MockSource: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *MockSource) runLoop(ctx context.Context, out chan<- models.MIngest, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rec := range s.NextTicks() {
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// NextTicks advances every open symbol by one random step and returns the
// resulting tick records in symbol order.
func (s *MockSource) NextTicks() []models.MIngest {
	s.walkMu.Lock()
	defer s.walkMu.Unlock()

	now := s.now()
	symbols := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]models.MIngest, 0, len(symbols))
	for _, sym := range symbols {
		if !s.MarketScheduler.IsSymbolOpen(sym, now) {
			continue
		}

		p := s.prices[sym]
		drift := (s.rng.Float64() - 0.5) * p * 0.001
		p = math.Max(0.0001, p+drift)
		s.prices[sym] = p

		out = append(out, models.MIngest{
			Kind:   models.IngestTick,
			Source: s.Name(),
			Tick: &models.MTickInput{
				Symbol: sym,
				Bid:    p - Spread,
				Ask:    p + Spread,
				Time:   models.MTimestamp(now.UnixMilli()),
			},
		})
	}
	return out
}

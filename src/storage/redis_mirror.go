package storage

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisCommander is the part of redis.Cmdable the mirror uses.
type RedisCommander interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// -----------------------------------------------------------------------------
// RedisMirror republishes outbound events on Redis pub/sub channels
// ("<prefix>:<symbol>") and keeps the latest tick per symbol in the hash
// "<prefix>:ticks", so other processes can follow the feed.
// -----------------------------------------------------------------------------

type RedisMirror struct {
	client  RedisCommander
	prefix  string
	queue   chan *models.MOutbound
	timeout time.Duration

	dropped atomic.Int64
	failed  atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewRedisClient opens and pings a standalone client.
func NewRedisClient(ctx context.Context, cfg models.MRedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// -----------------------------------------------------------------------------

func NewRedisMirror(client RedisCommander, prefix string, queueSize int, l *logger.Logger) *RedisMirror {
	if queueSize <= 0 {
		queueSize = 8192
	}
	return &RedisMirror{
		client:  client,
		prefix:  prefix,
		queue:   make(chan *models.MOutbound, queueSize),
		timeout: 2 * time.Second,
		done:    make(chan struct{}),
		Logger:  l,
	}
}

// -----------------------------------------------------------------------------

// Publish implements interfaces.IEventSink.
func (m *RedisMirror) Publish(event *models.MOutbound) {
	if !event.Routable() {
		return
	}
	select {
	case m.queue <- event:
	default:
		m.dropped.Add(1)
	}
}

func (m *RedisMirror) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop drains what is queued and returns.
func (m *RedisMirror) Stop() {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
}

// -----------------------------------------------------------------------------

func (m *RedisMirror) run() {
	defer m.wg.Done()
	for {
		select {
		case ev := <-m.queue:
			m.forward(ev)
		case <-m.done:
			for {
				select {
				case ev := <-m.queue:
					m.forward(ev)
				default:
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// ChannelFor returns the pub/sub channel carrying events for symbol.
func (m *RedisMirror) ChannelFor(symbol string) string {
	return m.prefix + ":" + symbol
}

// TicksKey returns the hash holding the latest tick per symbol.
func (m *RedisMirror) TicksKey() string {
	return m.prefix + ":ticks"
}

func (m *RedisMirror) forward(ev *models.MOutbound) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.failed.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.client.Publish(ctx, m.ChannelFor(ev.Symbol), payload).Err(); err != nil {
		m.failed.Add(1)
		m.Logger.Warning("Redis publish failed: %v", err)
		return
	}

	if ev.Type == models.EventTick && ev.Tick != nil {
		tick, _ := json.Marshal(ev.Tick)
		if err := m.client.HSet(ctx, m.TicksKey(), ev.Symbol, tick).Err(); err != nil {
			m.failed.Add(1)
			m.Logger.Warning("Redis hset failed: %v", err)
		}
	}
}

// Failed returns the number of events that could not be mirrored.
func (m *RedisMirror) Failed() int64 {
	return m.failed.Load()
}

package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu         sync.Mutex
	published  map[string]int
	hashes     map[string]map[string]interface{}
	publishErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		published: make(map[string]int),
		hashes:    make(map[string]map[string]interface{}),
	}
}

func (f *fakeRedis) Publish(_ context.Context, channel string, _ interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return redis.NewIntResult(0, f.publishErr)
	}
	f.published[channel]++
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]interface{})
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1]
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func TestRedisMirror_Forwards(t *testing.T) {
	client := newFakeRedis()
	m := NewRedisMirror(client, "relay", 16, logger.NewNopLogger())
	m.Start()

	tick := models.MTick{Symbol: "EURUSD", Bid: 1, Ask: 1, Mid: 1, Time: 1}
	candle := models.MCandle{Symbol: "XAUUSD", Timeframe: "1m"}
	m.Publish(&models.MOutbound{Type: models.EventTick, Symbol: "EURUSD", Tick: &tick})
	m.Publish(&models.MOutbound{Type: models.EventBarNew, Symbol: "XAUUSD", Timeframe: "1m", Candle: &candle})
	m.Publish(&models.MOutbound{Type: models.EventSnapshot})
	m.Stop()

	assert.Equal(t, 1, client.published["relay:EURUSD"])
	assert.Equal(t, 1, client.published["relay:XAUUSD"])
	assert.Len(t, client.published, 2)
	require.Contains(t, client.hashes, "relay:ticks")
	assert.Contains(t, client.hashes["relay:ticks"], "EURUSD")
	assert.Zero(t, m.Failed())
}

func TestRedisMirror_CountsFailures(t *testing.T) {
	client := newFakeRedis()
	client.publishErr = errors.New("connection refused")
	m := NewRedisMirror(client, "relay", 16, logger.NewNopLogger())
	m.Start()

	tick := models.MTick{Symbol: "EURUSD"}
	m.Publish(&models.MOutbound{Type: models.EventTick, Symbol: "EURUSD", Tick: &tick})
	m.Stop()

	assert.Equal(t, int64(1), m.Failed())
	assert.Empty(t, client.hashes)
}

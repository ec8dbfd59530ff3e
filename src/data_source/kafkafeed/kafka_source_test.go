package kafkafeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"candle-relay/src/helpers"
	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs   chan kafka.Message
	mu     sync.Mutex
	closed bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafka.Message{Topic: "quotes", Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// -----------------------------------------------------------------------------

func TestDecodeMessage(t *testing.T) {
	rec, err := DecodeMessage([]byte(`{"type":"tick","symbol":"EURUSD","bid":1.0950,"ask":1.0952,"time":1699920000123}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Tick)
	assert.Equal(t, 1.0950, rec.Tick.Bid)
	assert.Equal(t, models.MTimestamp(1_699_920_000_123), rec.Tick.Time)

	rec, err = DecodeMessage([]byte(`{"type":"candles","symbol":"XAUUSD","tf":"1m","candles":[{"time":60,"open":1,"high":1,"low":1,"close":1}]}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Batch)
	assert.Len(t, rec.Batch.Candles, 1)

	_, err = DecodeMessage([]byte(`not json`))
	var verr *helpers.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = DecodeMessage([]byte(`{"type":"order"}`))
	assert.Error(t, err)
}

func TestKafkaSource_ConsumesAndSkips(t *testing.T) {
	reader := newFakeReader(
		`{"type":"tick","symbol":"EURUSD","bid":1,"ask":1}`,
		`{broken`,
		`{"type":"signal","symbol":"EURUSD","tf":"1h","signal":"BUY"}`,
	)
	s := NewKafkaSourceWithReader(models.MSourceConfig{Name: "bridge", Topic: "quotes"},
		func() MessageReader { return reader }, logger.NewNopLogger())

	out := make(chan models.MIngest, 4)
	var wg sync.WaitGroup
	require.NoError(t, s.Start(context.Background(), out, &wg))

	var got []models.MIngest
	for len(got) < 2 {
		select {
		case rec := <-out:
			got = append(got, rec)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d records", len(got))
		}
	}

	assert.Equal(t, models.IngestTick, got[0].Kind)
	assert.Equal(t, models.IngestSignal, got[1].Kind)
	assert.Equal(t, "bridge", got[1].Source)
	assert.Equal(t, int64(1), s.Skipped())

	require.NoError(t, s.Stop())
	wg.Wait()
	assert.True(t, reader.isClosed())
	assert.Error(t, s.Stop())
}

package analysis

import (
	"testing"

	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBar(ts int64, close float64) models.MCandle {
	return models.MCandle{Symbol: "EURUSD", Timeframe: "1m", Time: ts, Open: close, High: close, Low: close, Close: close}
}

func TestNormalizeBatch_SortsAlignsAndDedupes(t *testing.T) {
	r := &TimeSeriesResampler{}
	in := []models.MCandle{
		rawBar(125_000, 3),
		rawBar(5_000, 1),
		rawBar(61_000, 2),
		rawBar(119_000, 22), // same bucket as 61_000, later in the batch
	}

	out := r.NormalizeBatch(in, Timeframe1m, 0)

	require.Len(t, out, 3)
	assert.Equal(t, int64(0), out[0].Time)
	assert.Equal(t, int64(60_000), out[1].Time)
	assert.Equal(t, 22.0, out[1].Close)
	assert.Equal(t, int64(120_000), out[2].Time)

	assert.Equal(t, int64(125_000), in[0].Time, "input must not be modified")
}

func TestNormalizeBatch_TruncatesToNewest(t *testing.T) {
	r := &TimeSeriesResampler{}
	var in []models.MCandle
	for i := int64(9); i >= 0; i-- {
		in = append(in, rawBar(i*60_000, float64(i)))
	}

	out := r.NormalizeBatch(in, Timeframe1m, 3)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{7, 8, 9}, []float64{out[0].Close, out[1].Close, out[2].Close})
}

func TestNormalizeBatch_Idempotent(t *testing.T) {
	r := &TimeSeriesResampler{}
	in := []models.MCandle{rawBar(120_000, 3), rawBar(0, 1), rawBar(0, 1.5)}

	once := r.NormalizeBatch(in, Timeframe1m, 10)
	twice := r.NormalizeBatch(once, Timeframe1m, 10)
	assert.Equal(t, once, twice)
}

func TestNormalizeBatch_Empty(t *testing.T) {
	r := &TimeSeriesResampler{}
	assert.Empty(t, r.NormalizeBatch(nil, Timeframe1m, 10))
}

func TestSearchSorted(t *testing.T) {
	series := []models.MCandle{rawBar(0, 1), rawBar(60_000, 1), rawBar(120_000, 1)}

	assert.Equal(t, 1, SearchSorted(series, 60_000, "left"))
	assert.Equal(t, 2, SearchSorted(series, 60_000, "right"))
	assert.Equal(t, 3, SearchSorted(series, 500_000, "left"))
}

package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1, -2, 0))
	assert.False(t, IsFinite(1, math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestIsValidOHLC(t *testing.T) {
	assert.True(t, IsValidOHLC(10, 12, 9, 11))
	assert.True(t, IsValidOHLC(5, 5, 5, 5))
	assert.False(t, IsValidOHLC(10, 9, 8, 9))
	assert.False(t, IsValidOHLC(10, 12, 11, 11))
}

func TestMid(t *testing.T) {
	assert.InDelta(t, 1.0951, Mid(1.0950, 1.0952), 1e-12)
}

func TestCalculateMeanStd(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)

	mean, std = CalculateMeanStd([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Zero(t, std)
}

func TestCalculateZScoreAndChange(t *testing.T) {
	assert.Equal(t, 2.0, CalculateZScore(9, 5, 2))
	assert.Zero(t, CalculateZScore(9, 5, 0))
	assert.InDelta(t, 0.1, CalculateChangePercent(110, 100), 1e-12)
	assert.Zero(t, CalculateChangePercent(110, 0))
}

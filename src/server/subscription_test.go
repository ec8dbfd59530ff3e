package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_Wildcard(t *testing.T) {
	var zero Subscription
	assert.True(t, zero.IsWildcard())
	assert.True(t, zero.Matches("ANY"))

	empty := NewSubscription([]string{" ", "_"})
	assert.True(t, empty.IsWildcard())
}

func TestSubscription_Matches(t *testing.T) {
	sub := NewSubscription([]string{"XAUUSD_", "EURUSD"})

	assert.False(t, sub.IsWildcard())
	assert.True(t, sub.Matches("XAUUSD"))
	assert.True(t, sub.Matches("EURUSD"))
	assert.False(t, sub.Matches("BTCUSD"))
	assert.Equal(t, []string{"EURUSD", "XAUUSD"}, sub.Symbols())
}

func TestSubscription_Without(t *testing.T) {
	sub := NewSubscription([]string{"XAUUSD", "EURUSD"})

	less := sub.Without([]string{"EURUSD_"})
	assert.Equal(t, []string{"XAUUSD"}, less.Symbols())
	assert.Equal(t, []string{"EURUSD", "XAUUSD"}, sub.Symbols(), "original is unchanged")

	none := less.Without([]string{"XAUUSD"})
	assert.True(t, none.IsWildcard())
}

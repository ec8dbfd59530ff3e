package server

import (
	"sort"

	"candle-relay/src/utils"
)

// -----------------------------------------------------------------------------
// Subscription is a connection's interest set. The zero value (empty set)
// matches every symbol. Values are immutable: every change returns a new one.
// -----------------------------------------------------------------------------

type Subscription struct {
	symbols map[string]struct{}
}

// NewSubscription builds an interest set from raw symbols.
func NewSubscription(symbols []string) Subscription {
	normalized := utils.NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return Subscription{}
	}
	set := make(map[string]struct{}, len(normalized))
	for _, s := range normalized {
		set[s] = struct{}{}
	}
	return Subscription{symbols: set}
}

// Matches reports whether events for symbol should be delivered.
func (s Subscription) Matches(symbol string) bool {
	if len(s.symbols) == 0 {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}

// IsWildcard reports whether the set is empty.
func (s Subscription) IsWildcard() bool {
	return len(s.symbols) == 0
}

// Without returns a copy with symbols removed. Removing everything yields
// the wildcard subscription.
func (s Subscription) Without(symbols []string) Subscription {
	drop := NewSubscription(symbols)
	set := make(map[string]struct{}, len(s.symbols))
	for sym := range s.symbols {
		if _, removed := drop.symbols[sym]; !removed {
			set[sym] = struct{}{}
		}
	}
	if len(set) == 0 {
		return Subscription{}
	}
	return Subscription{symbols: set}
}

// Symbols returns the interest set sorted.
func (s Subscription) Symbols() []string {
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers "is this venue in session" using scmhub/calendar.
// A calendar with AlwaysOpen set models 24/7 venues (crypto, or no MIC configured).
type TradingCalendar struct {
	Calendar   *calendar.Calendar
	MIC        string
	AlwaysOpen bool
	Fallback   bool
	Timezone   *time.Location
}

// -----------------------------------------------------------------------------

// MICForSymbol maps an exchange-suffixed symbol to its MIC code (ISO 10383).
// Symbols without a known suffix return defaultMIC.
func MICForSymbol(symbol, defaultMIC string) string {
	suffixes := []struct {
		suffix string
		mic    string
	}{
		{".L", "xlon"}, {".PA", "xpar"}, {".DE", "xfra"}, {".AS", "xams"},
		{".MI", "xmil"}, {".SW", "xswx"}, {".TO", "xtse"}, {".T", "xtks"},
		{".HK", "xhkg"}, {".AX", "xasx"},
	}
	for _, s := range suffixes {
		if strings.HasSuffix(symbol, s.suffix) {
			return s.mic
		}
	}
	return defaultMIC
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for mic. An empty mic yields an always-open calendar.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		return &TradingCalendar{AlwaysOpen: true, Timezone: time.UTC}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Simple fallback: Mon-Fri 09:30-16:00 New York time
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, MIC: mic, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the venue is in session at t.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

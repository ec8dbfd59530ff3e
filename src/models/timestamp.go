package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// secondsThreshold separates epoch seconds from epoch milliseconds in numeric input.
const secondsThreshold = 1_000_000_000_000

// maxTimestampMS bounds accepted times to ±100,000,000 days around the epoch,
// which keeps bucket arithmetic far from int64 overflow.
const maxTimestampMS = 8_640_000_000_000_000

// MTimestamp is a point in time in milliseconds since the Unix epoch.
// Zero means "not supplied".
type MTimestamp int64

// UnmarshalJSON accepts RFC3339 strings, numeric strings and numbers.
func (t *MTimestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = 0
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ms, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = MTimestamp(ms)
	return nil
}

// ParseTimestamp converts a loosely typed time value to epoch milliseconds.
// Numbers below 1e12 are treated as seconds.
func ParseTimestamp(v interface{}) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return numericToMillis(val)
	case int64:
		return numericToMillis(float64(val))
	case int:
		return numericToMillis(float64(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return numericToMillis(f)
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		return parsed.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("invalid time value of type %T", v)
	}
}

func numericToMillis(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid time %v", f)
	}
	if f < secondsThreshold && f > -secondsThreshold {
		f *= 1000
	}
	if f > maxTimestampMS || f < -maxTimestampMS {
		return 0, fmt.Errorf("time %v out of range", f)
	}
	return int64(f), nil
}

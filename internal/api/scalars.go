package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
	"time"

	"givto/internal/validation"
)

// Timestamp is the Date scalar: milliseconds since the Unix epoch, UTC
type Timestamp int64

// NewTimestamp converts a time to the Date scalar
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// TimestampPtr converts an optional time
func TimestampPtr(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	ts := NewTimestamp(*t)
	return &ts
}

// Time converts the scalar back to a UTC time
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

// MarshalJSON writes the scalar as a JSON integer
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(ts), 10)), nil
}

// ParseTimestamp parses a Date value. Integers, integral numbers and base-10
// integer strings are accepted; null or an absent value yields nil. Any other
// input fails with a validation error on field.
func ParseTimestamp(field string, raw json.RawMessage) (*time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	invalid := validation.ValidationError{Field: field, Message: "must be an integer number of milliseconds since the Unix epoch"}

	var ms int64
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, invalid
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, invalid
		}
		ms = n

	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, ok := parseIntegralNumber(string(trimmed))
		if !ok {
			return nil, invalid
		}
		ms = n

	default:
		return nil, invalid
	}

	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// parseIntegralNumber accepts JSON numbers such as 12, 12.0 or 1.2e1 whose
// value is a whole number within int64 range
func parseIntegralNumber(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if !json.Valid([]byte(s)) {
		return 0, false
	}
	f, _, err := big.ParseFloat(s, 10, 128, big.ToNearestEven)
	if err != nil || !f.IsInt() {
		return 0, false
	}
	n, accuracy := f.Int64()
	if accuracy != big.Exact {
		return 0, false
	}
	return n, true
}

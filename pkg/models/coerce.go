package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Values read back from storage or imported from loosely typed documents are
// not schema enforced. The helpers below never fail: anything that cannot be
// understood becomes the zero value.

// CoerceDecimal converts v to a decimal, returning zero for missing or non-numeric input.
func CoerceDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return CoerceDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return CoerceDecimal(string(x))
	case []byte:
		return CoerceDecimal(string(x))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// CoerceTime converts v to an instant. Strings are parsed as RFC 3339 (or the
// SQLite driver's layouts), numbers as epoch milliseconds, and maps as
// Firestore timestamps. Anything else yields the zero time.
func CoerceTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		if x == nil {
			return time.Time{}
		}
		return *x
	case []byte:
		return CoerceTime(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}
		}
		return time.UnixMilli(int64(x))
	case int64:
		return time.UnixMilli(x)
	case json.Number:
		return CoerceTime(string(x))
	case map[string]any:
		sec, ok := firstPresent(x, "seconds", "_seconds")
		if !ok {
			return time.Time{}
		}
		nsec, _ := firstPresent(x, "nanoseconds", "_nanoseconds")
		s := CoerceDecimal(sec)
		if s.IsZero() && CoerceString(sec) != "0" {
			return time.Time{}
		}
		return time.Unix(s.IntPart(), CoerceDecimal(nsec).IntPart())
	}
	return time.Time{}
}

// CoerceString converts scalars to their string form and everything else to "".
func CoerceString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

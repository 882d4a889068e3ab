package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a single entity row keyed by field name. Values keep whatever
// type the backend produced; use the accessors to read them.
type Record map[string]any

// Has reports whether key is present with a non-empty value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	return ToString(v) != ""
}

// String returns the value of key as a string ("" when absent).
func (r Record) String(key string) string {
	return ToString(r[key])
}

// Int64 returns the value of key as an integer (0 when absent or not numeric).
func (r Record) Int64(key string) int64 {
	i, _ := ToInt64(r[key])
	return i
}

// ID returns the record's "id" field.
func (r Record) ID() int64 {
	return r.Int64("id")
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies all fields of other into r, overwriting existing keys.
func (r Record) Merge(other Record) Record {
	for k, v := range other {
		r[k] = v
	}
	return r
}

// ToString renders a scalar record value the way the host's API would.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return t.Format(DateTimeLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(DateTimeLayout)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ToInt64 converts a record value into an integer.
func ToInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), t == math.Trunc(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		s := strings.TrimSpace(ToString(t))
		if s == "" {
			return 0, false
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
}

// DateTimeLayout is the host's date-time wire format.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateLayout is the host's date wire format.
const DateLayout = "2006-01-02"

// ParseTime accepts the host's date and date-time formats as well as RFC 3339.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	}
	s := strings.TrimSpace(ToString(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateTimeLayout, time.RFC3339Nano, DateLayout, "20060102150405"} {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

package types

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var scheduleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ScheduleTime is a scheduling timestamp supplied by a caller as epoch seconds
// or a date string. An unparseable value decodes to the zero time.
type ScheduleTime struct {
	time.Time
}

func (s *ScheduleTime) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, _ := ParseScheduleTime(raw)
	s.Time = t
	return nil
}

func (s ScheduleTime) MarshalJSON() ([]byte, error) {
	if s.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(s.Time.UTC().Format(time.RFC3339))
}

// ParseScheduleTime converts the accepted representations into a time.
// The boolean is false when nothing usable was found.
func ParseScheduleTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, !val.IsZero()
	case ScheduleTime:
		return val.Time, !val.IsZero()
	case *ScheduleTime:
		if val == nil {
			return time.Time{}, false
		}
		return val.Time, !val.IsZero()
	case int:
		return time.Unix(int64(val), 0), true
	case int64:
		return time.Unix(val, 0), true
	case float64:
		return time.Unix(int64(val), 0), true
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0), true
		}
		for _, layout := range scheduleLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// NormalizeScheduleTime returns the canonical timestamp for v, falling back to now.
func NormalizeScheduleTime(v any, now time.Time) time.Time {
	if t, ok := ParseScheduleTime(v); ok {
		return CanonicalTime(t)
	}
	return CanonicalTime(now)
}

// CanonicalTime is the stored form of every queue timestamp: UTC, whole seconds.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

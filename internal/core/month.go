package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthKey identifies a calendar month. Its string form "YYYY-MM" sorts
// chronologically.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return MonthKey{}, ErrInvalidMonth
	}
	return MonthKeyOf(t), nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label is the chart axis form "MM/YYYY".
func (k MonthKey) Label() string {
	return fmt.Sprintf("%02d/%04d", int(k.Month), k.Year)
}

// IsZero reports whether k is the zero key.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

// Includes reports whether the record falls in k. Comparison is exact
// year+month equality.
func (k MonthKey) Includes(e Entry) bool {
	m, ok := e.Month()
	return ok && m == k
}

// MonthOf buckets a record by its date, or by createdAt when the date is
// empty. A non-empty date that does not parse is not bucketed.
func MonthOf(date string, createdAt time.Time) (MonthKey, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		if createdAt.IsZero() {
			return MonthKey{}, false
		}
		return MonthKeyOf(createdAt), true
	}
	t, err := ParseDate(date)
	if err != nil {
		return MonthKey{}, false
	}
	return MonthKeyOf(t), true
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

package models

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form.
type Date string

// ParseDate accepts a date ("2006-01-02") or an RFC3339 timestamp, which is
// reduced to its UTC calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date(t.UTC().Format(DateLayout)), nil
	}
	return "", fmt.Errorf("dueDate must be YYYY-MM-DD or RFC3339, got %q", s)
}

// Time returns midnight UTC of the date.
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

func DatePtr(d Date) *Date { return &d }

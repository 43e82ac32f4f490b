package model

import (
	"fmt"
	"time"
)

const (
	DayKeyLayout        = "2006-01-02"
	DayKeyCompactLayout = "20060102"
)

// DayKey identifies a business day. Two requests carrying the same DayKey
// must observe the same ledger entry.
type DayKey string

func NewDayKey(t time.Time) DayKey {
	return DayKey(t.Format(DayKeyLayout))
}

func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", s, err)
	}
	return NewDayKey(t), nil
}

func (d DayKey) String() string {
	return string(d)
}

func (d DayKey) Valid() bool {
	_, err := time.Parse(DayKeyLayout, string(d))
	return err == nil
}

// Compact renders the key without separators, e.g. 20261019.
func (d DayKey) Compact() string {
	t, err := time.Parse(DayKeyLayout, string(d))
	if err != nil {
		return string(d)
	}
	return t.Format(DayKeyCompactLayout)
}

// Start returns midnight of the day in loc.
func (d DayKey) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, string(d), loc)
}

func (d DayKey) Next() DayKey {
	return d.shift(1)
}

func (d DayKey) Prev() DayKey {
	return d.shift(-1)
}

func (d DayKey) shift(days int) DayKey {
	t, err := time.Parse(DayKeyLayout, string(d))
	if err != nil {
		return d
	}
	return NewDayKey(t.AddDate(0, 0, days))
}

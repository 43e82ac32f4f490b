// Package clock maps instants to business days.
package clock

import (
	"fmt"
	"time"

	"medqueue/pkg/model"
)

type Clock interface {
	Today() model.DayKey
	DayOf(t time.Time) model.DayKey
	// NextCutover is the first instant after t at which Today changes.
	NextCutover(t time.Time) time.Time
	Now() time.Time
}

// CutoverClock treats instants before cutoverHour in loc as the previous day.
type CutoverClock struct {
	loc         *time.Location
	cutoverHour int
	now         func() time.Time
}

type Option func(*CutoverClock)

// WithNow overrides the time source.
func WithNow(now func() time.Time) Option {
	return func(c *CutoverClock) {
		c.now = now
	}
}

func New(loc *time.Location, cutoverHour int, opts ...Option) (*CutoverClock, error) {
	if loc == nil {
		loc = time.UTC
	}
	if cutoverHour < 0 || cutoverHour > 23 {
		return nil, fmt.Errorf("cutover hour must be between 0 and 23, got %d", cutoverHour)
	}

	c := &CutoverClock{
		loc:         loc,
		cutoverHour: cutoverHour,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CutoverClock) Now() time.Time {
	return c.now()
}

func (c *CutoverClock) Today() model.DayKey {
	return c.DayOf(c.now())
}

func (c *CutoverClock) DayOf(t time.Time) model.DayKey {
	local := t.In(c.loc)
	if local.Hour() < c.cutoverHour {
		local = local.AddDate(0, 0, -1)
	}
	return model.NewDayKey(local)
}

func (c *CutoverClock) NextCutover(t time.Time) time.Time {
	local := t.In(c.loc)
	cutover := time.Date(local.Year(), local.Month(), local.Day(), c.cutoverHour, 0, 0, 0, c.loc)
	if !cutover.After(local) {
		cutover = time.Date(local.Year(), local.Month(), local.Day()+1, c.cutoverHour, 0, 0, 0, c.loc)
	}
	return cutover
}

func (c *CutoverClock) Location() *time.Location {
	return c.loc
}

func (c *CutoverClock) CutoverHour() int {
	return c.cutoverHour
}

package gametime

import (
	"fmt"
	"sync"
)

const (
	DaysPerSeason  = 28
	SeasonsPerYear = 4
	DaysPerYear    = DaysPerSeason * SeasonsPerYear
)

var seasonNames = [SeasonsPerYear]string{"spring", "summer", "fall", "winter"}

// Date is a calendar position derived from the number of days played.
// Day 1 is spring 1 of year 1.
type Date struct {
	Year       int
	Season     int // 0-3
	DayOfMonth int // 1-28
}

// DateFromDaysPlayed converts a 1-based day count into a calendar date.
// Values below 1 are treated as day 1.
func DateFromDaysPlayed(days int) Date {
	if days < 1 {
		days = 1
	}
	idx := days - 1
	return Date{
		Year:       idx/DaysPerYear + 1,
		Season:     (idx % DaysPerYear) / DaysPerSeason,
		DayOfMonth: idx%DaysPerSeason + 1,
	}
}

// SeasonName returns the lowercase season name.
func (d Date) SeasonName() string {
	if d.Season < 0 || d.Season >= SeasonsPerYear {
		return "unknown"
	}
	return seasonNames[d.Season]
}

// IsFirstDayOfYear reports whether d is spring 1.
func (d Date) IsFirstDayOfYear() bool {
	return d.Season == 0 && d.DayOfMonth == 1
}

func (d Date) String() string {
	return fmt.Sprintf("%s %d, year %d", d.SeasonName(), d.DayOfMonth, d.Year)
}

// Calendar tracks the shared day counter the mines key their seeds on.
type Calendar struct {
	daysPlayed int
	mu         sync.RWMutex
}

// NewCalendar starts a calendar at the given day (1-based).
func NewCalendar(daysPlayed int) *Calendar {
	if daysPlayed < 1 {
		daysPlayed = 1
	}
	return &Calendar{daysPlayed: daysPlayed}
}

// DaysPlayed returns the current day number.
func (c *Calendar) DaysPlayed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.daysPlayed
}

// Today returns the current date.
func (c *Calendar) Today() Date {
	return DateFromDaysPlayed(c.DaysPlayed())
}

// AdvanceDay moves to the next day and reports whether a new year started.
func (c *Calendar) AdvanceDay() (newYear bool) {
	c.mu.Lock()
	c.daysPlayed++
	days := c.daysPlayed
	c.mu.Unlock()
	return DateFromDaysPlayed(days).IsFirstDayOfYear()
}

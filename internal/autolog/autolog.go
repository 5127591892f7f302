// Package autolog decides when to log a scheduled dose of water.
package autolog

import (
	"fmt"
	"math"
	"time"

	"hydrotrack/internal/preferences"
	"hydrotrack/internal/shared"
)

const (
	// Dose is the amount in liters logged by each automatic entry.
	Dose = 0.2
	// MinInterval is the minimum gap between two automatic entries on the same day.
	MinInterval = time.Hour
	// TickInterval is how often the runner re-evaluates the schedule.
	TickInterval = time.Minute
)

// Position of an instant relative to the configured window.
type Position int

const (
	Before Position = iota
	Inside
	After
)

// Locate reports where now falls relative to the window. Both ends are
// inclusive. A window whose start is later than its end spans midnight; the
// gap between end and start then counts as Before.
func Locate(cfg preferences.AutoLog, now time.Time) (Position, error) {
	start, err := preferences.ParseClock(cfg.StartTime)
	if err != nil {
		return Before, err
	}
	end, err := preferences.ParseClock(cfg.EndTime)
	if err != nil {
		return Before, err
	}
	cur := now.Hour()*60 + now.Minute()

	if start <= end {
		switch {
		case cur < start:
			return Before, nil
		case cur > end:
			return After, nil
		}
		return Inside, nil
	}
	if cur >= start || cur <= end {
		return Inside, nil
	}
	return Before, nil
}

// Decide reports whether a dose is due at now.
func Decide(cfg preferences.AutoLog, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	pos, err := Locate(cfg, now)
	if err != nil || pos != Inside {
		return false
	}
	if !sameOccurrence(cfg, now) {
		return true
	}
	return now.UnixMilli()-cfg.LastLogTimestamp >= MinInterval.Milliseconds()
}

// sameOccurrence reports whether the last dose belongs to the window now is
// in. A daytime window restarts each calendar day; an overnight window
// restarts at its start time and runs past midnight.
func sameOccurrence(cfg preferences.AutoLog, now time.Time) bool {
	last := time.UnixMilli(cfg.LastLogTimestamp).In(now.Location())
	start, _ := preferences.ParseClock(cfg.StartTime)
	end, _ := preferences.ParseClock(cfg.EndTime)
	if start <= end {
		return shared.DateKey(last) == shared.DateKey(now)
	}

	opened := time.Date(now.Year(), now.Month(), now.Day(), start/60, start%60, 0, 0, now.Location())
	if now.Hour()*60+now.Minute() < start {
		opened = opened.AddDate(0, 0, -1)
	}
	return !last.Before(opened)
}

// Status describes the scheduler state for display.
func Status(cfg preferences.AutoLog, now time.Time) string {
	if !cfg.Enabled {
		return "Auto-logger is paused."
	}
	pos, err := Locate(cfg, now)
	if err != nil {
		return "Auto-logger is misconfigured."
	}
	switch pos {
	case Before:
		return fmt.Sprintf("Starts at %s", cfg.StartTime)
	case After:
		return "Done for the day."
	}
	if cfg.LastLogTimestamp > 0 && !Decide(cfg, now) {
		remaining := MinInterval.Milliseconds() - (now.UnixMilli() - cfg.LastLogTimestamp)
		minutes := int(math.Ceil(float64(remaining) / 60000))
		return fmt.Sprintf("Next %dml in ~%d mins", int(math.Round(Dose*1000)), minutes)
	}
	return "Running..."
}

// Package stats derives totals, averages and chart series from intake entries.
//
// Every function here is pure: the result depends only on the entries, the
// goal and the reference instant. Calendar bucketing uses the wall clock of
// the location carried by now, so the same entries can land in different days
// for users in different time zones.
package stats

import (
	"math"
	"time"

	"hydrotrack/internal/intake"
)

// Summary holds the headline numbers shown on the dashboard.
type Summary struct {
	TodayTotal       float64 `json:"todayTotal"`
	TodayPercentage  int     `json:"todayPercentage"`
	WeekAvg          float64 `json:"weekAvg"`
	MonthTotal       float64 `json:"monthTotal"`
	CurrentWeekTotal float64 `json:"currentWeekTotal"`
	DaysPassedInWeek int     `json:"daysPassedInWeek"`
	Goal             float64 `json:"goal"`
	GoalReached      bool    `json:"goalReached"`
}

// Compute derives the summary for now.
func Compute(entries []intake.Entry, goal float64, now time.Time) Summary {
	loc := now.Location()
	startOfWeek := StartOfWeek(now).UnixMilli()
	y, m, _ := now.Date()

	var s Summary
	for _, e := range entries {
		t := e.Time(loc)
		if sameDay(t, now) {
			s.TodayTotal += e.Amount
		}
		if e.Timestamp >= startOfWeek {
			s.CurrentWeekTotal += e.Amount
		}
		if ey, em, _ := t.Date(); ey == y && em == m {
			s.MonthTotal += e.Amount
		}
	}

	s.Goal = goal
	s.TodayPercentage = Percentage(s.TodayTotal, goal)
	s.GoalReached = s.TodayPercentage >= 100
	s.DaysPassedInWeek = int(now.Weekday()) + 1
	if s.DaysPassedInWeek > 0 {
		s.WeekAvg = s.CurrentWeekTotal / float64(s.DaysPassedInWeek)
	}
	return s
}

// TodayTotal sums the entries dated on now's calendar day.
func TodayTotal(entries []intake.Entry, now time.Time) float64 {
	var total float64
	for _, e := range entries {
		if sameDay(e.Time(now.Location()), now) {
			total += e.Amount
		}
	}
	return total
}

// Percentage is round(total / goal * 100). It is not clamped, so values above
// 100 signal over-achievement. A non-positive goal yields 0.
func Percentage(total, goal float64) int {
	if goal <= 0 {
		return 0
	}
	return int(math.Round(total / goal * 100))
}

// ProgressWidth clamps a percentage to the 0..100 range of a progress bar.
func ProgressWidth(percentage int) int {
	return min(max(percentage, 0), 100)
}

// Encouragement is the line shown under the progress bar.
func Encouragement(s Summary) string {
	if s.GoalReached {
		return "Goal reached! Great job!"
	}
	return "Keep drinking! You're doing great."
}

// StartOfWeek is local midnight of the Sunday that starts now's week.
func StartOfWeek(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package stats

import (
	"fmt"
	"time"

	"hydrotrack/internal/intake"
)

// Point is one bar or point of a chart series.
type Point struct {
	Label string  `json:"label"`
	Start string  `json:"start"` // YYYY-MM-DD of the first day in the bucket
	Value float64 `json:"value"`
}

// Kind selects a series.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
)

// Series builds the series of the given kind. Unknown kinds report ok == false.
func Series(kind Kind, entries []intake.Entry, now time.Time) (points []Point, ok bool) {
	switch kind {
	case Daily:
		return DailySeries(entries, now), true
	case Weekly:
		return WeeklySeries(entries, now), true
	case Monthly:
		return MonthlySeries(entries, now), true
	}
	return nil, false
}

// DailySeries covers the last 7 calendar days including today, oldest first,
// labelled with the abbreviated weekday.
func DailySeries(entries []intake.Entry, now time.Time) []Point {
	loc := now.Location()
	y, m, d := now.Date()
	points := make([]Point, 0, 7)
	for i := 6; i >= 0; i-- {
		day := time.Date(y, m, d-i, 0, 0, 0, 0, loc)
		var total float64
		for _, e := range entries {
			if sameDay(e.Time(loc), day) {
				total += e.Amount
			}
		}
		points = append(points, Point{Label: day.Format("Mon"), Start: day.Format("2006-01-02"), Value: total})
	}
	return points
}

// WeeklySeries covers the last 4 rolling 7-day windows, oldest first. Each
// window ends on a day stepping back 7 days per bucket and starts 6 days
// before it; the label is day/month of the start.
func WeeklySeries(entries []intake.Entry, now time.Time) []Point {
	loc := now.Location()
	y, m, d := now.Date()
	points := make([]Point, 0, 4)
	for i := 3; i >= 0; i-- {
		endDay := d - i*7
		start := time.Date(y, m, endDay-6, 0, 0, 0, 0, loc)
		end := time.Date(y, m, endDay, 23, 59, 59, int(999*time.Millisecond), loc)
		lo, hi := start.UnixMilli(), end.UnixMilli()

		var total float64
		for _, e := range entries {
			ey, em, ed := e.Time(loc).Date()
			midnight := time.Date(ey, em, ed, 0, 0, 0, 0, loc).UnixMilli()
			if midnight >= lo && midnight <= hi {
				total += e.Amount
			}
		}
		points = append(points, Point{
			Label: fmt.Sprintf("%d/%d", start.Day(), int(start.Month())),
			Start: start.Format("2006-01-02"),
			Value: total,
		})
	}
	return points
}

// MonthlySeries covers the last 6 calendar months including the current one,
// oldest first, labelled with the abbreviated month name.
func MonthlySeries(entries []intake.Entry, now time.Time) []Point {
	loc := now.Location()
	y, m, _ := now.Date()
	points := make([]Point, 0, 6)
	for i := 5; i >= 0; i-- {
		first := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, loc)
		fy, fm, _ := first.Date()
		var total float64
		for _, e := range entries {
			if ey, em, _ := e.Time(loc).Date(); ey == fy && em == fm {
				total += e.Amount
			}
		}
		points = append(points, Point{Label: first.Format("Jan"), Start: first.Format("2006-01-02"), Value: total})
	}
	return points
}

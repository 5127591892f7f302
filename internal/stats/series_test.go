package stats

import (
	"testing"
	"time"

	"hydrotrack/internal/intake"
)

func labels(points []Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Label
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDailySeries(t *testing.T) {
	now := at(2026, time.October, 16, 14, 0)
	entries := []intake.Entry{
		entry("a", 0.5, at(2026, time.October, 16, 8, 0)),
		entry("b", 0.25, at(2026, time.October, 16, 9, 0)),
		entry("c", 1, at(2026, time.October, 10, 23, 59)),
		entry("d", 9, at(2026, time.October, 9, 12, 0)), // outside the window
	}

	points := DailySeries(entries, now)
	want := []string{"Sat", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri"}
	if !equalStrings(labels(points), want) {
		t.Fatalf("Expected labels %v, got %v", want, labels(points))
	}
	if !almostEqual(points[0].Value, 1) {
		t.Errorf("Expected Saturday total 1, got %v", points[0].Value)
	}
	if !almostEqual(points[6].Value, 0.75) {
		t.Errorf("Expected today total 0.75, got %v", points[6].Value)
	}
	if points[0].Start != "2026-10-10" || points[6].Start != "2026-10-16" {
		t.Errorf("Unexpected bucket dates %s..%s", points[0].Start, points[6].Start)
	}
}

func TestWeeklySeries(t *testing.T) {
	now := at(2026, time.October, 16, 14, 0)
	entries := []intake.Entry{
		entry("a", 1, at(2026, time.October, 10, 0, 0)),   // first day of the newest window
		entry("b", 2, at(2026, time.October, 9, 23, 59)),  // last day of the previous window
		entry("c", 3, at(2026, time.September, 19, 6, 0)), // first day of the oldest window
		entry("d", 4, at(2026, time.September, 18, 6, 0)), // before every window
		entry("e", 5, at(2026, time.October, 16, 23, 0)),  // later today
	}

	points := WeeklySeries(entries, now)
	want := []string{"19/9", "26/9", "3/10", "10/10"}
	if !equalStrings(labels(points), want) {
		t.Fatalf("Expected labels %v, got %v", want, labels(points))
	}
	values := []float64{3, 0, 2, 6}
	for i, v := range values {
		if !almostEqual(points[i].Value, v) {
			t.Errorf("bucket %s: expected %v, got %v", points[i].Label, v, points[i].Value)
		}
	}
}

func TestMonthlySeries(t *testing.T) {
	t.Run("CurrentYear", func(t *testing.T) {
		now := at(2026, time.October, 16, 14, 0)
		entries := []intake.Entry{
			entry("a", 1, at(2026, time.May, 1, 0, 0)),
			entry("b", 2, at(2026, time.October, 31, 23, 0)),
			entry("c", 7, at(2025, time.October, 5, 0, 0)),
		}
		points := MonthlySeries(entries, now)
		want := []string{"May", "Jun", "Jul", "Aug", "Sep", "Oct"}
		if !equalStrings(labels(points), want) {
			t.Fatalf("Expected labels %v, got %v", want, labels(points))
		}
		if points[0].Value != 1 || points[5].Value != 2 {
			t.Errorf("Unexpected values %+v", points)
		}
	})

	t.Run("WrapsYear", func(t *testing.T) {
		now := at(2026, time.February, 15, 9, 0)
		points := MonthlySeries(nil, now)
		want := []string{"Sep", "Oct", "Nov", "Dec", "Jan", "Feb"}
		if !equalStrings(labels(points), want) {
			t.Errorf("Expected labels %v, got %v", want, labels(points))
		}
		if points[0].Start != "2025-09-01" {
			t.Errorf("Expected oldest bucket to start 2025-09-01, got %s", points[0].Start)
		}
	})

	t.Run("MonthEnd", func(t *testing.T) {
		// Stepping back from the 31st must not skip short months.
		now := at(2026, time.March, 31, 9, 0)
		points := MonthlySeries(nil, now)
		want := []string{"Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}
		if !equalStrings(labels(points), want) {
			t.Errorf("Expected labels %v, got %v", want, labels(points))
		}
	})
}

func TestSeries(t *testing.T) {
	now := at(2026, time.October, 16, 14, 0)
	for kind, n := range map[Kind]int{Daily: 7, Weekly: 4, Monthly: 6} {
		points, ok := Series(kind, nil, now)
		if !ok || len(points) != n {
			t.Errorf("%s: expected %d points, got %d (ok=%v)", kind, n, len(points), ok)
		}
	}
	if _, ok := Series("yearly", nil, now); ok {
		t.Error("Expected unknown kind to be rejected")
	}
}

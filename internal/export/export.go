// Package export writes intake history and chart series to an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"hydrotrack/internal/intake"
	"hydrotrack/internal/stats"

	"github.com/xuri/excelize/v2"
)

const entriesSheet = "Entries"

// Report is everything that goes into one workbook.
type Report struct {
	Entries  []intake.Entry
	Summary  stats.Summary
	Daily    []stats.Point
	Weekly   []stats.Point
	Monthly  []stats.Point
	Location *time.Location
}

// Write renders r as an XLSX workbook into w.
func Write(w io.Writer, r Report) error {
	f, err := Build(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Build creates the workbook. The caller must Close it.
func Build(r Report) (*excelize.File, error) {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	rows := [][]any{{"ID", "Time", "Liters"}}
	for _, e := range intake.NewestFirst(r.Entries) {
		rows = append(rows, []any{e.ID, e.Time(loc).Format("2006-01-02 15:04"), e.Amount})
	}
	if err := writeRows(f, entriesSheet, rows); err != nil {
		f.Close()
		return nil, err
	}

	s := r.Summary
	summary := [][]any{
		{"Metric", "Value"},
		{"Today (L)", s.TodayTotal},
		{"Goal (L)", s.Goal},
		{"Progress (%)", s.TodayPercentage},
		{"Weekly average (L/day)", s.WeekAvg},
		{"This week (L)", s.CurrentWeekTotal},
		{"This month (L)", s.MonthTotal},
	}
	if err := addSheet(f, "Summary", summary); err != nil {
		f.Close()
		return nil, err
	}

	for _, series := range []struct {
		name   string
		points []stats.Point
	}{
		{"Daily", r.Daily},
		{"Weekly", r.Weekly},
		{"Monthly", r.Monthly},
	} {
		rows := [][]any{{"Label", "Start", "Liters"}}
		for _, p := range series.points {
			rows = append(rows, []any{p.Label, p.Start, p.Value})
		}
		if err := addSheet(f, series.name, rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

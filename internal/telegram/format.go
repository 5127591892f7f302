package telegram

import (
	"fmt"
	"math"
	"strings"
	"time"

	"hydrotrack/internal/intake"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/plant"
	"hydrotrack/internal/stats"
)

const (
	historyLimit = 10
	barWidth     = 12
)

func formatLiters(v float64) string {
	return fmt.Sprintf("%.2fL", v)
}

func progressBar(percentage int) string {
	filled := stats.ProgressWidth(percentage) / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func formatStats(s stats.Summary) string {
	var sb strings.Builder
	sb.WriteString("💧 *Today's Hydration*\n\n")
	sb.WriteString(fmt.Sprintf("*%s* / %s (%d%%)\n", formatLiters(s.TodayTotal), formatLiters(s.Goal), s.TodayPercentage))
	sb.WriteString(fmt.Sprintf("`%s`\n", progressBar(s.TodayPercentage)))
	sb.WriteString(fmt.Sprintf("_%s_\n\n", stats.Encouragement(s)))
	sb.WriteString(fmt.Sprintf("📅 *Weekly avg:* %s/day\n", formatLiters(s.WeekAvg)))
	sb.WriteString(fmt.Sprintf("🗓 *This month:* %s\n", formatLiters(s.MonthTotal)))
	return sb.String()
}

// formatHistory lists the newest entries with their ids for /delete.
func formatHistory(entries []intake.Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return "📜 *History*\n\n_No entries yet_"
	}
	var sb strings.Builder
	sb.WriteString("📜 *History*\n\n")
	sorted := intake.NewestFirst(entries)
	for i, e := range sorted {
		if i == historyLimit {
			sb.WriteString(fmt.Sprintf("_…and %d older entries_\n", len(sorted)-historyLimit))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s · *%s*\n  `%s`\n", e.Time(loc).Format("Jan 2 15:04"), formatLiters(e.Amount), e.ID))
	}
	return sb.String()
}

func formatSeries(kind stats.Kind, points []stats.Point) string {
	maxValue := 0.0
	for _, p := range points {
		maxValue = math.Max(maxValue, p.Value)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *%s intake*\n```\n", strings.ToUpper(string(kind[:1]))+string(kind[1:])))
	for _, p := range points {
		n := 0
		if maxValue > 0 {
			n = int(math.Round(p.Value / maxValue * barWidth))
		}
		sb.WriteString(fmt.Sprintf("%-5s %-*s %s\n", p.Label, barWidth, strings.Repeat("▇", n), formatLiters(p.Value)))
	}
	sb.WriteString("```")
	return sb.String()
}

func formatPlant(st plant.State, justGrew bool) string {
	stage := plant.StageFor(st.Height)
	var sb strings.Builder
	if justGrew {
		sb.WriteString("🎉 *Your plant just grew!*\n\n")
	}
	sb.WriteString(fmt.Sprintf("🌱 *Plant height:* %d\n", st.Height))
	switch {
	case stage.Flowering:
		sb.WriteString(fmt.Sprintf("🌸 Flowering with %d pairs of leaves\n", stage.Leaves))
	case stage.Leaves > 0:
		sb.WriteString(fmt.Sprintf("🍃 %d pairs of leaves\n", stage.Leaves))
	default:
		sb.WriteString("🌰 Just a seedling\n")
	}
	if st.LastGrowthDate != "" {
		sb.WriteString(fmt.Sprintf("_Last grew on %s_\n", st.LastGrowthDate))
	}
	sb.WriteString("\nHit your daily goal to help it grow.")
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.Health) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Assistant Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
		if d.Failures > 0 {
			sb.WriteString(fmt.Sprintf(", %d failed", d.Failures))
		}
		sb.WriteString(")\n")
	}

	sb.WriteString("\n💧 *Tracker State*\n")
	sb.WriteString(fmt.Sprintf("• Entries: %d, plant height %d\n", health.Entries, health.PlantHeight))
	for _, u := range health.State {
		if u.Present {
			sb.WriteString(fmt.Sprintf("• `%s`: %d B\n", u.Key, u.Bytes))
		} else {
			sb.WriteString(fmt.Sprintf("• `%s`: default\n", u.Key))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	return sb.String()
}

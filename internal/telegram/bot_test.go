package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"hydrotrack/internal/app"
	"hydrotrack/internal/assistant"
	"hydrotrack/internal/config"
	"hydrotrack/internal/intake"
	"hydrotrack/internal/llm"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/plant"
	"hydrotrack/internal/shared"
	"hydrotrack/internal/stats"
	"hydrotrack/internal/storage"
)

func newTestBot(t *testing.T) (*Bot, *app.App, *shared.FixedClock) {
	t.Helper()
	clock := shared.NewFixedClock(time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC))
	a := app.New(context.Background(), storage.NewMemoryStore(), clock, nil)
	t.Cleanup(a.Close)
	sessions := NewSessionRepository(func() *assistant.Conversation {
		return assistant.New(stubModel{}, nil, nil, clock)
	}, time.Hour, clock)
	return &Bot{app: a, sessions: sessions, cfg: &config.Config{}}, a, clock
}

type stubModel struct{}

func (stubModel) StartChat(string) llm.ChatSession { return stubSession{} }

type stubSession struct{}

func (stubSession) SendMessage(ctx context.Context, text string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: "ok"}, nil
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("Log", func(t *testing.T) {
		b, a, _ := newTestBot(t)
		r := b.handleCommand(ctx, 1, "log", "0.5")
		if !strings.Contains(r.Text, "Logged *0.50L*") || !strings.Contains(r.Text, "(20%)") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
		if len(a.Entries()) != 1 {
			t.Errorf("Expected 1 entry, got %d", len(a.Entries()))
		}

		if r := b.handleCommand(ctx, 1, "log", "-1"); !strings.Contains(r.Text, "greater than zero") {
			t.Errorf("Expected rejection, got %q", r.Text)
		}
		if r := b.handleCommand(ctx, 1, "log", "lots"); !strings.HasPrefix(r.Text, "Usage") {
			t.Errorf("Expected usage text, got %q", r.Text)
		}
	})

	t.Run("LogAnnouncesGrowth", func(t *testing.T) {
		b, _, _ := newTestBot(t)
		b.handleCommand(ctx, 1, "goal", "1")
		r := b.handleCommand(ctx, 1, "log", "1L")
		if !strings.Contains(r.Text, "plant grew to height *2*") {
			t.Errorf("Expected growth announcement, got %q", r.Text)
		}
		r = b.handleCommand(ctx, 1, "log", "0.2")
		if strings.Contains(r.Text, "plant grew") {
			t.Errorf("Expected a single growth announcement, got %q", r.Text)
		}
	})

	t.Run("DeleteAndHistory", func(t *testing.T) {
		b, a, _ := newTestBot(t)
		e, _, _ := a.AddEntry(ctx, 0.3)

		if r := b.handleCommand(ctx, 1, "history", ""); !strings.Contains(r.Text, e.ID) {
			t.Errorf("Expected history to list the id, got %q", r.Text)
		}
		if r := b.handleCommand(ctx, 1, "delete", "nope"); !strings.Contains(r.Text, "No entry") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
		if r := b.handleCommand(ctx, 1, "delete", e.ID); !strings.Contains(r.Text, "deleted") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
		if len(a.Entries()) != 0 {
			t.Error("Expected the entry to be deleted")
		}
	})

	t.Run("ClearAsksForConfirmation", func(t *testing.T) {
		b, a, _ := newTestBot(t)
		a.AddEntry(ctx, 0.3)
		r := b.handleCommand(ctx, 1, "clear", "")
		if r.Keyboard == nil || len(r.Keyboard.InlineKeyboard[0]) != 2 {
			t.Fatalf("Expected a confirmation keyboard, got %+v", r.Keyboard)
		}
		if len(a.Entries()) != 1 {
			t.Error("Expected nothing to be cleared before confirmation")
		}
	})

	t.Run("Goal", func(t *testing.T) {
		b, a, _ := newTestBot(t)
		if r := b.handleCommand(ctx, 1, "goal", ""); !strings.Contains(r.Text, "2.50L") {
			t.Errorf("Expected the default goal, got %q", r.Text)
		}
		b.handleCommand(ctx, 1, "goal", "3")
		if a.Goal() != 3 {
			t.Errorf("Expected goal 3, got %v", a.Goal())
		}
		if r := b.handleCommand(ctx, 1, "goal", "0"); !strings.Contains(r.Text, "greater than zero") {
			t.Errorf("Expected rejection, got %q", r.Text)
		}
	})

	t.Run("AutoLog", func(t *testing.T) {
		b, a, _ := newTestBot(t)
		if r := b.handleCommand(ctx, 1, "autolog", "window 08:00 16:00"); !strings.Contains(r.Text, "08:00 to 16:00") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
		r := b.handleCommand(ctx, 1, "autolog", "on")
		if !a.AutoLog().Enabled || !strings.Contains(r.Text, "is on") || !strings.Contains(r.Text, "Running...") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
		if r := b.handleCommand(ctx, 1, "autolog", "window 07:00 16:00"); !strings.Contains(r.Text, "off before") {
			t.Errorf("Expected the window edit to be refused, got %q", r.Text)
		}
		b.handleCommand(ctx, 1, "autolog", "off")
		if r := b.handleCommand(ctx, 1, "autolog", "window 7 16"); !strings.Contains(r.Text, "HH:MM") {
			t.Errorf("Expected a format hint, got %q", r.Text)
		}
	})

	t.Run("Chart", func(t *testing.T) {
		b, _, _ := newTestBot(t)
		if r := b.handleCommand(ctx, 1, "chart", "weekly"); !strings.HasPrefix(r.Text, "📊 *Weekly intake*") {
			t.Errorf("Unexpected chart %q", r.Text)
		}
		if r := b.handleCommand(ctx, 1, "chart", "yearly"); !strings.HasPrefix(r.Text, "Usage") {
			t.Errorf("Expected usage text, got %q", r.Text)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b, _, _ := newTestBot(t)
		if r := b.handleCommand(ctx, 7, "reset", ""); r.Text != assistant.ResetMessage {
			t.Errorf("Expected reset message, got %q", r.Text)
		}
		b.sessions = nil
		if r := b.handleCommand(ctx, 7, "reset", ""); !strings.Contains(r.Text, "not configured") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		b, _, _ := newTestBot(t)
		if r := b.handleCommand(ctx, 1, "dance", ""); !strings.Contains(r.Text, "/help") {
			t.Errorf("Unexpected reply %q", r.Text)
		}
	})
}

func TestAllowed(t *testing.T) {
	b := &Bot{cfg: &config.Config{TelegramAllowedUserIDs: []int64{42}}}
	if !b.allowed(42) || b.allowed(7) {
		t.Error("Expected only user 42 to be allowed")
	}
}

func TestSessionRepository(t *testing.T) {
	clock := shared.NewFixedClock(time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC))
	created := 0
	repo := NewSessionRepository(func() *assistant.Conversation {
		created++
		return assistant.New(stubModel{}, nil, nil, clock)
	}, time.Hour, clock)

	first := repo.Get(1)
	if repo.Get(1) != first {
		t.Error("Expected the same conversation within the TTL")
	}
	repo.Get(2)
	if created != 2 {
		t.Errorf("Expected one conversation per chat, got %d", created)
	}

	clock.Advance(30 * time.Minute)
	repo.Get(1)
	clock.Advance(45 * time.Minute)
	if removed := repo.CleanupExpired(); removed != 1 {
		t.Errorf("Expected only the idle chat to expire, got %d", removed)
	}
	if repo.Get(1) != first {
		t.Error("Expected a recently used conversation to survive")
	}

	clock.Advance(2 * time.Hour)
	if repo.Get(1) == first {
		t.Error("Expected an expired conversation to be replaced")
	}
}

func TestFormatStats(t *testing.T) {
	out := formatStats(stats.Summary{TodayTotal: 1.25, Goal: 2.5, TodayPercentage: 50, WeekAvg: 1.8, MonthTotal: 30})
	for _, want := range []string{"*1.25L* / 2.50L (50%)", "`█████░░░░░`", "1.80L/day", "30.00L"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if out := formatHistory(nil, time.UTC); !strings.Contains(out, "No entries yet") {
		t.Errorf("Unexpected empty history %q", out)
	}

	base := time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC)
	var entries []intake.Entry
	for i := 0; i < 12; i++ {
		entries = append(entries, intake.Entry{ID: string(rune('a' + i)), Amount: 0.25, Timestamp: base.Add(time.Duration(i) * time.Minute).UnixMilli()})
	}
	out := formatHistory(entries, time.UTC)
	if !strings.Contains(out, "Oct 16 08:11") {
		t.Errorf("Expected the newest entry, got:\n%s", out)
	}
	if strings.Contains(out, "`a`") {
		t.Errorf("Expected the oldest entries to be cut, got:\n%s", out)
	}
	if !strings.Contains(out, "2 older entries") {
		t.Errorf("Expected an overflow note, got:\n%s", out)
	}
}

func TestFormatSeries(t *testing.T) {
	out := formatSeries(stats.Monthly, []stats.Point{{Label: "Sep", Value: 10}, {Label: "Oct", Value: 5}, {Label: "Nov", Value: 0}})
	if !strings.Contains(out, "Sep   "+strings.Repeat("▇", barWidth)+" 10.00L") {
		t.Errorf("Expected a full bar for the maximum, got:\n%s", out)
	}
	if !strings.Contains(out, "Oct   "+strings.Repeat("▇", barWidth/2)) {
		t.Errorf("Expected a half bar, got:\n%s", out)
	}
}

func TestFormatPlant(t *testing.T) {
	if out := formatPlant(plant.Initial(), false); !strings.Contains(out, "seedling") {
		t.Errorf("Unexpected plant %q", out)
	}
	out := formatPlant(plant.State{Height: 11, LastGrowthDate: "2026-10-16"}, true)
	for _, want := range []string{"just grew", "height:* 11", "Flowering with 3 pairs", "2026-10-16"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
}

func TestFormatUsage(t *testing.T) {
	out := formatUsage([]metrics.DailyUsage{{Date: "2026-10-16", TotalPrompt: 100, TotalCompletion: 20, TotalExecution: 3, Failures: 1}}, metrics.Health{
		Goroutines:  5,
		Entries:     4,
		PlantHeight: 2,
		State:       []metrics.KeyUsage{{Key: "entries", Bytes: 310, Present: true}, {Key: "goal", Present: false}},
	})
	for _, want := range []string{"*2026-10-16*: 120 tokens (3 execs, 1 failed)", "Entries: 4, plant height 2", "`entries`: 310 B", "`goal`: default"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}
	if out := formatUsage(nil, metrics.Health{}); !strings.Contains(out, "No data yet") {
		t.Errorf("Expected an empty note, got:\n%s", out)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hydrotrack/internal/autolog"
	"hydrotrack/internal/intake"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/plant"
	"hydrotrack/internal/preferences"
	"hydrotrack/internal/shared"
	"hydrotrack/internal/stats"
	"hydrotrack/internal/storage"
)

// GrowthSignalDuration is how long JustGrew stays true after the plant grows.
const GrowthSignalDuration = 3500 * time.Millisecond

// ErrAutoLogActive is returned when the window is edited while the
// auto-logger is running.
var ErrAutoLogActive = errors.New("auto-logger must be paused before changing its window")

// StateKeys lists every key the tracker persists.
var StateKeys = []string{intake.Key, preferences.GoalKey, plant.Key, preferences.AutoLogKey}

// App holds the application's state and is the single writer of the store.
// It is safe for concurrent use.
type App struct {
	store      storage.Store
	entries    *intake.Repository
	prefs      *preferences.Store
	plants     *plant.Store
	clock      shared.Clock
	collectors *metrics.Collectors

	growthSignal time.Duration

	mu        sync.Mutex
	cache     []intake.Entry
	goal      float64
	autoLog   preferences.AutoLog
	plant     plant.State
	justGrew  bool
	growGen   int
	growTimer *time.Timer
}

// New loads all persisted state from store. Absent or malformed values fall
// back to their defaults. collectors may be nil.
func New(ctx context.Context, store storage.Store, clock shared.Clock, collectors *metrics.Collectors) *App {
	a := &App{
		store:        store,
		entries:      intake.NewRepository(store),
		prefs:        preferences.NewStore(store),
		plants:       plant.NewStore(store),
		clock:        clock,
		collectors:   collectors,
		growthSignal: GrowthSignalDuration,
	}
	a.cache = a.entries.List(ctx)
	a.goal = a.prefs.Goal(ctx)
	a.autoLog = a.prefs.AutoLog(ctx)
	a.plant = a.plants.Get(ctx)
	a.updateGauges(clock.Now())
	return a
}

// AddEntry records amount liters at the current instant. grew reports whether
// this entry made the plant grow.
func (a *App) AddEntry(ctx context.Context, amount float64) (e intake.Entry, grew bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	e, err = a.appendLocked(ctx, amount, now)
	if err != nil {
		return intake.Entry{}, false, err
	}
	a.countEntry(metrics.SourceManual)
	return e, a.evaluateGrowthLocked(ctx, now), nil
}

func (a *App) appendLocked(ctx context.Context, amount float64, now time.Time) (intake.Entry, error) {
	e, err := intake.NewEntry(amount, now)
	if err != nil {
		return intake.Entry{}, err
	}
	entries, err := a.entries.Append(ctx, e)
	if err != nil {
		return intake.Entry{}, err
	}
	a.cache = entries
	return e, nil
}

func (a *App) countEntry(source string) {
	if a.collectors != nil {
		a.collectors.EntriesLogged.WithLabelValues(source).Inc()
	}
}

// DeleteEntry removes the entry with id. It reports false when no entry has
// that id.
func (a *App) DeleteEntry(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, removed, err := a.entries.Delete(ctx, id)
	if err != nil || !removed {
		return false, err
	}
	a.cache = entries
	if a.collectors != nil {
		a.collectors.EntriesDeleted.Inc()
	}
	a.evaluateGrowthLocked(ctx, a.clock.Now())
	return true, nil
}

// ClearAll removes every entry and resets the plant. The goal and auto-log
// settings are kept.
func (a *App) ClearAll(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.entries.Clear(ctx); err != nil {
		return err
	}
	a.cache = nil
	if err := a.plants.Reset(ctx); err != nil {
		return err
	}
	a.plant = plant.Initial()
	a.stopSignalLocked()
	a.updateGauges(a.clock.Now())
	return nil
}

// SetGoal changes the daily goal in liters.
func (a *App) SetGoal(ctx context.Context, goal float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prefs.SetGoal(ctx, goal); err != nil {
		return err
	}
	a.goal = goal
	a.evaluateGrowthLocked(ctx, a.clock.Now())
	return nil
}

// SetAutoLogEnabled starts or pauses the auto-logger.
func (a *App) SetAutoLogEnabled(ctx context.Context, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.autoLog
	cfg.Enabled = enabled
	return a.saveAutoLogLocked(ctx, cfg)
}

// SetAutoLogWindow changes the daily window. Times are "HH:MM".
func (a *App) SetAutoLogWindow(ctx context.Context, start, end string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.autoLog.Enabled {
		return ErrAutoLogActive
	}
	cfg := a.autoLog
	cfg.StartTime, cfg.EndTime = start, end
	return a.saveAutoLogLocked(ctx, cfg)
}

func (a *App) saveAutoLogLocked(ctx context.Context, cfg preferences.AutoLog) error {
	if err := a.prefs.SetAutoLog(ctx, cfg); err != nil {
		return err
	}
	a.autoLog = cfg
	return nil
}

// AutoLogTick logs one dose when the schedule says one is due. A dose stands
// only once its time is saved; otherwise the entry is taken back.
func (a *App) AutoLogTick(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if !autolog.Decide(a.autoLog, now) {
		return false, nil
	}
	e, err := a.appendLocked(ctx, autolog.Dose, now)
	if err != nil {
		return false, fmt.Errorf("failed to log automatic dose: %w", err)
	}
	cfg := a.autoLog
	cfg.LastLogTimestamp = now.UnixMilli()
	if err := a.saveAutoLogLocked(ctx, cfg); err != nil {
		a.rollbackLocked(ctx, e.ID)
		return false, fmt.Errorf("failed to record automatic dose time: %w", err)
	}
	a.countEntry(metrics.SourceAuto)
	if a.collectors != nil {
		a.collectors.AutoLogFires.Inc()
	}
	a.evaluateGrowthLocked(ctx, now)
	return true, nil
}

func (a *App) rollbackLocked(ctx context.Context, id string) {
	entries, _, err := a.entries.Delete(ctx, id)
	if err != nil {
		log.Printf("Failed to take back automatic dose %s: %v", id, err)
		return
	}
	a.cache = entries
}

// Entries returns a copy of all entries in insertion order.
func (a *App) Entries() []intake.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]intake.Entry, len(a.cache))
	copy(out, a.cache)
	return out
}

// Goal returns the daily goal in liters.
func (a *App) Goal() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.goal
}

// AutoLog returns the auto-logger settings.
func (a *App) AutoLog() preferences.AutoLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.autoLog
}

// AutoLogStatus describes the auto-logger state right now.
func (a *App) AutoLogStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return autolog.Status(a.autoLog, a.clock.Now())
}

// Plant returns the plant state.
func (a *App) Plant() plant.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plant
}

// JustGrew reports whether the plant grew within the last GrowthSignalDuration.
func (a *App) JustGrew() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.justGrew
}

// Stats computes the dashboard summary for now.
func (a *App) Stats() stats.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return stats.Compute(a.cache, a.goal, a.clock.Now())
}

// Series returns the chart series of the given kind.
func (a *App) Series(kind stats.Kind) ([]stats.Point, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return stats.Series(kind, a.cache, a.clock.Now())
}

func (a *App) DailySeries() []stats.Point {
	p, _ := a.Series(stats.Daily)
	return p
}

func (a *App) WeeklySeries() []stats.Point {
	p, _ := a.Series(stats.Weekly)
	return p
}

func (a *App) MonthlySeries() []stats.Point {
	p, _ := a.Series(stats.Monthly)
	return p
}

// Health reports process figures along with the size of each state key and
// the number of logged entries. dataPath is passed to metrics.CollectHealth.
func (a *App) Health(ctx context.Context, dataPath string) metrics.Health {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := metrics.CollectHealth(ctx, a.store, StateKeys, dataPath)
	h.Entries = len(a.cache)
	h.PlantHeight = a.plant.Height
	return h
}

// Now returns the application clock's current instant.
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// Close stops the growth signal timer.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopSignalLocked()
}

func (a *App) evaluateGrowthLocked(ctx context.Context, now time.Time) bool {
	defer a.updateGauges(now)

	total := stats.TodayTotal(a.cache, now)
	next, grew := plant.Evaluate(a.plant, total, a.goal, shared.DateKey(now))
	if !grew {
		return false
	}
	if err := a.plants.Set(ctx, next); err != nil {
		// The next mutation today retries.
		log.Printf("Failed to save plant growth: %v", err)
		return false
	}
	a.plant = next
	if a.collectors != nil {
		a.collectors.PlantGrowths.Inc()
	}
	log.Printf("Plant grew to height %d", next.Height)
	a.raiseSignalLocked()
	return true
}

func (a *App) raiseSignalLocked() {
	a.stopSignalLocked()
	a.justGrew = true
	gen := a.growGen
	a.growTimer = time.AfterFunc(a.growthSignal, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.growGen == gen {
			a.justGrew = false
			a.growTimer = nil
		}
	})
}

func (a *App) stopSignalLocked() {
	if a.growTimer != nil {
		a.growTimer.Stop()
		a.growTimer = nil
	}
	a.growGen++
	a.justGrew = false
}

func (a *App) updateGauges(now time.Time) {
	if a.collectors == nil {
		return
	}
	a.collectors.PlantHeight.Set(float64(a.plant.Height))
	a.collectors.TodayTotal.Set(stats.TodayTotal(a.cache, now))
	a.collectors.DailyGoal.Set(a.goal)
}

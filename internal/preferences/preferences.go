package preferences

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"hydrotrack/internal/storage"
)

const (
	// GoalKey holds the daily goal as a decimal string.
	GoalKey = "goal"
	// AutoLogKey holds the JSON-encoded auto-log configuration.
	AutoLogKey = "autolog"

	// DefaultGoal is the daily goal in liters when none has been saved.
	DefaultGoal = 2.5
)

var (
	ErrInvalidGoal = errors.New("goal must be a positive number of liters")
	ErrInvalidTime = errors.New("time must be a 24-hour HH:MM value")
)

// AutoLog is the scheduled auto-logging configuration.
type AutoLog struct {
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	Enabled          bool   `json:"enabled"`
	LastLogTimestamp int64  `json:"lastLogTimestamp"`
}

// DefaultAutoLog returns the configuration used when none has been saved.
func DefaultAutoLog() AutoLog {
	return AutoLog{StartTime: "09:00", EndTime: "18:00"}
}

// Store persists the scalar settings.
type Store struct {
	store storage.Store
}

// NewStore creates a new preference Store.
func NewStore(store storage.Store) *Store {
	return &Store{store: store}
}

// Goal returns the saved daily goal, or DefaultGoal when absent or malformed.
func (s *Store) Goal(ctx context.Context) float64 {
	raw, ok, err := s.store.Read(ctx, GoalKey)
	if err != nil {
		log.Printf("Warning: failed to read goal, using default: %v", err)
		return DefaultGoal
	}
	if !ok {
		return DefaultGoal
	}
	goal, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !ValidGoal(goal) {
		log.Printf("Warning: malformed goal %q, using default", raw)
		return DefaultGoal
	}
	return goal
}

// SetGoal saves a new daily goal.
func (s *Store) SetGoal(ctx context.Context, goal float64) error {
	if !ValidGoal(goal) {
		return ErrInvalidGoal
	}
	if err := s.store.Write(ctx, GoalKey, strconv.FormatFloat(goal, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	return nil
}

// ValidGoal reports whether goal is usable as a daily target.
func ValidGoal(goal float64) bool {
	return goal > 0 && !math.IsInf(goal, 0) && !math.IsNaN(goal)
}

// AutoLog returns the saved auto-log configuration. Missing or malformed
// values, including malformed times, fall back to DefaultAutoLog.
func (s *Store) AutoLog(ctx context.Context) AutoLog {
	cfg := DefaultAutoLog()
	if !storage.LoadJSON(ctx, s.store, AutoLogKey, &cfg) {
		return DefaultAutoLog()
	}
	if _, err := ParseClock(cfg.StartTime); err != nil {
		log.Printf("Warning: malformed auto-log start %q, using default", cfg.StartTime)
		return DefaultAutoLog()
	}
	if _, err := ParseClock(cfg.EndTime); err != nil {
		log.Printf("Warning: malformed auto-log end %q, using default", cfg.EndTime)
		return DefaultAutoLog()
	}
	return cfg
}

// SetAutoLog saves the auto-log configuration.
func (s *Store) SetAutoLog(ctx context.Context, cfg AutoLog) error {
	if _, err := ParseClock(cfg.StartTime); err != nil {
		return err
	}
	if _, err := ParseClock(cfg.EndTime); err != nil {
		return err
	}
	if err := storage.SaveJSON(ctx, s.store, AutoLogKey, cfg); err != nil {
		return fmt.Errorf("failed to save auto-log config: %w", err)
	}
	return nil
}

// ParseClock converts an HH:MM string into minutes after midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

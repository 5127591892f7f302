// Package plant holds the growth counter rewarded for meeting the daily goal.
package plant

import (
	"context"
	"fmt"

	"hydrotrack/internal/storage"
)

// Key is the storage key for the JSON-encoded growth state.
const Key = "plant"

// State is the gamification counter and the date it last grew.
type State struct {
	Height         int    `json:"height"`
	LastGrowthDate string `json:"lastGrowthDate"`
}

// Initial is the state of a fresh plant.
func Initial() State {
	return State{Height: 1}
}

// Evaluate decides whether the plant grows today. The plant grows by one when
// the goal is met and it has not already grown on the calendar date today.
func Evaluate(s State, todayTotal, goal float64, today string) (State, bool) {
	if todayTotal < goal || s.LastGrowthDate == today {
		return s, false
	}
	return State{Height: s.Height + 1, LastGrowthDate: today}, true
}

// Stage names the garden picture for a height.
type Stage struct {
	Leaves    int  // pairs of leaves on the stem
	Flowering bool // crown shown above height 10
}

// StageFor returns the display stage of a plant of the given height.
func StageFor(height int) Stage {
	return Stage{Leaves: height / 3, Flowering: height > 10}
}

// Store persists the growth state.
type Store struct {
	store storage.Store
}

// NewStore creates a new plant Store.
func NewStore(store storage.Store) *Store {
	return &Store{store: store}
}

// Get returns the saved state, or Initial when absent or malformed.
func (s *Store) Get(ctx context.Context) State {
	st := Initial()
	if !storage.LoadJSON(ctx, s.store, Key, &st) || st.Height < 1 {
		return Initial()
	}
	return st
}

// Set saves the state.
func (s *Store) Set(ctx context.Context, st State) error {
	if err := storage.SaveJSON(ctx, s.store, Key, st); err != nil {
		return fmt.Errorf("failed to save plant: %w", err)
	}
	return nil
}

// Reset returns the plant to its initial state.
func (s *Store) Reset(ctx context.Context) error {
	return s.Set(ctx, Initial())
}

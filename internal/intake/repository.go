package intake

import (
	"context"
	"fmt"

	"hydrotrack/internal/storage"
)

// Key is the storage key holding the JSON-encoded entry list.
const Key = "entries"

// Repository is the durable, insertion-ordered list of intake entries.
type Repository struct {
	store storage.Store
}

// NewRepository creates a new Repository.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// List returns all entries in insertion order. Missing or malformed data
// yields an empty list.
func (r *Repository) List(ctx context.Context) []Entry {
	var entries []Entry
	if !storage.LoadJSON(ctx, r.store, Key, &entries) || entries == nil {
		return []Entry{}
	}
	return entries
}

// Append adds an entry to the end of the list and returns the updated list.
func (r *Repository) Append(ctx context.Context, e Entry) ([]Entry, error) {
	if !ValidAmount(e.Amount) {
		return nil, ErrInvalidAmount
	}
	updated := append(r.List(ctx), e)
	if err := storage.SaveJSON(ctx, r.store, Key, updated); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}
	return updated, nil
}

// Delete removes the entry with the given id. An unknown id leaves the list
// untouched and reports removed == false.
func (r *Repository) Delete(ctx context.Context, id string) (entries []Entry, removed bool, err error) {
	current := r.List(ctx)
	updated := make([]Entry, 0, len(current))
	for _, e := range current {
		if e.ID == id {
			removed = true
			continue
		}
		updated = append(updated, e)
	}
	if !removed {
		return current, false, nil
	}
	if err := storage.SaveJSON(ctx, r.store, Key, updated); err != nil {
		return nil, false, fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return updated, true, nil
}

// Clear removes every entry.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

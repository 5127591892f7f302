package intake

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAmount is returned for non-positive or non-finite amounts.
var ErrInvalidAmount = errors.New("amount must be a positive number of liters")

// Entry is one logged water-consumption event.
type Entry struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`    // liters
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// NewEntry creates an entry with a fresh id, stamped at the given instant.
func NewEntry(amount float64, at time.Time) (Entry, error) {
	if !ValidAmount(amount) {
		return Entry{}, ErrInvalidAmount
	}
	return Entry{
		ID:        uuid.NewString(),
		Amount:    amount,
		Timestamp: at.UnixMilli(),
	}, nil
}

// ValidAmount reports whether amount can be logged.
func ValidAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// Time returns the entry instant in loc.
func (e Entry) Time(loc *time.Location) time.Time {
	return time.UnixMilli(e.Timestamp).In(loc)
}

// NewestFirst returns a copy of entries ordered by timestamp, newest first.
// Entries with equal timestamps keep their insertion order.
func NewestFirst(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// LoadJSON decodes the value under key into v. It reports false when the key
// is absent, unreadable, or does not hold valid JSON; callers fall back to
// their defaults in that case.
func LoadJSON(ctx context.Context, s Store, key string, v any) bool {
	raw, ok, err := s.Read(ctx, key)
	if err != nil {
		log.Printf("Warning: failed to read %q, using default: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("Warning: malformed value for %q, using default: %v", key, err)
		return false
	}
	return true
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Write(ctx, key, string(data))
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hydrotrack/internal/database"
)

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Read-Absent", func(t *testing.T) {
		_, ok, err := store.Read(ctx, "entries")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if ok {
			t.Error("Expected key 'entries' to be absent")
		}
	})

	t.Run("Write-Read", func(t *testing.T) {
		if err := store.Write(ctx, "goal", "2.5"); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		v, ok, err := store.Read(ctx, "goal")
		if err != nil || !ok {
			t.Fatalf("Expected key to exist, ok=%v err=%v", ok, err)
		}
		if v != "2.5" {
			t.Errorf("Expected '2.5', got '%s'", v)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := store.Write(ctx, "goal", "3"); err != nil {
			t.Fatalf("Failed to overwrite: %v", err)
		}
		v, _, _ := store.Read(ctx, "goal")
		if v != "3" {
			t.Errorf("Expected '3', got '%s'", v)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := store.Remove(ctx, "goal"); err != nil {
			t.Fatalf("Failed to remove: %v", err)
		}
		if _, ok, _ := store.Read(ctx, "goal"); ok {
			t.Error("Expected key 'goal' to be removed")
		}
		if err := store.Remove(ctx, "goal"); err != nil {
			t.Errorf("Removing a missing key should not fail, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewFileStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}
	exerciseStore(t, store)

	t.Run("FileLayout", func(t *testing.T) {
		if err := store.Write(context.Background(), "plant", `{"height":1}`); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tempDir, "plant.json")); err != nil {
			t.Errorf("Expected plant.json to exist: %v", err)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		if err := store.Write(context.Background(), "../escape", "x"); err == nil {
			t.Error("Expected an error for a key with path separators")
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	exerciseStore(t, NewSQLiteStore(db.SQL))
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	type doc struct {
		Height int `json:"height"`
	}

	t.Run("Absent", func(t *testing.T) {
		var d doc
		if LoadJSON(ctx, store, "plant", &d) {
			t.Error("Expected false for an absent key")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		_ = store.Write(ctx, "plant", "{not json")
		var d doc
		if LoadJSON(ctx, store, "plant", &d) {
			t.Error("Expected false for malformed JSON")
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		if err := SaveJSON(ctx, store, "plant", doc{Height: 4}); err != nil {
			t.Fatalf("SaveJSON failed: %v", err)
		}
		var d doc
		if !LoadJSON(ctx, store, "plant", &d) {
			t.Fatal("Expected LoadJSON to succeed")
		}
		if d.Height != 4 {
			t.Errorf("Expected height 4, got %d", d.Height)
		}
	})
}

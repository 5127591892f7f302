package app

import (
	"context"
	"fmt"
	"log"

	"hydrotrack/internal/config"
	"hydrotrack/internal/database"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/shared"
	"hydrotrack/internal/storage"
)

// Runtime bundles the App with the infrastructure it was opened on.
type Runtime struct {
	App        *App
	DB         *database.DB
	Metrics    *metrics.Store
	Collectors *metrics.Collectors
	DataPath   string
}

// Open connects the configured storage backend and loads the App. The SQLite
// database always backs the usage metrics; the key-value state lives there too
// unless the file backend is selected.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var store storage.Store
	dataPath := cfg.DatabasePath
	switch cfg.StorageBackend {
	case config.StorageFile:
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		store = fs
		dataPath = cfg.StoragePath
	default:
		store = storage.NewSQLiteStore(db.SQL)
	}
	log.Printf("Using %s storage at %s", cfg.StorageBackend, dataPath)

	collectors := metrics.NewCollectors()
	clock := shared.SystemClock{Location: cfg.Location}
	return &Runtime{
		App:        New(ctx, store, clock, collectors),
		DB:         db,
		Metrics:    metrics.NewStore(db.SQL),
		Collectors: collectors,
		DataPath:   dataPath,
	}, nil
}

// Close stops the App and closes the database.
func (r *Runtime) Close() error {
	r.App.Close()
	return r.DB.Close()
}

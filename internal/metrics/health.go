package metrics

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"

	"hydrotrack/internal/storage"
)

var startedAt = time.Now()

// KeyUsage is the stored size of one state key.
type KeyUsage struct {
	Key     string `json:"key"`
	Bytes   int    `json:"bytes"`
	Present bool   `json:"present"`
}

// Health is a snapshot of the process and of the tracker's persisted state.
type Health struct {
	AllocMB    uint64
	SysMB      uint64
	Goroutines int
	Uptime     time.Duration

	DataSize    string
	State       []KeyUsage
	Entries     int
	PlantHeight int
}

// CollectHealth reads the process counters and the size of every key in keys.
// dataPath may be the database file or the state directory. Entry and plant
// figures are left for the caller, which owns that state.
func CollectHealth(ctx context.Context, store storage.Store, keys []string, dataPath string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h := Health{
		AllocMB:    m.Alloc >> 20,
		SysMB:      m.Sys >> 20,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(startedAt).Truncate(time.Second),
		DataSize:   formatBytes(pathSize(dataPath)),
		State:      make([]KeyUsage, 0, len(keys)),
	}
	for _, key := range keys {
		u := KeyUsage{Key: key}
		if value, ok, err := store.Read(ctx, key); err == nil && ok {
			u.Bytes, u.Present = len(value), true
		}
		h.State = append(h.State, u)
	}
	return h
}

// StateBytes is the total stored size of all state keys.
func (h Health) StateBytes() int {
	total := 0
	for _, u := range h.State {
		total += u.Bytes
	}
	return total
}

func pathSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

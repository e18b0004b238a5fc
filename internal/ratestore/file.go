package ratestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File keeps the table as a JSON object of ip -> unix seconds on disk.
//
// The mutex serializes writers in this process only. Another process
// writing the same path can overwrite a fresh entry (last writer wins), so a
// multi-process deployment should use Redis or SQL instead.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rate limit dir: %w", err)
	}
	return &File{path: path}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Allow(_ context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, err := f.load()
	if err != nil {
		return Decision{}, err
	}
	ts, ok := table[key]
	d := decide(ts, ok, now, window)
	if !d.Allowed {
		return d, nil
	}
	table[key] = now.Unix()
	if err := f.save(table); err != nil {
		return Decision{}, err
	}
	return d, nil
}

func (f *File) Prune(_ context.Context, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, err := f.load()
	if err != nil {
		return 0, err
	}
	n := pruneTable(table, before)
	if n == 0 {
		return 0, nil
	}
	if err := f.save(table); err != nil {
		return 0, err
	}
	return n, nil
}

func (f *File) Close() error { return nil }

// Snapshot returns a copy of the table as currently stored on disk.
func (f *File) Snapshot() (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *File) load() (map[string]int64, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rate limit file: %w", err)
	}
	table := map[string]int64{}
	if len(raw) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(raw, &table); err != nil {
		// A truncated file from a crashed writer starts the table over.
		slog.Default().Warn("rate limit file unreadable, resetting", "path", f.path, "err", err)
		return map[string]int64{}, nil
	}
	return table, nil
}

func (f *File) save(table map[string]int64) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode rate limit table: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".rate_limit-*.json")
	if err != nil {
		return fmt.Errorf("write rate limit file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write rate limit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write rate limit file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace rate limit file: %w", err)
	}
	return nil
}

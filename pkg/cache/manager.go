package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const maintenanceLimit = 8

// Recorder observes cache lookups.
type Recorder interface {
	CacheLookup(hit bool)
}

// Manager applies TTL and the enabled switch over a Store.
// Store failures during Get and Put are logged and never surface to callers.
type Manager struct {
	store    Store
	ttl      time.Duration
	enabled  bool
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRecorder reports each lookup to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a Manager over store.
func NewManager(store Store, ttl time.Duration, enabled bool, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
		logger:  logger.With("system", "cache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enabled reports whether lookups and writes are active.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// TTL returns the entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get returns the entry for key when it exists and is younger than the TTL.
// Expired entries are left in place.
func (m *Manager) Get(ctx context.Context, key string) (*Entry, bool) {
	if !m.enabled {
		return nil, false
	}

	entry, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		entry = nil
	}

	hit := entry != nil && !m.expired(entry)
	if m.recorder != nil {
		m.recorder.CacheLookup(hit)
	}
	if !hit {
		return nil, false
	}

	m.logger.DebugContext(ctx, "cache hit", "key", key)
	return entry, true
}

// Put stores data under key stamped with the current time, replacing any
// existing entry.
func (m *Manager) Put(ctx context.Context, key, data string, metadata Metadata) {
	if !m.enabled {
		return
	}

	entry := &Entry{
		Data:      data,
		Timestamp: timestamp(m.now()),
		Metadata:  metadata,
	}

	if err := m.store.Put(ctx, key, entry); err != nil {
		m.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		return
	}

	m.logger.DebugContext(ctx, "cache stored", "key", key)
}

// Prune deletes expired entries and returns how many were removed.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	return m.sweep(ctx, m.expired)
}

// Clear deletes every entry and returns how many were removed.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	return m.sweep(ctx, nil)
}

// Stats summarizes the store contents.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
	Oldest  time.Time
	Newest  time.Time
}

// Stats scans every entry in the store.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	var (
		mu    sync.Mutex
		stats Stats
	)

	err := m.each(ctx, func(ctx context.Context, key string, entry *Entry) error {
		mu.Lock()
		defer mu.Unlock()

		stats.Entries++
		stats.Bytes += int64(len(entry.Data))
		if m.expired(entry) {
			stats.Expired++
		}

		t := entry.Time()
		if stats.Oldest.IsZero() || t.Before(stats.Oldest) {
			stats.Oldest = t
		}
		if t.After(stats.Newest) {
			stats.Newest = t
		}
		return nil
	})

	return stats, err
}

func (m *Manager) expired(entry *Entry) bool {
	return entry.Age(m.now()) >= m.ttl
}

// sweep deletes entries matching match; nil matches everything.
func (m *Manager) sweep(ctx context.Context, match func(*Entry) bool) (int, error) {
	var (
		mu      sync.Mutex
		removed int
	)

	err := m.each(ctx, func(ctx context.Context, key string, entry *Entry) error {
		if match != nil && !match(entry) {
			return nil
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}

		mu.Lock()
		removed++
		mu.Unlock()
		return nil
	})

	if err == nil {
		m.logger.InfoContext(ctx, "cache sweep complete", "removed", removed)
	}
	return removed, err
}

func (m *Manager) each(ctx context.Context, fn func(context.Context, string, *Entry) error) error {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maintenanceLimit)

	for _, key := range keys {
		g.Go(func() error {
			entry, err := m.store.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			if entry == nil {
				return nil
			}
			return fn(gctx, key, entry)
		})
	}

	return g.Wait()
}

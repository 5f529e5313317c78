package cache_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/envoy/pkg/cache"
	"github.com/JaimeStill/envoy/pkg/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type countingRecorder struct{ hits, misses int }

func (r *countingRecorder) CacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func newManager(store cache.Store, enabled bool, c *clock, opts ...cache.Option) *cache.Manager {
	opts = append(opts, cache.WithClock(c.now))
	return cache.NewManager(store, time.Hour, enabled, slog.New(slog.DiscardHandler), opts...)
}

func TestManagerPutGet(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	rec := &countingRecorder{}
	m := newManager(cache.NewMemory(), true, c, cache.WithRecorder(rec))

	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("hit on empty cache")
	}

	md := cache.Metadata{OriginalSize: [2]int{4, 2}, ProcessedSize: [2]int{2, 1}, Format: "JPEG", MimeType: "image/jpeg"}
	m.Put(ctx, "k", "data:image/jpeg;base64,AAAA", md)

	entry, ok := m.Get(ctx, "k")
	if !ok {
		t.Fatal("miss after Put")
	}
	if entry.Data != "data:image/jpeg;base64,AAAA" || entry.Metadata != md {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Timestamp != 1_700_000_000 {
		t.Errorf("Timestamp = %v", entry.Timestamp)
	}
	if rec.hits != 1 || rec.misses != 1 {
		t.Errorf("recorder hits=%d misses=%d, want 1/1", rec.hits, rec.misses)
	}
}

func TestManagerTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(store, true, c)

	m.Put(ctx, "k", "payload", cache.Metadata{})

	c.t = c.t.Add(59 * time.Minute)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("miss before TTL elapsed")
	}

	c.t = c.t.Add(2 * time.Minute)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("hit after TTL elapsed")
	}

	if entry, _ := store.Get(ctx, "k"); entry == nil {
		t.Fatal("expired entry was purged by Get")
	}
}

func TestManagerTTLExpiryKeepsBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &storage.Config{Path: dir}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	sys, err := storage.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}

	c := &clock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(cache.NewBlob(sys), true, c)

	m.Put(ctx, "k", "payload", cache.Metadata{})
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("miss before TTL elapsed")
	}

	c.t = c.t.Add(61 * time.Minute)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("hit after TTL elapsed")
	}

	if _, err := os.Stat(filepath.Join(dir, "k.json")); err != nil {
		t.Errorf("expired entry file removed: %v", err)
	}
}

func TestManagerOverwrite(t *testing.T) {
	ctx := context.Background()
	m := newManager(cache.NewMemory(), true, &clock{t: time.Unix(10, 0)})

	m.Put(ctx, "k", "first", cache.Metadata{Format: "PNG"})
	m.Put(ctx, "k", "second", cache.Metadata{})

	entry, ok := m.Get(ctx, "k")
	if !ok || entry.Data != "second" || entry.Metadata.Format != "" {
		t.Errorf("entry after overwrite = %+v", entry)
	}
}

func TestManagerDisabled(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	m := newManager(store, false, &clock{t: time.Unix(10, 0)})

	m.Put(ctx, "k", "payload", cache.Metadata{})
	if keys, _ := store.Keys(ctx); len(keys) != 0 {
		t.Errorf("disabled Put wrote %v", keys)
	}

	_ = store.Put(ctx, "k", &cache.Entry{Data: "x", Timestamp: 10})
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("disabled Get returned a hit")
	}
}

type failingStore struct{ cache.Store }

func (failingStore) Get(context.Context, string) (*cache.Entry, error) {
	return nil, errors.New("read failed")
}

func (failingStore) Put(context.Context, string, *cache.Entry) error {
	return errors.New("write failed")
}

func TestManagerStoreErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	m := newManager(failingStore{cache.NewMemory()}, true, &clock{t: time.Unix(10, 0)})

	m.Put(ctx, "k", "payload", cache.Metadata{})
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("hit from failing store")
	}
}

func TestManagerPruneClearStats(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	c := &clock{t: time.Unix(1_000_000, 0)}
	m := newManager(store, true, c)

	m.Put(ctx, "old", "aaaa", cache.Metadata{})
	c.t = c.t.Add(2 * time.Hour)
	m.Put(ctx, "fresh", "bb", cache.Metadata{})

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Entries != 2 || stats.Expired != 1 || stats.Bytes != 6 {
		t.Errorf("Stats = %+v", stats)
	}
	if !stats.Oldest.Before(stats.Newest) {
		t.Errorf("Oldest %v not before Newest %v", stats.Oldest, stats.Newest)
	}

	removed, err := m.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
	if entry, _ := store.Get(ctx, "old"); entry != nil {
		t.Error("expired entry survived Prune")
	}

	removed, err = m.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear removed %d, want 1", removed)
	}
	if keys, _ := store.Keys(ctx); len(keys) != 0 {
		t.Errorf("keys after Clear = %v", keys)
	}
}

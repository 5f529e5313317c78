package cache_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/JaimeStill/envoy/pkg/cache"
	"github.com/JaimeStill/envoy/pkg/storage"
)

func exerciseStore(t *testing.T, store cache.Store) {
	t.Helper()
	ctx := context.Background()

	if entry, err := store.Get(ctx, "absent"); err != nil || entry != nil {
		t.Fatalf("Get(absent) = %v, %v; want nil, nil", entry, err)
	}

	want := &cache.Entry{
		Data:      "data:image/png;base64,iVBO",
		Timestamp: 1700000000.25,
		Metadata: cache.Metadata{
			OriginalSize:  [2]int{100, 50},
			ProcessedSize: [2]int{100, 50},
			Format:        "PNG",
			MimeType:      "image/png",
		},
	}
	if err := store.Put(ctx, "k1", want); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Put(ctx, "k2", &cache.Entry{Data: "x"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if *got != *want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"k1", "k2"}) {
		t.Errorf("Keys = %v", keys)
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete of absent key error: %v", err)
	}
	if entry, _ := store.Get(ctx, "k1"); entry != nil {
		t.Error("entry survived Delete")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, cache.NewMemory())
}

func TestBlobStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &storage.Config{Path: dir}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	sys, err := storage.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}

	store := cache.NewBlob(sys)
	exerciseStore(t, store)

	if _, err := os.Stat(filepath.Join(dir, "k2.json")); err != nil {
		t.Errorf("expected k2.json on disk: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := cache.NewRedis(context.Background(), cache.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}

	exerciseStore(t, store)

	if !mr.Exists(cache.DefaultRedisPrefix + "k2") {
		t.Error("expected prefixed key in redis")
	}
}

func TestRedisRequiresAddr(t *testing.T) {
	if _, err := cache.NewRedis(context.Background(), cache.RedisConfig{}); err == nil {
		t.Error("expected error without addr")
	}
}

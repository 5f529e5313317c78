package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations(t *testing.T) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		t.Fatalf("iofs.New error: %v", err)
	}
	defer source.Close()

	first, err := source.First()
	if err != nil {
		t.Fatalf("First error: %v", err)
	}
	if first != 1 {
		t.Errorf("first version: got %d, want 1", first)
	}

	up, _, err := source.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp error: %v", err)
	}
	defer up.Close()

	body, err := io.ReadAll(up)
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	for _, want := range []string{"cache_entries", "key TEXT PRIMARY KEY", "metadata JSONB"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("up migration missing %q", want)
		}
	}

	down, _, err := source.ReadDown(first)
	if err != nil {
		t.Fatalf("ReadDown error: %v", err)
	}
	down.Close()
}

func TestIgnoreNoChange(t *testing.T) {
	if err := ignoreNoChange(migrate.ErrNoChange); err != nil {
		t.Errorf("ErrNoChange: got %v", err)
	}
	boom := errors.New("boom")
	if err := ignoreNoChange(boom); !errors.Is(err, boom) {
		t.Errorf("other error: got %v", err)
	}
	if err := ignoreNoChange(nil); err != nil {
		t.Errorf("nil: got %v", err)
	}
}

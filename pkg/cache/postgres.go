package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/envoy/pkg/database"
	"github.com/JaimeStill/envoy/pkg/repository"
)

const (
	selectEntry = `SELECT data, timestamp, metadata FROM cache_entries WHERE key = $1`
	upsertEntry = `
INSERT INTO cache_entries (key, data, timestamp, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET data = EXCLUDED.data, timestamp = EXCLUDED.timestamp, metadata = EXCLUDED.metadata`
	deleteEntry = `DELETE FROM cache_entries WHERE key = $1`
	selectKeys  = `SELECT key FROM cache_entries ORDER BY key`
)

// PostgresTable is the table created by cmd/migrate.
const PostgresTable = "cache_entries"

type postgres struct {
	db *sql.DB
}

// NewPostgres stores entries in the cache_entries table created by cmd/migrate.
func NewPostgres(db *sql.DB) Store {
	return &postgres{db: db}
}

func scanEntry(s repository.Scanner) (*Entry, error) {
	var (
		entry    Entry
		metadata []byte
	)
	if err := s.Scan(&entry.Data, &entry.Timestamp, &metadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &entry, nil
}

func (p *postgres) Get(ctx context.Context, key string) (*Entry, error) {
	entry, found, err := repository.Lookup(ctx, p.db, selectEntry, []any{key}, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("select cache entry %s: %w", key, mapError(err))
	}
	if !found {
		return nil, nil
	}
	return entry, nil
}

func (p *postgres) Put(ctx context.Context, key string, entry *Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if _, err := repository.Exec(ctx, p.db, upsertEntry, key, entry.Data, entry.Timestamp, metadata); err != nil {
		return fmt.Errorf("upsert cache entry %s: %w", key, mapError(err))
	}
	return nil
}

func (p *postgres) Delete(ctx context.Context, key string) error {
	if _, err := repository.Exec(ctx, p.db, deleteEntry, key); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, mapError(err))
	}
	return nil
}

func (p *postgres) Keys(ctx context.Context) ([]string, error) {
	keys, err := repository.Collect(ctx, p.db, selectKeys, nil, repository.Text)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", mapError(err))
	}
	return keys, nil
}

func mapError(err error) error {
	if repository.HasCode(err, repository.UndefinedTableCode) {
		return fmt.Errorf("%w: %s: %w", database.ErrMissingTable, PostgresTable, err)
	}
	return repository.Annotate(err)
}

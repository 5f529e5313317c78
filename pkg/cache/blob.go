package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/envoy/pkg/storage"
)

const blobSuffix = ".json"

type blobStore struct {
	storage storage.System
}

// NewBlob stores each entry as a "<key>.json" document in blob storage.
// The local backend replaces documents whole via temp file and rename.
func NewBlob(sys storage.System) Store {
	return &blobStore{storage: sys}
}

func (b *blobStore) Get(ctx context.Context, key string) (*Entry, error) {
	rc, err := b.storage.Download(ctx, key+blobSuffix)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()

	var entry Entry
	if err := json.NewDecoder(rc).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return &entry, nil
}

func (b *blobStore) Put(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return b.storage.Upload(ctx, key+blobSuffix, bytes.NewReader(data), "application/json")
}

func (b *blobStore) Delete(ctx context.Context, key string) error {
	err := b.storage.Delete(ctx, key+blobSuffix)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (b *blobStore) Keys(ctx context.Context) ([]string, error) {
	names, err := b.storage.List(ctx, "")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		if key, ok := strings.CutSuffix(name, blobSuffix); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

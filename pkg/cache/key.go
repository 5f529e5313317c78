// Package cache stores processed image payloads under content-derived keys.
//
// A key is a SHA-256 digest over the source identity, the processing
// parameters, and (for local files) the modification time, so any change to
// one of them addresses a different entry. Entries expire after the manager
// TTL but are only removed by explicit maintenance (Prune, Clear).
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes local files from remote sources.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// Source identifies the origin of an image.
type Source struct {
	Kind     Kind
	Identity string
	// ModTime is zero for URL sources.
	ModTime time.Time
}

// Params is the processing parameter tuple that shapes a cached payload.
type Params struct {
	MaxDimension int
	Quality      int
	Resize       bool
}

// FileSource stats path and returns its canonical identity: the absolute,
// cleaned path plus the current modification time.
func FileSource(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, err
	}

	return Source{
		Kind:     KindFile,
		Identity: filepath.Clean(abs),
		ModTime:  info.ModTime(),
	}, nil
}

// URLSource normalizes raw by lowercasing the scheme and host and dropping
// the fragment. Unparseable input is used as-is.
func URLSource(raw string) Source {
	identity := raw
	if u, err := url.Parse(raw); err == nil {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Fragment = ""
		u.RawFragment = ""
		identity = u.String()
	}
	return Source{Kind: KindURL, Identity: identity}
}

// Key derives the cache key for src processed with p.
// Every field is length-prefixed so adjacent values cannot collide.
func Key(src Source, p Params) string {
	h := sha256.New()

	write := func(s string) {
		var prefix [8]byte
		binary.BigEndian.PutUint64(prefix[:], uint64(len(s)))
		h.Write(prefix[:])
		h.Write([]byte(s))
	}

	write(string(src.Kind))
	write(src.Identity)
	write(strconv.Itoa(p.MaxDimension))
	write(strconv.Itoa(p.Quality))
	write(strconv.FormatBool(p.Resize))
	if src.Kind != KindURL {
		write(strconv.FormatInt(src.ModTime.UnixNano(), 10))
	}

	return hex.EncodeToString(h.Sum(nil))
}

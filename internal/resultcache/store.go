// Package resultcache stores the rendered outputs of completed runs under a
// key derived from the workspace hash, so an unchanged workspace with the
// same inputs can be answered without executing it again.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one cached run result.
type Entry struct {
	Key string `json:"key"`
	// Outputs maps "node.port" to the rendered output value.
	Outputs   map[string]string `json:"outputs"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists entries.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Close() error
}

// Key derives the cache key from a workspace hash and any extra parameters
// that influence the result, such as input presets. The order of extras does
// not matter.
func Key(workspaceHash [32]byte, extras ...string) string {
	sorted := append([]string(nil), extras...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write(workspaceHash[:])
	var length [8]byte
	for _, s := range sorted {
		binary.BigEndian.PutUint64(length[:], uint64(len(s)))
		h.Write(length[:])
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Open selects a store by URL: "memory://" (or empty) for an in-process
// store, "redis://..." or "rediss://..." for Redis.
func Open(ctx context.Context, rawURL string) (Store, error) {
	if rawURL == "" {
		return NewMemoryStore(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "redis", "rediss":
		cfg := DefaultRedisConfig()
		cfg.URL = rawURL
		return NewRedisStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported cache scheme %q", u.Scheme)
}

// Package cache provides byte-level caching for encoded ego buffers, JSON
// tiles and rendered frames.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: entries as files under a directory (CLI and single-node server)
//   - [RedisCache]: a shared Redis instance (multi-node server)
//   - [NullCache]: caching disabled, for --no-cache
//
// Keys come from a [Keyer] so that every caller derives the same key for
// the same request parameters.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
//
// Get reports a miss as (nil, false, nil); an error means the backend
// itself failed. A TTL of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs per entry kind.
const (
	TTLEgo   = 24 * time.Hour
	TTLTile  = 24 * time.Hour
	TTLFrame = time.Hour
)

// NullCache disables caching: every Get misses and writes are dropped.
// The server and CLI use it for --no-cache so call sites never branch on a
// nil Cache.
type NullCache struct{}

// NewNullCache returns a Cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)         { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                      { return nil }
func (NullCache) Close() error                                              { return nil }

var _ Cache = NullCache{}

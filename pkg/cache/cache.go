// Package cache stores registry responses so repeated lookups stay local.
//
// The registry client itself never caches; the CLI wraps module info
// queries with a [Cache] chosen by configuration:
//
//   - [FileCache]: JSON entries under the user cache directory (default)
//   - [RedisCache]: a shared Redis instance, for teams behind one registry
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer], which namespaces entries by registry so two
// registries never share results.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); expired entries are misses.
// A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Options selects and configures a backend for [Open].
type Options struct {
	Backend   string
	Dir       string // file
	RedisAddr string // redis
	MongoURI  string // mongo
}

// Open connects to the backend named in opts.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileCache(opts.Dir)
	case BackendRedis:
		return NewRedisCache(ctx, opts.RedisAddr, DefaultRedisPrefix)
	case BackendMongo:
		return NewMongoCache(ctx, opts.MongoURI, DefaultMongoDatabase, DefaultMongoCollection)
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Package session persists registry login sessions between CLI runs.
//
// A session binds a registry address to the opaque token that registry
// approved during browser login, plus the account name it verified to.
// Stores are keyed by registry address, so one machine can be logged in to
// several registries at once:
//
//   - [FileStore]: one JSON file per registry under the config directory (CLI default)
//   - [RedisStore]: shared storage for CI runners that reuse one login
//   - [MemoryStore]: tests and one-shot processes
//
// # Usage
//
//	store, err := session.NewFileStore("")  // ~/.config/modreg/sessions/
//	sess := session.New("http://[::1]:8000", token, "alice", session.DefaultTTL)
//	err = store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, "http://[::1]:8000")
//	if sess == nil {
//	    // not logged in, or the session expired
//	}
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is how long a saved login is trusted before the CLI asks the
// user to log in again. The registry may revoke it sooner.
const DefaultTTL = 90 * 24 * time.Hour

// Session is a registry login.
type Session struct {
	Registry  string    `json:"registry"`
	Token     string    `json:"token"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"` // zero: never
}

// New creates a session for registry. A ttl of zero never expires.
func New(registry, token, user string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	s := &Session{
		Registry:  registry,
		Token:     token,
		User:      user,
		CreatedAt: now,
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store persists sessions keyed by registry address.
type Store interface {
	// Get returns the session for registry, or nil, nil when there is none.
	// Expired sessions are deleted and reported as absent.
	Get(ctx context.Context, registry string) (*Session, error)

	// Set stores sess under sess.Registry, replacing any previous session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes the session for registry. Missing sessions are not an error.
	Delete(ctx context.Context, registry string) error

	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend for [Open].
type Options struct {
	Backend   string
	Dir       string
	RedisAddr string
}

// Open returns the store named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}
}

// registryKey normalizes a registry address into a storage key.
func registryKey(registry string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(registry, "/")))
	return hex.EncodeToString(sum[:16])
}

func validate(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if sess.Registry == "" {
		return fmt.Errorf("session has no registry")
	}
	if sess.Token == "" {
		return fmt.Errorf("session has no token")
	}
	return nil
}

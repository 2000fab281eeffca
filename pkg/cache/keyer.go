package cache

import "strings"

// Keyer builds cache keys for registry lookups.
type Keyer interface {
	// InfoKey is the key for module info of module on the registry at base.
	InfoKey(base, module string) string
}

// DefaultKeyer produces keys of the form "info:<registry-hash>:<module>".
// The registry is hashed so keys stay short and filesystem safe whatever
// the address looks like.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// InfoKey implements [Keyer]. Trailing slashes on base are ignored.
func (DefaultKeyer) InfoKey(base, module string) string {
	return "info:" + registryHash(base) + ":" + module
}

func registryHash(base string) string {
	return Hash([]byte(strings.TrimRight(base, "/")))[:16]
}

// ScopedKeyer prefixes every key from inner, isolating one namespace
// (a user, a CI job) inside a shared backend such as Redis:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "ci:nightly:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// InfoKey implements [Keyer].
func (k *ScopedKeyer) InfoKey(base, module string) string {
	return k.prefix + k.inner.InfoKey(base, module)
}

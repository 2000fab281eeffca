// Package config loads modreg settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/modreg/config.toml, falling back to
// ~/.config/modreg/config.toml. Every field is optional:
//
//	registry    = "https://registry.example"
//	user_agent  = "modreg-ci/1"
//	timeout     = "30s"
//	modules_dir = "~/.local/share/modreg/modules"
//
//	[cache]
//	backend    = "redis"      # file | redis | mongo | none
//	ttl        = "1h"
//	redis_addr = "cache.internal:6379"
//
//	[session]
//	backend = "file"          # file | redis
//
// MODREG_REGISTRY and MODREG_SESSION override the file; see [Config.ApplyEnv].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/modreg/pkg/errors"
)

const appName = "modreg"

// DefaultRegistry is the registry used when nothing else is configured.
const DefaultRegistry = "http://[::1]:8000"

// Environment variables read by [Config.ApplyEnv].
const (
	EnvRegistry = "MODREG_REGISTRY"
	EnvSession  = "MODREG_SESSION"
)

// Config is the merged result of defaults, the config file and environment.
type Config struct {
	Registry   string        `toml:"registry"`
	UserAgent  string        `toml:"user_agent"`
	Timeout    Duration      `toml:"timeout"`
	ModulesDir string        `toml:"modules_dir"`
	Cache      CacheConfig   `toml:"cache"`
	Session    SessionConfig `toml:"session"`

	// SessionToken comes from MODREG_SESSION only and bypasses the session
	// store. It is never read from or written to the file.
	SessionToken string `toml:"-"`
}

// CacheConfig selects the module info cache.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	TTL       Duration `toml:"ttl"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	MongoURI  string   `toml:"mongo_uri"`

	// Namespace isolates this client's entries in a shared backend.
	Namespace string `toml:"namespace"`
}

// SessionConfig selects where login sessions are stored.
type SessionConfig struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "1h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings. Directory defaults follow the XDG
// base directory layout; they are empty if no home directory is known.
func Default() Config {
	return Config{
		Registry:   DefaultRegistry,
		Timeout:    Duration{30 * time.Second},
		ModulesDir: xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"), "modules"),
		Cache: CacheConfig{
			Backend: "file",
			TTL:     Duration{time.Hour},
			Dir:     xdgDir("XDG_CACHE_HOME", ".cache"),
		},
		Session: SessionConfig{
			Backend: "file",
			Dir:     xdgDir("XDG_CONFIG_HOME", ".config", "sessions"),
		},
	}
}

// DefaultPath returns where [Load] looks when no path is given.
func DefaultPath() string {
	return xdgDir("XDG_CONFIG_HOME", ".config", "config.toml")
}

// xdgDir resolves $env/modreg/elem..., or ~/fallback/modreg/elem... when env
// is unset.
func xdgDir(env, fallback string, elem ...string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(append([]string{base, appName}, elem...)...)
}

// Load reads path over [Default] and validates the result. An empty path
// means [DefaultPath], which may be absent; an explicit path must exist.
// Keys the file sets that modreg does not know are rejected so typos
// surface instead of being ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, cfg.Validate()
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "config load failed (%s)", path)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "config parse failed (%s)", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.expandHome()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvRegistry)); v != "" {
		c.Registry = v
	}
	if v := strings.TrimSpace(getenv(EnvSession)); v != "" {
		c.SessionToken = v
	}
}

// Validate checks the fields a command would otherwise trip over later.
func (c Config) Validate() error {
	if err := errors.ValidateURL(c.Registry); err != nil {
		return err
	}
	if c.Timeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "timeout must not be negative")
	}

	switch c.Cache.Backend {
	case "file":
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.dir is required for the file backend")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	case "mongo":
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.mongo_uri is required for the mongo backend")
		}
	case "none":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend %q: want file, redis, mongo or none", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}

	switch c.Session.Backend {
	case "file":
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "session.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "session.backend %q: want file or redis", c.Session.Backend)
	}
	return nil
}

// expandHome rewrites a leading "~/" in path settings.
func (c *Config) expandHome() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, p := range []*string{&c.ModulesDir, &c.Cache.Dir, &c.Session.Dir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}
}

// String renders the effective configuration as TOML, without the session token.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("%+v", c)
	}
	return b.String()
}

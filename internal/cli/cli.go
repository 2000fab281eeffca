// Package cli implements the modreg command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modreg/pkg/buildinfo"
	"github.com/matzehuels/modreg/pkg/cache"
	"github.com/matzehuels/modreg/pkg/config"
	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/modstore"
	"github.com/matzehuels/modreg/pkg/registry"
	"github.com/matzehuels/modreg/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "modreg"

	// defaultPollInterval is how often login checks whether the browser
	// approval went through.
	defaultPollInterval = 2 * time.Second

	// defaultLoginTimeout bounds the whole login flow.
	defaultLoginTimeout = 5 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string // --config
	registry   string // --registry
	cfg        config.Config

	getenv       func(string) string
	openURL      func(string) error
	pollInterval time.Duration
	loginTimeout time.Duration
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:       newLogger(w, level),
		cfg:          config.Default(),
		getenv:       os.Getenv,
		openURL:      openBrowser,
		pollInterval: defaultPollInterval,
		loginTimeout: defaultLoginTimeout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "modreg publishes and installs modules from a module registry",
		Long: `modreg is a client for a module registry. It logs in through the browser,
publishes module source, and downloads modules into a local module directory.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.loadConfig() },
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&c.registry, "registry", "", "registry base URL (overrides config and "+config.EnvRegistry+")")

	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves settings: defaults, then the file, then environment,
// then flags.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(c.getenv)
	if c.registry != "" {
		cfg.Registry = c.registry
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("config loaded", "registry", cfg.Registry, "cache", cfg.Cache.Backend, "session", cfg.Session.Backend)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newClient creates an unauthenticated registry client from config.
func (c *CLI) newClient() (*registry.Client, error) {
	opts := []registry.Option{
		registry.WithHTTPClient(&http.Client{Timeout: c.cfg.Timeout.Duration}),
		registry.WithLogger(c.Logger),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, registry.WithUserAgent(c.cfg.UserAgent))
	}
	return registry.New(c.cfg.Registry, opts...)
}

// authedClient creates a client carrying the stored session token.
// MODREG_SESSION takes precedence over the session store.
func (c *CLI) authedClient(ctx context.Context) (*registry.Client, *session.Session, error) {
	client, err := c.newClient()
	if err != nil {
		return nil, nil, err
	}

	if tok := c.cfg.SessionToken; tok != "" {
		client.Authenticate(tok)
		return client, &session.Session{Registry: c.cfg.Registry, Token: tok}, nil
	}

	sess, err := c.loadSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	client.Authenticate(sess.Token)
	return client, sess, nil
}

func (c *CLI) openSessionStore(ctx context.Context) (session.Store, error) {
	store, err := session.Open(ctx, session.Options{
		Backend:   c.cfg.Session.Backend,
		Dir:       c.cfg.Session.Dir,
		RedisAddr: c.cfg.Session.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// openCache opens the configured cache, or a null cache when disabled.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	ch, err := cache.Open(ctx, cache.Options{
		Backend:   c.cfg.Cache.Backend,
		Dir:       c.cfg.Cache.Dir,
		RedisAddr: c.cfg.Cache.RedisAddr,
		MongoURI:  c.cfg.Cache.MongoURI,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return ch, nil
}

// infoKeyer scopes cache keys to cache.namespace when one is set.
func (c *CLI) infoKeyer() cache.Keyer {
	if ns := c.cfg.Cache.Namespace; ns != "" {
		return cache.NewScopedKeyer(cache.NewDefaultKeyer(), ns+":")
	}
	return cache.NewDefaultKeyer()
}

func (c *CLI) moduleStore() (*modstore.Store, error) {
	return modstore.New(c.cfg.ModulesDir)
}

// errNotLoggedIn is returned by commands that need a session.
func (c *CLI) errNotLoggedIn() error {
	return errors.New(errors.ErrCodeNotLoggedIn, "not logged in to %s (run '%s login' first)", c.cfg.Registry, appName)
}

// Report prints err on stderr and returns the process exit status:
// 130 for an interrupted run, 1 otherwise. Registry rejections are shown
// with the registry's own message.
func Report(err error) int {
	if stderrors.Is(err, context.Canceled) {
		return 130
	}
	if errors.IsApplication(err) {
		printError("registry: %s", errors.UserMessage(err))
		return 1
	}
	printError("%s", err)
	return 1
}

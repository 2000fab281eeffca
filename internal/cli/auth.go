package cli

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/registry"
	"github.com/matzehuels/modreg/pkg/session"
)

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the registry through the browser",
		Long: `Create a new session token and approve it in the browser.

modreg prints a link of the form <registry>/auth/<token> and tries to open it.
Once you approve the session there, the token is saved for later commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !force {
				sess, err := c.loadSession(ctx)
				switch {
				case err == nil:
					printInfo("Already logged in to %s as %s", c.cfg.Registry, sess.User)
					printDetail("Run '%s login --force' to start a new session", appName)
					return nil
				case !errors.Is(err, errors.ErrCodeNotLoggedIn):
					return err
				}
			}
			_, err := c.runLogin(ctx)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "start a new session even if one is stored")
	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session for the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openSessionStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), c.cfg.Registry); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out of %s", c.cfg.Registry)
			return nil
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the stored session belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, sess, err := c.authedClient(ctx)
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()

			user, err := client.VerifySession(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("Logged in as %s", user)
			printKeyValue("Registry", c.cfg.Registry)
			if !sess.CreatedAt.IsZero() {
				printKeyValue("Since", sess.CreatedAt.Local().Format("Jan 2, 2006"))
			}
			if !sess.ExpiresAt.IsZero() {
				printKeyValue("Expires", sess.ExpiresAt.Local().Format("Jan 2, 2006"))
			}
			return nil
		},
	}
}

// =============================================================================
// Session Management
// =============================================================================

// loadSession returns the stored session for the configured registry.
func (c *CLI) loadSession(ctx context.Context) (*session.Session, error) {
	store, err := c.openSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sess, err := store.Get(ctx, c.cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, c.errNotLoggedIn()
	}
	return sess, nil
}

func (c *CLI) saveSession(ctx context.Context, token, user string) (*session.Session, error) {
	store, err := c.openSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sess := session.New(c.cfg.Registry, token, user, session.DefaultTTL)
	if err := store.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if fs, ok := store.(*session.FileStore); ok {
		if err := fs.Cleanup(ctx); err != nil {
			c.Logger.Warn("session cleanup failed", "dir", fs.Dir(), "err", err)
		}
	}
	return sess, nil
}

// =============================================================================
// Browser Login
// =============================================================================

// authURL is the page where the user approves token.
func authURL(base, token string) string {
	return base + "/auth/" + token
}

func (c *CLI) runLogin(ctx context.Context) (*session.Session, error) {
	client, err := c.newClient()
	if err != nil {
		return nil, err
	}

	token := registry.RandomSessionToken()
	client.Authenticate(token)
	link := authURL(c.cfg.Registry, token)

	printNewline()
	fmt.Fprintln(stdout, StyleTitle.Render("Registry Login"))
	printNewline()
	printKeyValue("Registry", c.cfg.Registry)
	printKeyValue("URL", StyleLink.Render(link))
	printNewline()

	if err := c.openURL(link); err != nil {
		c.Logger.Debug("open browser", "err", err)
		printDetail("Open the URL above in your browser to approve this session")
	} else {
		printDetail("Opening browser...")
	}

	loginCtx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	spinner := newSpinnerWithContext(loginCtx, "Waiting for approval...")
	spinner.Start()
	user, err := pollSession(loginCtx, client, c.pollInterval, func(waited time.Duration) {
		spinner.SetMessage(fmt.Sprintf("Waiting for approval (%s)...", waited.Round(time.Second)))
	})
	spinner.Stop()
	if err != nil {
		return nil, err
	}

	sess, err := c.saveSession(ctx, token, user)
	if err != nil {
		return nil, err
	}
	printSuccess("Logged in to %s as %s", c.cfg.Registry, user)
	return sess, nil
}

// pollSession calls VerifySession every interval until the registry
// accepts the token. Registry rejections mean the user has not approved
// yet; any other failure ends the poll.
func pollSession(ctx context.Context, client *registry.Client, interval time.Duration, tick func(waited time.Duration)) (string, error) {
	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		user, err := client.VerifySession(ctx)
		switch {
		case err == nil:
			return user, nil
		case ctx.Err() != nil:
			return "", loginAborted(ctx, start)
		case !errors.IsApplication(err):
			return "", fmt.Errorf("check session: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", loginAborted(ctx, start)
		case <-ticker.C:
			if tick != nil {
				tick(time.Since(start))
			}
		}
	}
}

func loginAborted(ctx context.Context, start time.Time) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.ErrCodeSessionExpired, "session was not approved within %s", time.Since(start).Round(time.Second))
	}
	return ctx.Err()
}

func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

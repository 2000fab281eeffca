package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/registry"
	"github.com/matzehuels/modreg/pkg/watch"
)

// publishCommand creates the publish command.
func (c *CLI) publishCommand() *cobra.Command {
	var (
		yes      bool
		watchSrc bool
	)

	cmd := &cobra.Command{
		Use:   "publish <name> <file>",
		Short: "Publish module source to the registry",
		Long: `Upload the source in <file> as module <name> under your account.

The registry reads the version from the module's "-- Version:" header and
refuses versions that already exist. With --watch, modreg republishes every
time the file is saved until interrupted.`,
		Example: `  modreg publish whois ./whois.lua
  modreg publish whois ./whois.lua --yes --watch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, file := args[0], args[1]
			if err := errors.ValidateModuleName(name); err != nil {
				return err
			}
			if _, _, qualified := errors.SplitModuleName(name); qualified {
				return errors.New(errors.ErrCodeInvalidModule, "publish takes a bare module name; the author is your account")
			}

			client, _, err := c.authedClient(ctx)
			if err != nil {
				return err
			}

			code, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read module: %w", err)
			}
			if !yes {
				ok, err := c.confirm(PublishSummary{
					Registry: c.cfg.Registry,
					Name:     name,
					Version:  localVersion(code),
					File:     filepath.Base(file),
					Size:     len(code),
				})
				if err != nil {
					return err
				}
				if !ok {
					printInfo("Publish cancelled")
					return nil
				}
			}

			if _, err := c.publish(ctx, client, name, code); err != nil {
				return err
			}
			if !watchSrc {
				return nil
			}

			printDetail("Watching %s for changes (Ctrl+C to stop)", file)
			return watch.File(ctx, file, watch.DefaultDebounce,
				func() error {
					code, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("read module: %w", err)
					}
					_, err = c.publish(ctx, client, name, code)
					return err
				},
				watch.WithErrorHandler(func(err error) {
					printError("%s", errors.UserMessage(err))
				}),
			)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "publish without asking for confirmation")
	cmd.Flags().BoolVarP(&watchSrc, "watch", "w", false, "republish whenever the file changes")
	return cmd
}

func (c *CLI) publish(ctx context.Context, client *registry.Client, name string, code []byte) (*registry.PublishResponse, error) {
	prog := newProgress(c.Logger)
	resp, err := client.PublishModule(ctx, name, string(code))
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", name, err)
	}
	prog.done("published", "module", resp.Author+"/"+resp.Name, "version", resp.Version)
	printSuccess("Published %s/%s %s", resp.Author, resp.Name, StyleVersion.Render(resp.Version))
	return resp, nil
}

// confirm asks on the terminal. Without one it refuses rather than guess.
func (c *CLI) confirm(s PublishSummary) (bool, error) {
	if fd := os.Stdin.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false, errors.New(errors.ErrCodeInvalidInput, "stdin is not a terminal; pass --yes to publish without confirmation")
	}
	return confirmPublish(s)
}

var versionHeader = regexp.MustCompile(`(?m)^--\s*Version:\s*(\S+)\s*$`)

// localVersion reads the version header the registry will see, for display.
func localVersion(code []byte) string {
	if m := versionHeader.FindSubmatch(code); m != nil {
		return string(m[1])
	}
	return "(no version header)"
}

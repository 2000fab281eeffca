package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/registry"
)

// downloadCommand creates the download command.
func (c *CLI) downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "download <author/name> [version]",
		Aliases: []string{"install"},
		Short:   "Download a module into the module directory",
		Long: `Download a module and install it as <modules_dir>/<author>/<name>.lua.

Without a version, the latest published version is installed.`,
		Example: `  modreg download kpcyrd/whois
  modreg download kpcyrd/whois 0.2.1`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: c.completeInstalled,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			module := args[0]
			if err := errors.ValidateModuleName(module); err != nil {
				return err
			}
			if _, _, ok := errors.SplitModuleName(module); !ok {
				return errors.New(errors.ErrCodeInvalidModule, "module must be given as <author>/<name>: %q", module)
			}

			store, err := c.moduleStore()
			if err != nil {
				return err
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}

			var version string
			if len(args) == 2 {
				version = args[1]
			}
			dl, err := c.download(ctx, client, module, version)
			if err != nil {
				return err
			}

			path, err := store.Install(dl)
			if err != nil {
				return fmt.Errorf("install: %w", err)
			}
			printSuccess("Installed %s/%s %s", dl.Author, dl.Name, StyleVersion.Render(dl.Version))
			printFile(path)
			return nil
		},
	}
}

// download fetches module at version, resolving an empty version to the
// latest one first.
func (c *CLI) download(ctx context.Context, client *registry.Client, module, version string) (*registry.DownloadResponse, error) {
	prog := newProgress(c.Logger)

	if version == "" {
		info, err := client.QueryModule(ctx, module)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", module, err)
		}
		if info.Latest == nil {
			return nil, errors.New(errors.ErrCodeInvalidVersion, "%s has no published versions", module)
		}
		version = *info.Latest
		c.Logger.Debug("resolved latest version", "module", module, "version", version)
	}
	if err := errors.ValidateVersion(version); err != nil {
		return nil, err
	}

	dl, err := client.DownloadModule(ctx, module, version)
	if err != nil {
		return nil, fmt.Errorf("download %s %s: %w", module, version, err)
	}
	prog.done("downloaded", "module", module, "version", version, "bytes", len(dl.Code))
	return dl, nil
}

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.moduleStore()
			if err != nil {
				return err
			}
			mods, err := store.List()
			if err != nil {
				return fmt.Errorf("list modules: %w", err)
			}
			if len(mods) == 0 {
				printInfo("No modules installed")
				printDetail("Directory: %s", store.Dir())
				printNextStep("Install one with", appName+" download <author/name>")
				return nil
			}
			fmt.Fprintln(stdout, renderModuleTable(mods))
			return nil
		},
	}
}

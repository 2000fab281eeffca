package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modreg/pkg/cache"
	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/observability"
	"github.com/matzehuels/modreg/pkg/registry"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	var refresh, noCache bool

	cmd := &cobra.Command{
		Use:               "info <author/name>",
		Short:             "Show a module's description and latest version",
		Args:              cobra.ExactArgs(1),
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

			ch, err := c.openCache(ctx, noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			client, err := c.newClient()
			if err != nil {
				return err
			}

			info, cached, err := c.queryModule(ctx, client, ch, module, refresh)
			if err != nil {
				return err
			}

			printSuccess("%s/%s", info.Author, info.Name)
			if info.Description != "" {
				printKeyValue("Description", info.Description)
			}
			latest := "(none published)"
			if info.Latest != nil {
				latest = StyleVersion.Render(*info.Latest)
			}
			printKeyValue("Latest", latest)
			printSource(cached)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results and update the cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "neither read nor write the cache")
	return cmd
}

const infoKeyType = "info"

// queryModule answers from ch when it can, otherwise asks the registry and
// stores the answer. Registry errors are never cached.
func (c *CLI) queryModule(ctx context.Context, client *registry.Client, ch cache.Cache, module string, refresh bool) (*registry.ModuleInfoResponse, bool, error) {
	hooks := observability.Cache()
	key := c.infoKeyer().InfoKey(c.cfg.Registry, module)

	if !refresh {
		data, hit, err := ch.Get(ctx, key)
		if err != nil {
			c.Logger.Warn("cache read failed", "key", key, "err", err)
		}
		if hit {
			var info registry.ModuleInfoResponse
			if err := json.Unmarshal(data, &info); err == nil {
				hooks.OnCacheHit(ctx, infoKeyType)
				return &info, true, nil
			}
			c.Logger.Debug("discarding unreadable cache entry", "key", key)
		}
	}
	hooks.OnCacheMiss(ctx, infoKeyType)

	info, err := client.QueryModule(ctx, module)
	if err != nil {
		return nil, false, fmt.Errorf("query %s: %w", module, err)
	}

	if data, err := json.Marshal(info); err == nil {
		if err := ch.Set(ctx, key, data, c.cfg.Cache.TTL.Duration); err != nil {
			c.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.OnCacheSet(ctx, infoKeyType, len(data))
		}
	}
	return info, false, nil
}

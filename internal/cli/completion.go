package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for modreg and print it to stdout.

  bash:       source <(modreg completion bash)
  zsh:        modreg completion zsh > "${fpath[1]}/_modreg"
  fish:       modreg completion fish > ~/.config/fish/completions/modreg.fish
  powershell: modreg completion powershell | Out-String | Invoke-Expression

Module arguments of download and info complete from installed modules.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(stdout, true)
			case "zsh":
				return root.GenZshCompletion(stdout)
			case "fish":
				return root.GenFishCompletion(stdout, true)
			default:
				return root.GenPowerShellCompletionWithDesc(stdout)
			}
		},
	}
}

// completeInstalled offers installed module references for the first argument.
func (c *CLI) completeInstalled(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := c.loadConfig(); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	store, err := c.moduleStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	mods, err := store.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var out []string
	for _, m := range mods {
		if strings.HasPrefix(m.ID(), toComplete) {
			out = append(out, m.ID())
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

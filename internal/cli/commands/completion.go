package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/fluentmap/internal/demo"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for the fluentmap CLI.

Bash:

  $ source <(fluentmap completion bash)

Zsh:

  $ fluentmap completion zsh > "${fpath[1]}/_fluentmap"

Fish:

  $ fluentmap completion fish | source

PowerShell:

  PS> fluentmap completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()

			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeTypeNames offers the short names of the demo types
func completeTypeNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, m := range demo.Catalog().Build(demo.Unit) {
		if !mapsTable(m) {
			continue
		}
		name := m.Type().Name()
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(toComplete)) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

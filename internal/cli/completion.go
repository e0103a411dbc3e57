package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for bash, zsh or fish.

To load completions:

Bash:

  $ source <(rita completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ rita completion bash > /etc/bash_completion.d/rita
  # macOS:
  $ rita completion bash > $(brew --prefix)/etc/bash_completion.d/rita

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ rita completion zsh > "${fpath[1]}/_rita"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ rita completion fish > ~/.config/fish/completions/rita.fish`,
	ValidArgs: []string{"bash", "zsh", "fish"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	switch shell := args[0]; shell {
	case "bash":
		return cmd.Root().GenBashCompletion(stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(stdout, true)
	default:
		return usageError("unsupported shell %s, supported shells: bash, zsh, fish", shell)
	}
}

package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts for comicpress and
// its device ids.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for comicpress.

To load completions:

Bash:
  $ source <(comicpress completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ comicpress completion bash > /etc/bash_completion.d/comicpress
  # macOS:
  $ comicpress completion bash > $(brew --prefix)/etc/bash_completion.d/comicpress

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ comicpress completion zsh > "${fpath[1]}/_comicpress"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ comicpress completion fish | source

  # To load completions for each session, execute once:
  $ comicpress completion fish > ~/.config/fish/completions/comicpress.fish

PowerShell:
  PS> comicpress completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> comicpress completion powershell > comicpress.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(c.Out)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.Out)
			case "fish":
				return cmd.Root().GenFishCompletion(c.Out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.Out)
			}
			return nil
		},
	}

	return cmd
}

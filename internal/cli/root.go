// Package cli implements the rulematch command line.
package cli

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/rulematch/config"
	"github.com/Ramsey-B/rulematch/internal/app"
)

// runtime carries what PersistentPreRunE prepared for the subcommand
type runtime struct {
	envFiles []string
	cfg      *config.Config
	logger   ectologger.Logger
	sync     func()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "rulematch",
		Short: "Reconcile configured alert rules with the rules a ruler evaluates",
		Long: `rulematch pairs every configured alerting and recording rule with the rule
the ruler actually evaluates, and reports drift and unmatched rules.

Commands:
  serve       - Run the HTTP API
  match       - Reconcile two rule documents and print the report
  hash        - Print the canonical form and hash of a query
  completion  - Generate shell completion scripts`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(rt.envFiles...)
			if err != nil {
				return err
			}
			logger, sync, err := app.NewLogger(cfg.LogLevel, cfg.PrettyLogs)
			if err != nil {
				return err
			}
			rt.cfg, rt.logger, rt.sync = cfg, logger, sync
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.sync != nil {
				rt.sync()
			}
		},
	}
	root.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", []string{".env"}, "env files to load before the environment")

	root.AddCommand(newServeCommand(rt))
	root.AddCommand(newMatchCommand(rt))
	root.AddCommand(newHashCommand(rt))
	root.AddCommand(newCompletionCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for rulematch.

Bash:
  $ source <(rulematch completion bash)

Zsh:
  $ rulematch completion zsh > "${fpath[1]}/_rulematch"

Fish:
  $ rulematch completion fish | source

PowerShell:
  PS> rulematch completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell: %s", args[0])
		},
	}
}

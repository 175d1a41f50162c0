package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(newApp(version), commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(a *app, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitefroyo",
		Short: "sitefroyo - DNS-backed website hosting status",
		Long: `sitefroyo derives the deployment state of a hosted website from what it
can observe: DNS delegation, registrar records, the hosted zone, persisted
site parameters and a live HTTP probe.

Every command gathers a fresh view of the site, evaluates the fact catalog
in order and classifies the site into one of four statuses:
  - not_started
  - hosted_zone_awaiting_ns_config
  - hosted_zone_ok
  - site_functional`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", a.version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.shutdown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "settings file (default .sitefroyo.yaml in . or $HOME)")
	flags.StringVarP(&a.opts.manifestPath, "manifest", "m", "", "site manifest (default site.cue, site.yaml or site.yml)")
	flags.StringVarP(&a.opts.outputFormat, "output", "o", "table", "output format: table, json, or yaml")
	flags.BoolVar(&a.opts.jsonOutput, "json", false, "shorthand for --output json")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&a.opts.offline, "offline", false, "skip all network lookups")
	flags.StringVar(&a.opts.backend, "backend", "", "override the settings backend (aws or local)")
	flags.BoolVar(&a.opts.strict, "strict", false, "fail when a fact reads one that is not evaluated yet")

	rootCmd.AddCommand(newFactsCommand(a))
	rootCmd.AddCommand(newInfoCommand(a))
	rootCmd.AddCommand(newStatusCommand(a))
	rootCmd.AddCommand(newDestroyCheckCommand(a))
	rootCmd.AddCommand(newDeployCheckCommand(a))
	rootCmd.AddCommand(newValidateCommand(a))
	rootCmd.AddCommand(newParamsCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))

	return rootCmd
}

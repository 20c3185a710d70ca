package cmd

import (
	"github.com/silogen/playbook-stats/pkg/report"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var (
		format string
		check  bool
	)

	showCmd := &cobra.Command{
		Use:   "show [stats-file]",
		Short: "Print a statistics file",
		Long: `Print a statistics file, by default the configured one.

With --check the command exits with status 2 when any host failed or was
unreachable, or the run ended with no hosts remaining.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else if path, err = resolveStatsPath(); err != nil {
				return err
			}

			s, err := report.Load(path)
			if err != nil {
				return err
			}
			if err := report.Render(cmd.OutOrStdout(), s, f); err != nil {
				return err
			}

			if check && !report.Healthy(s) {
				return &exitError{code: 2}
			}
			return nil
		},
	}

	showCmd.Flags().StringVar(&format, "format", string(report.FormatText), "output format: text, json or yaml")
	showCmd.Flags().BoolVar(&check, "check", false, "exit 2 if the run was not clean")

	return showCmd
}

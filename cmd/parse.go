package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/silogen/playbook-stats/pkg/ansible/runtime"
	"github.com/silogen/playbook-stats/pkg/callback"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var input string

	parseCmd := &cobra.Command{
		Use:   "parse <log-file|->",
		Short: "Record host statistics from saved ansible-playbook output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := runtime.OutputVerbose
			switch input {
			case "text":
			case "json":
				mode = runtime.OutputJSON
			default:
				return fmt.Errorf("unknown --input %q (want text or json)", input)
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open playbook output: %w", err)
				}
				defer f.Close()
				r = f
			}

			path, err := resolveStatsPath()
			if err != nil {
				return err
			}

			stats, err := runtime.ReplayOutput(r, mode, callback.NewRecorder(path))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d hosts to %s\n", len(stats.Hosts()), path)
			return nil
		},
	}

	parseCmd.Flags().StringVar(&input, "input", "text", "format of the saved output: text or json (json stdout callback)")

	return parseCmd
}

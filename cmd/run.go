package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/silogen/playbook-stats/pkg/ansible/runtime"
	"github.com/silogen/playbook-stats/pkg/callback"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		outputMode string
		teePath    string
		binary     string
	)

	runCmd := &cobra.Command{
		Use:   "run [flags] -- <ansible-playbook args>",
		Short: "Run ansible-playbook and record its host statistics",
		Long: `Run ansible-playbook with the given arguments, streaming its output, and write
the statistics file once the playbook finishes.

The exit code is ansible-playbook's own, or 1 if the statistics file could not be written.
If ansible-playbook stops before printing its PLAY RECAP (a missing playbook, a syntax
error) the statistics file is left as it was.

With --output json ansible-playbook uses its json stdout callback, which does not report
plays running out of hosts, so no_hosts_remaining is always false in that mode.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := runtime.ParseOutputMode(outputMode)
			if err != nil {
				return err
			}

			path, err := resolveStatsPath()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := runtime.RunPlaybook(ctx, runtime.PlaybookOptions{
				Binary:  binary,
				Args:    args,
				Mode:    mode,
				LogPath: teePath,
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			}, callback.NewRecorder(path))
			if err != nil {
				return err
			}
			if code != 0 {
				log.Debugf("Propagating playbook exit code %d", code)
				return &exitError{code: code}
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&outputMode, "output", string(runtime.OutputVerbose), "output mode: verbose, clean or json (json never sets no_hosts_remaining)")
	runCmd.Flags().StringVar(&teePath, "tee", "", "also write the raw playbook output to this file")
	runCmd.Flags().StringVar(&binary, "ansible-playbook", runtime.DefaultPlaybookBinary, "ansible-playbook executable")

	return runCmd
}

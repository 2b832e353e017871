package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debugir.dev/pkg/debugir/internal/adapter"
	"debugir.dev/pkg/debugir/internal/domain"
)

var watchDebounceFlag time.Duration

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Synthesize again whenever an input changes",
		Long: `Run once, then synthesize every input again when it changes on disk,
until interrupted. The command's own writes do not trigger a new run.

` + pathPatternsHelp,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return workflow.Watch(ctx, domain.WatchArgs{
				RunArgs:  runArgs(args),
				Debounce: viper.GetDuration(debounceKey),
			})
		},
	}

	cmd.Flags().DurationVar(&watchDebounceFlag, debounceFlagName, adapter.DefaultDebounce, "time to wait for a burst of changes to settle")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), debounceKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debugir.dev/pkg/debugir/internal/domain"
)

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "check [paths...]",
		Short:        "Check that display texts and debug modules are up to date",
		Long:         checkLongDescription,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := workflow.Check(cmd.Context(), domain.CheckArgs{
				SynthesisArgs: synthesisArgs(),
				Paths:         parsePaths(args),
				Parallel:      viper.GetInt(parallelKey),
			})

			return err
		},
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

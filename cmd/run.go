package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debugir.dev/pkg/debugir/internal/domain"
)

var runVerifyFlag bool
var runLineMapFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Synthesize debug info for LLVM IR modules",
		Long:  runLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := workflow.Run(cmd.Context(), runArgs(args))
			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runVerifyFlag, verifyFlagName, defaultVerify, "re-read every debug module with an independent LLVM parser")
	bindFlagToConfig(cmd.Flags().Lookup(verifyFlagName), verifyKey)

	cmd.Flags().BoolVar(&runLineMapFlag, lineMapFlagName, defaultLineMap, "write the line table next to each input as a .lines file")
	bindFlagToConfig(cmd.Flags().Lookup(lineMapFlagName), lineMapKey)
}

func runArgs(args []string) domain.RunArgs {
	return domain.RunArgs{
		SynthesisArgs: synthesisArgs(),
		Paths:         parsePaths(args),
		Parallel:      viper.GetInt(parallelKey),
		Verify:        viper.GetBool(verifyKey),
		LineMap:       viper.GetBool(lineMapKey),
	}
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debugir.dev/pkg/debugir/internal/controller"
	"debugir.dev/pkg/debugir/internal/domain"
	m "debugir.dev/pkg/debugir/internal/model"
)

var linesFormatFlag string

// linesCmd represents the lines command.
var linesCmd = newLinesCmd()

func newLinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lines <file.ll|file.lines>",
		Short: "Print the line table of a module",
		Long: `Print the line at which every function, block and instruction of a module
starts in its display text. A .lines file written by "run --line-map" is
read back instead of rendering the module.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Lines(cmd.Context(), domain.LinesArgs{
				SynthesisArgs: synthesisArgs(),
				Path:          m.Path(args[0]),
				Format:        viper.GetString(formatKey),
			})
		},
	}

	cmd.Flags().StringVarP(&linesFormatFlag, formatFlagName, "f", controller.FormatTable, "output format: table or yaml")
	bindFlagToConfig(cmd.Flags().Lookup(formatFlagName), formatKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(linesCmd)
}

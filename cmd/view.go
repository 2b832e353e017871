package cmd

import (
	"github.com/spf13/cobra"

	"debugir.dev/pkg/debugir/internal/domain"
	m "debugir.dev/pkg/debugir/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <file.ll>",
		Short: "Show the display text of a module with its debug scopes",
		Long: `Show the display text a module would be rewritten to, with the function,
block or instruction starting on each line. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.View(cmd.Context(), domain.ViewArgs{
				SynthesisArgs: synthesisArgs(),
				Path:          m.Path(args[0]),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

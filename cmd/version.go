package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

// fallbackVersion is reported when the binary carries no module version.
const fallbackVersion = "v0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version and Go version used to build this tool.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				cmd.Println("debugir version\t", fallbackVersion)
				return
			}

			version := info.Main.Version
			if version == "" || version == "(devel)" {
				version = fallbackVersion
			}

			cmd.Println("debugir version\t", version)
			cmd.Println("go version\t", info.GoVersion)
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}

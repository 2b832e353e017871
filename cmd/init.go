package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "debugir.dev/pkg/debugir/internal/model"
)

const initLongDescription = `Create a debugir.yaml in the current working directory holding the
current settings, so they can be edited and picked up by every command.

Keys written include:
  ` + instNamerKey + `             name anonymous values before synthesis
  ` + parallelKey + `              modules processed in parallel
  ` + debugSuffixKey + `   suffix of debug modules (` + m.DefaultDebugSuffix + `)
  ` + lineMapKey + `       write .lines sidecars
  ` + producerKey + `        producer of the compile unit
  ` + dwarfVersionKey + `   "Dwarf Version" module flag
  ` + absoluteDirKey + `    record the absolute display directory
  ` + formatKey + `          line table output format
  ` + debounceKey + `        settle time for watch

Every key can also be set through the environment, e.g. ` + envPrefix + `_DEBUG_PRODUCER.`

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default debugir.yaml configuration file",
		Long:  initLongDescription,
		RunE: func(_ *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			err := viper.SafeWriteConfigAs(targetPath)
			if err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// Package cmd provides the root command and CLI setup for debugir.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"debugir.dev/pkg/debugir/internal/adapter"
	"debugir.dev/pkg/debugir/internal/controller"
	"debugir.dev/pkg/debugir/internal/domain"
	m "debugir.dev/pkg/debugir/internal/model"
)

var irFileAdapter adapter.IRFileAdapter
var sourceFSAdapter adapter.SourceFSAdapter
var lineMapStore adapter.LineMapStore
var moduleVerifier adapter.ModuleVerifier
var fileWatcher adapter.FileWatcher
var workflow domain.Workflow
var ui controller.UI

var instNamerFlag bool
var parallelFlag int
var debugSuffixFlag string
var producerFlag string
var dwarfVersionFlag int
var absoluteDirFlag bool
var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	irFileAdapter = adapter.NewLocalIRFileAdapter()
	sourceFSAdapter = adapter.NewLocalSourceFSAdapter()
	lineMapStore = adapter.NewMsgpackLineMapStore()
	moduleVerifier = adapter.NewLLIRModuleVerifier()
	fileWatcher = adapter.NewFSNotifyWatcher(adapter.DefaultDebounce)
	workflow = domain.NewWorkflow(
		irFileAdapter,
		sourceFSAdapter,
		lineMapStore,
		moduleVerifier,
		fileWatcher,
		ui,
	)
}

const pathPatternsHelp = `Inputs are textual LLVM IR files (.ll) or directories:
  - file.ll        a single module
  - ./ir           every .ll file in ir (not recursive)
  - ./ir/...       every .ll file below ir
Debug modules (*.dbg.ll by default) are never taken as inputs.`

const rootLongDescription = `Debugir makes compiled programs debuggable at the level of their LLVM IR.

It rewrites each module into a canonical display text and writes a second
module whose debug locations point at the lines of that text, so a
debugger steps through the IR instead of the original source.

` + pathPatternsHelp

const runLongDescription = `Synthesize debug info for the given modules.

The display text replaces each input in place and the debug module is
written next to it.

` + pathPatternsHelp

const checkLongDescription = `Check that every input is its canonical display text and that its debug
module matches a fresh synthesis. Exits with an error and prints a diff
when anything is out of sync.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debugir",
		Short: "Debug info for LLVM IR",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.BoolVar(&instNamerFlag, instNamerFlagName, defaultInstNamer, "name anonymous values (%N becomes %argN, %bbN or %iN) before synthesis")
	bindFlagToConfig(flags.Lookup(instNamerFlagName), instNamerKey)

	flags.IntVarP(&parallelFlag, parallelFlagName, "p", defaultParallel, "number of modules processed in parallel")
	bindFlagToConfig(flags.Lookup(parallelFlagName), parallelKey)

	flags.StringVar(&debugSuffixFlag, debugSuffixFlagName, m.DefaultDebugSuffix, "suffix replacing the input extension for debug modules")
	bindFlagToConfig(flags.Lookup(debugSuffixFlagName), debugSuffixKey)

	flags.StringVar(&producerFlag, producerFlagName, domain.DefaultProducer, "producer recorded in the compile unit")
	bindFlagToConfig(flags.Lookup(producerFlagName), producerKey)

	flags.IntVar(&dwarfVersionFlag, dwarfVersionFlagName, domain.DefaultDwarfVersion, `value of the "Dwarf Version" module flag`)
	bindFlagToConfig(flags.Lookup(dwarfVersionFlagName), dwarfVersionKey)

	flags.BoolVar(&absoluteDirFlag, absoluteDirFlagName, defaultAbsoluteDir, "record the absolute directory of the display text")
	bindFlagToConfig(flags.Lookup(absoluteDirFlagName), absoluteDirKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

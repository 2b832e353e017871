package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"debugir.dev/pkg/debugir/internal/domain"
	domainmocks "debugir.dev/pkg/debugir/internal/domain/mocks"
	m "debugir.dev/pkg/debugir/internal/model"
)

// newTestRootCmd builds a fresh root with the given subcommands and swaps the
// package workflow for a mock for the duration of the test.
func newTestRootCmd(t *testing.T, subs ...*cobra.Command) (*cobra.Command, *domainmocks.MockWorkflow, *bytes.Buffer) {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	originalWorkflow := workflow
	workflow = mockWorkflow
	t.Cleanup(func() { workflow = originalWorkflow })

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.AddCommand(subs...)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	return cmd, mockWorkflow, out
}

// executeCmd runs cmd with args, logging into a temporary file.
func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()

	logFile := filepath.Join(t.TempDir(), "debugir.log")
	cmd.SetArgs(append(args, "--"+logFileFlagName, logFile))

	return cmd.Execute()
}

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.Path
	}{
		{"empty", []string{}, []m.Path{}},
		{"single", []string{"./..."}, []m.Path{m.Path("./...")}},
		{
			"multiple",
			[]string{"./ir", "main.ll", "./lib/..."},
			[]m.Path{m.Path("./ir"), m.Path("main.ll"), m.Path("./lib/...")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePaths(tt.args)
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "debugir", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)

	for _, name := range []string{
		instNamerFlagName,
		parallelFlagName,
		debugSuffixFlagName,
		producerFlagName,
		dwarfVersionFlagName,
		absoluteDirFlagName,
		verboseFlagName,
		logFileFlagName,
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	assert.Equal(t, "p", cmd.PersistentFlags().Lookup(parallelFlagName).Shorthand)
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup(verboseFlagName).Shorthand)
}

func TestRootCmd_HelpOutput(t *testing.T) {
	cmd, _, out := newTestRootCmd(t)

	err := executeCmd(t, cmd)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "every .ll file below ir")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"run", "lines", "check", "view", "watch", "init", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestInit(t *testing.T) {
	assert.NotNil(t, ui)
	assert.NotNil(t, irFileAdapter)
	assert.NotNil(t, sourceFSAdapter)
	assert.NotNil(t, lineMapStore)
	assert.NotNil(t, moduleVerifier)
	assert.NotNil(t, fileWatcher)
	assert.NotNil(t, workflow)
}

func TestSynthesisArgs_Defaults(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newViewCmd())

	mockWorkflow.EXPECT().View(
		mock.Anything, domain.ViewArgs{
			SynthesisArgs: domain.SynthesisArgs{
				InstNamer:   false,
				DebugSuffix: m.DefaultDebugSuffix,
				AbsoluteDir: true,
				Options: domain.Options{
					Producer:     domain.DefaultProducer,
					DwarfVersion: domain.DefaultDwarfVersion,
				},
			},
			Path: m.Path("add.ll"),
		},
	).Return(nil)

	require.NoError(t, executeCmd(t, cmd, "view", "add.ll"))
}

func TestSynthesisArgs_Flags(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newViewCmd())

	mockWorkflow.EXPECT().View(
		mock.Anything, domain.ViewArgs{
			SynthesisArgs: domain.SynthesisArgs{
				InstNamer:   true,
				DebugSuffix: ".g.ll",
				AbsoluteDir: false,
				Options: domain.Options{
					Producer:     "custom",
					DwarfVersion: 5,
				},
			},
			Path: m.Path("add.ll"),
		},
	).Return(nil)

	err := executeCmd(t, cmd, "view", "add.ll",
		"--instnamer",
		"--debug-suffix", ".g.ll",
		"--absolute-dir=false",
		"--producer", "custom",
		"--dwarf-version", "5",
	)
	require.NoError(t, err)
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd
	defer func() { rootCmd = originalRootCmd }()

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})
	mockCmd.SetArgs([]string{})

	rootCmd = mockCmd

	Execute()
}

func TestExecute_ProcessLevel_Failure(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS_FAIL") == "1" {
		mockCmd := &cobra.Command{
			Use: "test",
			RunE: func(_ *cobra.Command, _ []string) error {
				fmt.Fprintln(os.Stderr, "error occurred")
				return fmt.Errorf("command failed")
			},
		}
		mockCmd.SetArgs([]string{})
		rootCmd = mockCmd

		Execute()

		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestExecute_ProcessLevel_Failure")
	cmd.Env = append(os.Environ(), "TEST_EXECUTE_SUBPROCESS_FAIL=1")
	output, err := cmd.CombinedOutput()

	require.Error(t, err)

	var exitErr *exec.ExitError
	if assert.ErrorAs(t, err, &exitErr) {
		assert.Equal(t, 1, exitErr.ExitCode())
	}

	assert.Contains(t, string(output), "error occurred")
}

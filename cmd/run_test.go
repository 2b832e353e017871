package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"debugir.dev/pkg/debugir/internal/domain"
	m "debugir.dev/pkg/debugir/internal/model"
)

func TestRunCmd_Defaults(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Parallel == defaultParallel &&
			!args.Verify &&
			!args.LineMap &&
			args.DebugSuffix == m.DefaultDebugSuffix &&
			len(args.Paths) == 1 &&
			args.Paths[0] == m.Path("./...")
	})).Return([]m.FileReport(nil), nil)

	err := executeCmd(t, cmd, "run", "./...")
	require.NoError(t, err)

	mockWorkflow.AssertExpectations(t)
}

func TestRunCmd_Flags(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Parallel == 4 && args.Verify && args.LineMap && args.InstNamer
	})).Return([]m.FileReport(nil), nil)

	err := executeCmd(t, cmd, "run", "-p", "4", "--verify", "--line-map", "--instnamer", "main.ll")
	require.NoError(t, err)

	mockWorkflow.AssertExpectations(t)
}

func TestRunCmd_MultiplePaths(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return assert.ObjectsAreEqual([]m.Path{"a.ll", "./ir", "./lib/..."}, args.Paths)
	})).Return([]m.FileReport(nil), nil)

	err := executeCmd(t, cmd, "run", "a.ll", "./ir", "./lib/...")
	require.NoError(t, err)
}

func TestRunCmd_RequiresPath(t *testing.T) {
	cmd, _, _ := newTestRootCmd(t, newRunCmd())

	err := executeCmd(t, cmd, "run")
	require.Error(t, err)
}

func TestRunCmd_PropagatesError(t *testing.T) {
	cmd, mockWorkflow, _ := newTestRootCmd(t, newRunCmd())

	failure := errors.New("boom")
	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return([]m.FileReport(nil), failure)

	err := executeCmd(t, cmd, "run", "main.ll")
	require.ErrorIs(t, err, failure)
}

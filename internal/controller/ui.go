// Package controller provides output adapters for displaying debugir results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "debugir.dev/pkg/debugir/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModeCheck
	ModeWatch
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode  StartMode
	files int
}

// WithRunMode sets the UI to synthesis mode for the given number of files.
func WithRunMode(files int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
		c.files = files
	}
}

// WithCheckMode sets the UI to check mode for the given number of files.
func WithCheckMode(files int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
		c.files = files
	}
}

// WithWatchMode sets the UI to watch mode for the given number of files.
func WithWatchMode(files int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeWatch
		c.files = files
	}
}

// Line table output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// UI defines the interface for displaying synthesis results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayFileReport(ctx context.Context, report m.FileReport)
	DisplayFileError(ctx context.Context, path m.Path, err error)
	DisplayRunSummary(ctx context.Context, reports []m.FileReport) error
	DisplayLineTable(ctx context.Context, table *m.LineTable, format string) error
	DisplayCheckResults(ctx context.Context, results []m.CheckResult) error
	DisplayListing(ctx context.Context, listing m.Listing) error
	DisplayWatchEvent(ctx context.Context, paths []m.Path)
}

// NewUI returns the interactive UI when output goes to a terminal and the
// plain one otherwise.
func NewUI(cmd *cobra.Command, isTTY bool) UI {
	if isTTY {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

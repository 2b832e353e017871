package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedModule is matched by every MalformedModuleError.
	ErrMalformedModule = errors.New("malformed module")
	// ErrUnsupportedConstruct is matched by every UnsupportedConstructError.
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	// ErrRenderInconsistency is matched by every RenderInconsistencyError.
	ErrRenderInconsistency = errors.New("render inconsistency")
)

// MalformedModuleError reports a structural violation of the IR, such as a
// block without terminator or a definition without blocks.
type MalformedModuleError struct {
	Function string
	Block    string
	Line     int
	Reason   string
}

// Error implements error.
func (e *MalformedModuleError) Error() string {
	return fmt.Sprintf("malformed module: %s%s", location(e.Function, e.Block, e.Line), e.Reason)
}

// Is matches ErrMalformedModule.
func (e *MalformedModuleError) Is(target error) bool {
	return target == ErrMalformedModule
}

// UnsupportedConstructError names a construct the printer cannot reproduce.
type UnsupportedConstructError struct {
	Construct string
	Function  string
	Line      int
}

// Error implements error.
func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct %q%s", e.Construct, atLocation(e.Function, e.Line))
}

// Is matches ErrUnsupportedConstruct.
func (e *UnsupportedConstructError) Is(target error) bool {
	return target == ErrUnsupportedConstruct
}

// RenderInconsistencyError reports display text that does not reproduce its
// own line table when read back.
type RenderInconsistencyError struct {
	Reason string
	// Diff is a unified diff between the first and the second rendering,
	// empty when only the line tables differ.
	Diff string
}

// Error implements error.
func (e *RenderInconsistencyError) Error() string {
	if e.Diff == "" {
		return "render inconsistency: " + e.Reason
	}

	return "render inconsistency: " + e.Reason + "\n" + e.Diff
}

// Is matches ErrRenderInconsistency.
func (e *RenderInconsistencyError) Is(target error) bool {
	return target == ErrRenderInconsistency
}

func location(function, block string, line int) string {
	out := ""
	if function != "" {
		out += "@" + function
	}

	if block != "" {
		out += ":" + block
	}

	if line > 0 {
		out += fmt.Sprintf(" (line %d)", line)
	}

	if out != "" {
		out += ": "
	}

	return out
}

func atLocation(function string, line int) string {
	switch {
	case function != "" && line > 0:
		return fmt.Sprintf(" in @%s at line %d", function, line)
	case function != "":
		return " in @" + function
	case line > 0:
		return fmt.Sprintf(" at line %d", line)
	default:
		return ""
	}
}

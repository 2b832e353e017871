package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir/metadata"

	m "debugir.dev/pkg/debugir/internal/model"
)

// ModuleVerifier re-reads a rendered module with an independent LLVM
// assembly parser and reports the shape it sees.
type ModuleVerifier interface {
	Verify(name, text string) (*VerifyResult, error)
}

// VerifyResult is the structure an independent parser found.
type VerifyResult struct {
	Shape m.ModuleShape
	// DebugLocations counts instructions carrying a `!dbg` attachment.
	DebugLocations int
}

// ErrUnsupportedSyntax marks text the llir parser has no grammar for, such
// as opaque `ptr` types or debug records.
var ErrUnsupportedSyntax = errors.New("syntax not supported by llir")

// VerifyError reports a rendered module the independent parser rejected.
type VerifyError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
}

// Unwrap returns the parser error.
func (e *VerifyError) Unwrap() error {
	return e.Err
}

// LLIRModuleVerifier verifies modules with github.com/llir/llvm.
type LLIRModuleVerifier struct{}

// NewLLIRModuleVerifier constructs a LLIRModuleVerifier.
func NewLLIRModuleVerifier() *LLIRModuleVerifier {
	return &LLIRModuleVerifier{}
}

type mdAttached interface {
	MDAttachments() []*metadata.Attachment
}

// Verify parses text and counts functions, blocks and instructions. The
// terminator of each block counts as an instruction.
func (v *LLIRModuleVerifier) Verify(name, text string) (*VerifyResult, error) {
	mod, err := asm.ParseString(name, text)
	if err != nil {
		if strings.Contains(err.Error(), "syntax error") {
			err = fmt.Errorf("%w: %w", ErrUnsupportedSyntax, err)
		}

		return nil, &VerifyError{Path: name, Err: err}
	}

	result := &VerifyResult{}

	for _, f := range mod.Funcs {
		result.Shape.Functions++

		if len(f.Blocks) == 0 {
			continue
		}

		result.Shape.Definitions++

		for _, b := range f.Blocks {
			result.Shape.Blocks++
			result.Shape.Instructions += len(b.Insts) + 1

			for _, inst := range b.Insts {
				result.DebugLocations += countDbg(inst)
			}

			result.DebugLocations += countDbg(b.Term)
		}
	}

	return result, nil
}

func countDbg(v any) int {
	attached, ok := v.(mdAttached)
	if !ok {
		return 0
	}

	for _, md := range attached.MDAttachments() {
		if md.Name == "dbg" {
			return 1
		}
	}

	return 0
}

package domain

import (
	"context"
	"fmt"
	"log/slog"

	"debugir.dev/pkg/debugir/internal/adapter"
	m "debugir.dev/pkg/debugir/internal/model"
)

// Synthesizer turns a module without debug info into a display text and an
// augmented module whose locations point at that text.
type Synthesizer struct {
	projector *Projector
	opts      Options
}

// NewSynthesizer creates a Synthesizer that checks display round trips with parser.
func NewSynthesizer(parser adapter.IRFileAdapter, opts Options) *Synthesizer {
	return &Synthesizer{
		projector: NewProjector(parser),
		opts:      opts.withDefaults(),
	}
}

// Synthesize runs the pipeline on mod. dir and file name the display text
// as the debug info will refer to it. The stages run strictly in order:
// validation, debug info removal, display rendering with its line table,
// scope synthesis, location attachment and debug rendering.
func (s *Synthesizer) Synthesize(ctx context.Context, mod *m.Module, dir, file string) (*m.Synthesis, error) {
	if err := Validate(mod); err != nil {
		return nil, err
	}

	if HasDebugInfo(mod) {
		slog.Debug("Stripping existing debug info", "module", mod.Name)
	}

	display := StripDebugInfo(mod)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, table, err := s.projector.Project(display)
	if err != nil {
		slog.Error("Failed to render display text", "module", mod.Name, "error", err)
		return nil, err
	}

	table.File = file

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := SynthesizeScopes(display, table, dir, file, s.opts)
	if err != nil {
		return nil, fmt.Errorf("synthesize scopes: %w", err)
	}

	debug, err := AttachLocations(display, table, info, s.opts.Column)
	if err != nil {
		return nil, fmt.Errorf("attach locations: %w", err)
	}

	debugText, _, err := RenderDebug(debug)
	if err != nil {
		return nil, fmt.Errorf("render debug module: %w", err)
	}

	return &m.Synthesis{
		Display:     display,
		DisplayText: text,
		Debug:       debug,
		DebugText:   debugText,
		Lines:       table,
	}, nil
}

// Display renders the canonical display text of mod without synthesizing
// debug info.
func (s *Synthesizer) Display(mod *m.Module) (string, *m.LineTable, error) {
	if err := Validate(mod); err != nil {
		return "", nil, err
	}

	return s.projector.Project(StripDebugInfo(mod))
}

// CountScopes reports how many subprograms, lexical blocks and locations
// the augmented module carries.
func CountScopes(debug *m.Module) (int, int, int) {
	if debug.Debug == nil {
		return 0, 0, 0
	}

	arena := debug.Debug.Arena

	subprograms := arena.Count(func(n m.Node) bool {
		_, ok := n.(m.Subprogram)
		return ok
	})
	blocks := arena.Count(func(n m.Node) bool {
		_, ok := n.(m.LexicalBlock)
		return ok
	})
	locations := 0

	for _, fn := range debug.Functions {
		for _, bb := range fn.Blocks {
			for _, inst := range bb.Instructions {
				if inst.Location != m.NoNode {
					locations++
				}
			}
		}
	}

	return subprograms, blocks, locations
}

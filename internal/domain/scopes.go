package domain

import (
	"fmt"

	m "debugir.dev/pkg/debugir/internal/model"
)

const (
	// DefaultProducer is written into the compile unit.
	DefaultProducer = "debugir"
	// DefaultLanguage is the DWARF source language of the synthesized unit.
	DefaultLanguage = "DW_LANG_C99"
	// DefaultDwarfVersion is the value of the "Dwarf Version" module flag.
	DefaultDwarfVersion = 4
	// DebugInfoVersion is the metadata schema version LLVM expects.
	DebugInfoVersion = 3
	// NoColumn is the column of every synthesized location and lexical block.
	NoColumn = 0

	// flagWarning is the module flag behavior LLVM uses for debug flags.
	flagWarning = 2
)

// Options configures synthesized debug metadata.
type Options struct {
	Producer     string
	Language     string
	DwarfVersion int
	Column       int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Producer:     DefaultProducer,
		Language:     DefaultLanguage,
		DwarfVersion: DefaultDwarfVersion,
		Column:       NoColumn,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.Producer == "" {
		o.Producer = def.Producer
	}

	if o.Language == "" {
		o.Language = def.Language
	}

	if o.DwarfVersion == 0 {
		o.DwarfVersion = def.DwarfVersion
	}

	return o
}

// SynthesizeScopes builds the scope graph for mod: one file and compile
// unit, one subprogram per defined function and one lexical block per basic
// block of a definition. table must be the line table of the display
// rendering of mod. Declarations get no scope.
func SynthesizeScopes(mod *m.Module, table *m.LineTable, dir, file string, opts Options) (*m.DebugInfo, error) {
	if err := checkTable(mod, table); err != nil {
		return nil, err
	}

	opts = opts.withDefaults()
	arena := m.NewArena(nextMetadataID(mod))

	info := &m.DebugInfo{Arena: arena}
	info.File = arena.Add(m.File{Filename: file, Directory: dir})
	info.CompileUnit = arena.Add(m.CompileUnit{File: info.File, Producer: opts.Producer, Language: opts.Language})

	types := arena.Add(m.Tuple{Elements: []string{"null"}})
	subroutine := arena.Add(m.SubroutineType{Types: types})

	info.Flags = []m.NodeID{
		arena.Add(m.ModuleFlag{Behavior: flagWarning, Key: "Dwarf Version", Value: opts.DwarfVersion}),
		arena.Add(m.ModuleFlag{Behavior: flagWarning, Key: "Debug Info Version", Value: DebugInfoVersion}),
	}

	info.Subprograms = make([]m.NodeID, len(mod.Functions))
	info.Scopes = make([][]m.NodeID, len(mod.Functions))

	for i, fn := range mod.Functions {
		if !fn.Defined {
			continue
		}

		if len(fn.Blocks) == 0 {
			return nil, &MalformedModuleError{Function: fn.Name, Line: fn.Line, Reason: "definition without blocks"}
		}

		lines := table.Functions[i]

		sp := arena.Add(m.Subprogram{
			Name:      fn.Name,
			Scope:     info.File,
			File:      info.File,
			Line:      lines.Header,
			Type:      subroutine,
			ScopeLine: lines.Blocks[0].Line,
			Unit:      info.CompileUnit,
		})
		info.Subprograms[i] = sp

		scopes := make([]m.NodeID, len(fn.Blocks))
		for j := range fn.Blocks {
			scopes[j] = arena.Add(m.LexicalBlock{
				Scope:  sp,
				File:   info.File,
				Line:   lines.Blocks[j].Line,
				Column: opts.Column,
			})
		}

		info.Scopes[i] = scopes
	}

	return info, nil
}

// nextMetadataID returns one past the highest numbered metadata in mod.
func nextMetadataID(mod *m.Module) int {
	next := 0

	for _, e := range mod.EntitiesOf(m.EntityMetadataNode) {
		if e.MetadataID >= next {
			next = e.MetadataID + 1
		}
	}

	return next
}

// checkTable verifies that table has an entry for every function, block and
// instruction of mod.
func checkTable(mod *m.Module, table *m.LineTable) error {
	if len(table.Functions) != len(mod.Functions) {
		return fmt.Errorf("line table has %d functions, module has %d", len(table.Functions), len(mod.Functions))
	}

	for i, fn := range mod.Functions {
		lines := table.Functions[i]
		if lines.Name != fn.Name || lines.Defined != fn.Defined || len(lines.Blocks) != len(fn.Blocks) {
			return fmt.Errorf("line table entry %d (@%s) does not describe @%s", i, lines.Name, fn.Name)
		}

		for j, bb := range fn.Blocks {
			if len(lines.Blocks[j].Instructions) != len(bb.Instructions) {
				return fmt.Errorf("line table block %d of @%s has %d instructions, module has %d",
					j, fn.Name, len(lines.Blocks[j].Instructions), len(bb.Instructions))
			}
		}
	}

	return nil
}

package domain

import (
	"fmt"

	m "debugir.dev/pkg/debugir/internal/model"
)

// AttachLocations returns a copy of mod in which every instruction of every
// definition carries a location: its line from table and the lexical block
// of its basic block as scope. The copy owns info.
func AttachLocations(mod *m.Module, table *m.LineTable, info *m.DebugInfo, column int) (*m.Module, error) {
	if err := checkTable(mod, table); err != nil {
		return nil, err
	}

	if len(info.Scopes) != len(mod.Functions) {
		return nil, fmt.Errorf("scope graph has %d functions, module has %d", len(info.Scopes), len(mod.Functions))
	}

	out := mod.Clone()
	out.Debug = info

	for i, fn := range out.Functions {
		if !fn.Defined {
			continue
		}

		scopes := info.Scopes[i]
		if len(scopes) != len(fn.Blocks) {
			return nil, fmt.Errorf("scope graph has %d blocks for @%s, module has %d", len(scopes), fn.Name, len(fn.Blocks))
		}

		for j, bb := range fn.Blocks {
			for k, inst := range bb.Instructions {
				line, _ := table.Line(m.InstRef{Function: i, Block: j, Instruction: k})
				inst.Location = info.Arena.Add(m.Location{Line: line, Column: column, Scope: scopes[j]})
			}
		}
	}

	return out, nil
}

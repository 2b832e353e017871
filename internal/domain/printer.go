package domain

import (
	"strings"

	m "debugir.dev/pkg/debugir/internal/model"
)

// Render serializes mod and returns the text together with the line table
// describing it. Lines are counted while they are written, so the table
// always matches the returned text.
func Render(mod *m.Module) (string, *m.LineTable, error) {
	p := newPrinter(mod, nil)
	if err := p.print(); err != nil {
		return "", nil, err
	}

	return p.b.String(), p.table, nil
}

// RenderDebug serializes the augmented module: function headers reference
// their subprogram, instructions their location, and the arena nodes follow
// the retained metadata.
func RenderDebug(mod *m.Module) (string, *m.LineTable, error) {
	if mod.Debug == nil {
		return Render(mod)
	}

	p := newPrinter(mod, mod.Debug)
	if err := p.print(); err != nil {
		return "", nil, err
	}

	return p.b.String(), p.table, nil
}

type printer struct {
	mod   *m.Module
	debug *m.DebugInfo
	b     strings.Builder
	// next is the number of the line the next write starts on.
	next  int
	table *m.LineTable
}

func newPrinter(mod *m.Module, debug *m.DebugInfo) *printer {
	return &printer{
		mod:   mod,
		debug: debug,
		next:  1,
		table: &m.LineTable{File: mod.Name},
	}
}

// writeLine emits s and a line break and returns the line s starts on.
func (p *printer) writeLine(s string) int {
	line := p.next

	p.b.WriteString(s)
	p.b.WriteByte('\n')
	p.next += 1 + strings.Count(s, "\n")

	return line
}

func (p *printer) separate() {
	if p.next > 1 {
		p.writeLine("")
	}
}

func (p *printer) print() error {
	for _, e := range p.mod.EntitiesOf(m.EntityGlobal) {
		p.writeLine(e.Text)
	}

	for i, fn := range p.mod.Functions {
		p.separate()

		lines, err := p.printFunction(i, fn)
		if err != nil {
			return err
		}

		p.table.Functions = append(p.table.Functions, lines)
	}

	if groups := p.mod.EntitiesOf(m.EntityAttributeGroup); len(groups) > 0 {
		p.separate()

		for _, e := range groups {
			p.writeLine(e.Text)
		}
	}

	named := p.namedMetadata()
	nodes := p.mod.EntitiesOf(m.EntityMetadataNode)

	var arena []string
	if p.debug != nil {
		arena = p.debug.Arena.Lines()
	}

	if len(named)+len(nodes)+len(arena) > 0 {
		p.separate()

		for _, text := range named {
			p.writeLine(text)
		}

		for _, e := range nodes {
			p.writeLine(e.Text)
		}

		for _, text := range arena {
			p.writeLine(text)
		}
	}

	return nil
}

func (p *printer) printFunction(index int, fn *m.Function) (m.FunctionLines, error) {
	lines := m.FunctionLines{Name: fn.Name, Defined: fn.Defined}

	if !fn.Defined {
		lines.Header = p.writeLine(fn.Header)
		lines.End = lines.Header

		return lines, nil
	}

	if len(fn.Blocks) == 0 {
		return lines, &MalformedModuleError{Function: fn.Name, Line: fn.Line, Reason: "definition without blocks"}
	}

	header := fn.Header
	if sp := p.subprogram(index); sp != m.NoNode {
		header += " !dbg " + p.debug.Arena.Ref(sp)
	}

	lines.Header = p.writeLine(header + " {")

	for j, bb := range fn.Blocks {
		if len(bb.Instructions) == 0 {
			return lines, &MalformedModuleError{Function: fn.Name, Block: bb.Label, Line: bb.Line, Reason: "block without instructions"}
		}

		if j > 0 {
			p.writeLine("")
		}

		block := m.BlockLines{Label: bb.Label}

		if bb.Label != "" {
			block.Line = p.writeLine(bb.Label + ":")
		}

		for _, inst := range bb.Instructions {
			text := inst.Text
			if p.debug != nil && inst.Location != m.NoNode {
				text += ", !dbg " + p.debug.Arena.Ref(inst.Location)
			}

			block.Instructions = append(block.Instructions, p.writeLine("  "+text))
		}

		if bb.Label == "" {
			block.Line = block.Instructions[0]
		}

		lines.Blocks = append(lines.Blocks, block)
	}

	lines.End = p.writeLine("}")

	return lines, nil
}

func (p *printer) subprogram(index int) m.NodeID {
	if p.debug == nil || index >= len(p.debug.Subprograms) {
		return m.NoNode
	}

	return p.debug.Subprograms[index]
}

// namedMetadata returns the named metadata lines, with the compile unit
// list and debug module flags added for the augmented module.
func (p *printer) namedMetadata() []string {
	var out []string

	var flags []string

	if p.debug != nil {
		for _, id := range p.debug.Flags {
			flags = append(flags, p.debug.Arena.Ref(id))
		}
	}

	merged := false

	for _, e := range p.mod.EntitiesOf(m.EntityNamedMetadata) {
		text := e.Text
		if e.Name == namedModuleFlags && len(flags) > 0 {
			text = appendOperands(text, flags)
			merged = true
		}

		out = append(out, text)
	}

	if p.debug == nil {
		return out
	}

	if !merged && len(flags) > 0 {
		out = append(out, "!"+namedModuleFlags+" = !{"+strings.Join(flags, ", ")+"}")
	}

	return append(out, "!"+namedDebugCU+" = !{"+p.debug.Arena.Ref(p.debug.CompileUnit)+"}")
}

// appendOperands adds ops to the end of a `!name = !{...}` list.
func appendOperands(text string, ops []string) string {
	open := strings.Index(text, "!{")
	closing := strings.LastIndex(text, "}")

	if open < 0 || closing < open {
		return text
	}

	body := strings.TrimSpace(text[open+2 : closing])
	if body == "" {
		return text[:closing] + strings.Join(ops, ", ") + text[closing:]
	}

	return strings.TrimRight(text[:closing], " ") + ", " + strings.Join(ops, ", ") + text[closing:]
}

// Package model defines the IR, line table and debug metadata structures
// shared by debugir's layers.
package model

// EntityKind classifies top-level module entities other than functions.
type EntityKind int

const (
	// EntityGlobal covers source_filename, target lines, type definitions,
	// global variables, aliases, comdats and module asm.
	EntityGlobal EntityKind = iota
	// EntityAttributeGroup is an `attributes #N = { ... }` line.
	EntityAttributeGroup
	// EntityNamedMetadata is a `!name = !{...}` line.
	EntityNamedMetadata
	// EntityMetadataNode is a numbered `!N = ...` line.
	EntityMetadataNode
)

// Entity is a top-level line (or bracket-balanced group of lines) kept as
// opaque text.
type Entity struct {
	Kind EntityKind
	Text string
	// Name is set for named metadata, without the leading '!'.
	Name string
	// MetadataID is set for numbered metadata nodes.
	MetadataID int
	// Line is the 1-based line the entity started at in the parsed input.
	Line int
}

// Module is a parsed textual IR module.
type Module struct {
	// Name identifies the module, usually the path it was read from.
	Name      string
	Entities  []*Entity
	Functions []*Function
	// Debug is only set on the augmented module produced by synthesis.
	Debug *DebugInfo
}

// Function is a declaration (no body) or a definition.
type Function struct {
	// Name is the function name without the leading '@'.
	Name string
	// Header is the signature line without the trailing '{'.
	Header  string
	Defined bool
	Blocks  []*BasicBlock
	Line    int
}

// BasicBlock is a labelled run of instructions ending in a terminator.
type BasicBlock struct {
	// Label is empty for an implicitly numbered block: the entry block, or
	// a block that starts right after a terminator.
	Label        string
	Instructions []*Instruction
	Line         int
}

// Instruction keeps its operand text opaque. Text may span several physical
// lines (switch tables, landingpad clauses).
type Instruction struct {
	// Result is the defined local (e.g. "%5"), empty for void instructions.
	Result string
	Opcode string
	Text   string
	Line   int
	// Location is attached by the location attacher; NoNode until then.
	Location NodeID
}

var terminators = map[string]bool{
	"ret": true, "br": true, "switch": true, "indirectbr": true, "invoke": true, "callbr": true,
	"resume": true, "unreachable": true, "cleanupret": true, "catchret": true, "catchswitch": true,
}

// IsTerminator reports whether opcode ends a basic block.
func IsTerminator(opcode string) bool {
	return terminators[opcode]
}

// ModuleShape summarizes the structure that debug info is synthesized for.
type ModuleShape struct {
	Functions    int
	Definitions  int
	Blocks       int
	Instructions int
}

// Shape counts functions, definitions, blocks of definitions and their instructions.
func (mod *Module) Shape() ModuleShape {
	var shape ModuleShape

	for _, fn := range mod.Functions {
		shape.Functions++

		if !fn.Defined {
			continue
		}

		shape.Definitions++

		for _, bb := range fn.Blocks {
			shape.Blocks++
			shape.Instructions += len(bb.Instructions)
		}
	}

	return shape
}

// Clone deep-copies the module structure. Debug info is not copied.
func (mod *Module) Clone() *Module {
	out := &Module{
		Name:      mod.Name,
		Entities:  make([]*Entity, 0, len(mod.Entities)),
		Functions: make([]*Function, 0, len(mod.Functions)),
	}

	for _, e := range mod.Entities {
		cp := *e
		out.Entities = append(out.Entities, &cp)
	}

	for _, fn := range mod.Functions {
		out.Functions = append(out.Functions, fn.clone())
	}

	return out
}

func (fn *Function) clone() *Function {
	out := &Function{
		Name:    fn.Name,
		Header:  fn.Header,
		Defined: fn.Defined,
		Line:    fn.Line,
	}

	if fn.Blocks == nil {
		return out
	}

	out.Blocks = make([]*BasicBlock, 0, len(fn.Blocks))

	for _, bb := range fn.Blocks {
		cb := &BasicBlock{
			Label:        bb.Label,
			Line:         bb.Line,
			Instructions: make([]*Instruction, 0, len(bb.Instructions)),
		}

		for _, inst := range bb.Instructions {
			ci := *inst
			ci.Location = NoNode
			cb.Instructions = append(cb.Instructions, &ci)
		}

		out.Blocks = append(out.Blocks, cb)
	}

	return out
}

// EntitiesOf returns the entities of the given kind in module order.
func (mod *Module) EntitiesOf(kind EntityKind) []*Entity {
	var out []*Entity

	for _, e := range mod.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

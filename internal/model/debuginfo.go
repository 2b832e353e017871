package model

import (
	"fmt"
	"strings"
)

// NodeID identifies a metadata node inside an Arena. The zero value means
// "no node".
type NodeID int

// NoNode is the absent node reference.
const NoNode NodeID = 0

// Node is a debug metadata node owned by an Arena.
type Node interface {
	// Distinct nodes are never uniqued.
	Distinct() bool
	// Body renders the node, using ref to print references to other nodes.
	Body(ref func(NodeID) string) string
}

// CompileUnit is the DICompileUnit of the module.
type CompileUnit struct {
	File     NodeID
	Producer string
	Language string
}

// Distinct implements Node.
func (CompileUnit) Distinct() bool { return true }

// Body implements Node.
func (n CompileUnit) Body(ref func(NodeID) string) string {
	return fmt.Sprintf(
		"!DICompileUnit(language: %s, file: %s, producer: %s, isOptimized: false, runtimeVersion: 0, emissionKind: FullDebug)",
		n.Language, ref(n.File), QuoteMetadataString(n.Producer),
	)
}

// File is the DIFile naming the display text.
type File struct {
	Filename  string
	Directory string
}

// Distinct implements Node.
func (File) Distinct() bool { return false }

// Body implements Node.
func (n File) Body(func(NodeID) string) string {
	return fmt.Sprintf("!DIFile(filename: %s, directory: %s)", QuoteMetadataString(n.Filename), QuoteMetadataString(n.Directory))
}

// Tuple is a generic metadata tuple with pre-rendered elements.
type Tuple struct {
	Elements []string
}

// Distinct implements Node.
func (Tuple) Distinct() bool { return false }

// Body implements Node.
func (n Tuple) Body(func(NodeID) string) string {
	return "!{" + strings.Join(n.Elements, ", ") + "}"
}

// SubroutineType is the DISubroutineType shared by all subprograms.
type SubroutineType struct {
	Types NodeID
}

// Distinct implements Node.
func (SubroutineType) Distinct() bool { return false }

// Body implements Node.
func (n SubroutineType) Body(ref func(NodeID) string) string {
	return fmt.Sprintf("!DISubroutineType(types: %s)", ref(n.Types))
}

// Subprogram is the DISubprogram of one defined function.
type Subprogram struct {
	Name      string
	Scope     NodeID
	File      NodeID
	Line      int
	Type      NodeID
	ScopeLine int
	Unit      NodeID
}

// Distinct implements Node.
func (Subprogram) Distinct() bool { return true }

// Body implements Node.
func (n Subprogram) Body(ref func(NodeID) string) string {
	return fmt.Sprintf(
		"!DISubprogram(name: %s, scope: %s, file: %s, line: %d, type: %s, scopeLine: %d, spFlags: DISPFlagDefinition, unit: %s)",
		QuoteMetadataString(n.Name), ref(n.Scope), ref(n.File), n.Line, ref(n.Type), n.ScopeLine, ref(n.Unit),
	)
}

// LexicalBlock is the DILexicalBlock of one basic block.
type LexicalBlock struct {
	Scope  NodeID
	File   NodeID
	Line   int
	Column int
}

// Distinct implements Node.
func (LexicalBlock) Distinct() bool { return true }

// Body implements Node.
func (n LexicalBlock) Body(ref func(NodeID) string) string {
	return fmt.Sprintf("!DILexicalBlock(scope: %s, file: %s, line: %d, column: %d)", ref(n.Scope), ref(n.File), n.Line, n.Column)
}

// Location is the DILocation attached to one instruction.
type Location struct {
	Line   int
	Column int
	Scope  NodeID
}

// Distinct implements Node.
func (Location) Distinct() bool { return false }

// Body implements Node.
func (n Location) Body(ref func(NodeID) string) string {
	return fmt.Sprintf("!DILocation(line: %d, column: %d, scope: %s)", n.Line, n.Column, ref(n.Scope))
}

// ModuleFlag is one `!llvm.module.flags` entry.
type ModuleFlag struct {
	Behavior int
	Key      string
	Value    int
}

// Distinct implements Node.
func (ModuleFlag) Distinct() bool { return false }

// Body implements Node.
func (n ModuleFlag) Body(func(NodeID) string) string {
	return fmt.Sprintf("!{i32 %d, !%s, i32 %d}", n.Behavior, QuoteMetadataString(n.Key), n.Value)
}

// Arena owns every metadata node created by one synthesis run. Nodes are
// referenced by NodeID and printed as `!N` where N is base plus the node's
// index, so they never collide with metadata kept from the input.
type Arena struct {
	base   int
	nodes  []Node
	unique map[string]NodeID
}

// NewArena creates an arena whose first node is printed as `!base`.
func NewArena(base int) *Arena {
	return &Arena{
		base:   base,
		unique: make(map[string]NodeID),
	}
}

// Add stores n and returns its id. Structurally equal non-distinct nodes
// share one id.
func (a *Arena) Add(n Node) NodeID {
	var key string

	if !n.Distinct() {
		key = fmt.Sprintf("%T:%s", n, n.Body(a.Ref))
		if id, ok := a.unique[key]; ok {
			return id
		}
	}

	a.nodes = append(a.nodes, n)
	id := NodeID(len(a.nodes))

	if key != "" {
		a.unique[key] = id
	}

	return id
}

// Node returns the node stored under id.
func (a *Arena) Node(id NodeID) (Node, bool) {
	if id <= NoNode || int(id) > len(a.nodes) {
		return nil, false
	}

	return a.nodes[id-1], true
}

// Len returns the number of stored nodes.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// MetadataID returns the number id is printed with.
func (a *Arena) MetadataID(id NodeID) int {
	return a.base + int(id) - 1
}

// Ref renders a reference to id, `null` for NoNode.
func (a *Arena) Ref(id NodeID) string {
	if id == NoNode {
		return "null"
	}

	return fmt.Sprintf("!%d", a.MetadataID(id))
}

// Parent returns the enclosing scope of a scope-like node: the scope of a
// location or lexical block and the unit of a subprogram.
func (a *Arena) Parent(id NodeID) NodeID {
	n, ok := a.Node(id)
	if !ok {
		return NoNode
	}

	switch node := n.(type) {
	case Location:
		return node.Scope
	case LexicalBlock:
		return node.Scope
	case Subprogram:
		return node.Unit
	default:
		return NoNode
	}
}

// Root follows Parent links until a node without parent is reached.
func (a *Arena) Root(id NodeID) NodeID {
	for steps := 0; steps <= len(a.nodes); steps++ {
		parent := a.Parent(id)
		if parent == NoNode {
			return id
		}

		id = parent
	}

	return NoNode
}

// Lines renders every node as a `!N = ...` definition in id order.
func (a *Arena) Lines() []string {
	lines := make([]string, 0, len(a.nodes))

	for i, n := range a.nodes {
		prefix := ""
		if n.Distinct() {
			prefix = "distinct "
		}

		lines = append(lines, fmt.Sprintf("%s = %s%s", a.Ref(NodeID(i+1)), prefix, n.Body(a.Ref)))
	}

	return lines
}

// Count returns how many nodes satisfy match.
func (a *Arena) Count(match func(Node) bool) int {
	count := 0

	for _, n := range a.nodes {
		if match(n) {
			count++
		}
	}

	return count
}

// DebugInfo is the scope graph carried by the augmented module.
type DebugInfo struct {
	Arena       *Arena
	File        NodeID
	CompileUnit NodeID
	Flags       []NodeID
	// Subprograms is parallel to Module.Functions; NoNode for declarations.
	Subprograms []NodeID
	// Scopes holds the lexical block of every block, indexed like
	// Module.Functions[i].Blocks[j].
	Scopes [][]NodeID
}

// QuoteMetadataString renders s as an LLVM metadata string literal.
func QuoteMetadataString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%02X", c)
			continue
		}

		b.WriteByte(c)
	}

	b.WriteByte('"')

	return b.String()
}

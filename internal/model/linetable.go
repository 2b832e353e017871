package model

import (
	"fmt"
)

// LineTable records the 1-based line at which every function, block and
// instruction starts in a rendered module. Functions are indexed like
// Module.Functions, blocks and instructions like their parents' slices.
type LineTable struct {
	File      string          `yaml:"file" msgpack:"file"`
	Functions []FunctionLines `yaml:"functions" msgpack:"functions"`
}

// FunctionLines is the line range of one function. Declarations have
// Header == End and no blocks.
type FunctionLines struct {
	Name    string       `yaml:"name" msgpack:"name"`
	Defined bool         `yaml:"defined" msgpack:"defined"`
	Header  int          `yaml:"header" msgpack:"header"`
	End     int          `yaml:"end" msgpack:"end"`
	Blocks  []BlockLines `yaml:"blocks,omitempty" msgpack:"blocks"`
}

// BlockLines holds the line of a block and of each of its instructions.
// Line is the label line, or the first instruction line for an unlabelled
// entry block.
type BlockLines struct {
	Label        string `yaml:"label,omitempty" msgpack:"label"`
	Line         int    `yaml:"line" msgpack:"line"`
	Instructions []int  `yaml:"instructions" msgpack:"instructions"`
}

// InstRef addresses one instruction by position.
type InstRef struct {
	Function    int
	Block       int
	Instruction int
}

// String implements fmt.Stringer.
func (r InstRef) String() string {
	return fmt.Sprintf("function %d, block %d, instruction %d", r.Function, r.Block, r.Instruction)
}

// Line returns the line recorded for ref.
func (t *LineTable) Line(ref InstRef) (int, bool) {
	if ref.Function < 0 || ref.Function >= len(t.Functions) {
		return 0, false
	}

	blocks := t.Functions[ref.Function].Blocks
	if ref.Block < 0 || ref.Block >= len(blocks) {
		return 0, false
	}

	insts := blocks[ref.Block].Instructions
	if ref.Instruction < 0 || ref.Instruction >= len(insts) {
		return 0, false
	}

	return insts[ref.Instruction], true
}

// InstructionCount returns the number of instruction entries.
func (t *LineTable) InstructionCount() int {
	count := 0

	for _, fn := range t.Functions {
		for _, bb := range fn.Blocks {
			count += len(bb.Instructions)
		}
	}

	return count
}

// Validate checks that lines are positive and strictly increasing inside
// every function and that functions do not overlap.
func (t *LineTable) Validate() error {
	last := 0

	for _, fn := range t.Functions {
		if fn.Header <= last {
			return fmt.Errorf("function @%s starts at line %d, not after line %d", fn.Name, fn.Header, last)
		}

		last = fn.Header

		for _, bb := range fn.Blocks {
			switch {
			case bb.Label != "":
				if bb.Line <= last {
					return fmt.Errorf("block %q of @%s at line %d is not after line %d", bb.Label, fn.Name, bb.Line, last)
				}

				last = bb.Line
			case len(bb.Instructions) > 0 && bb.Line != bb.Instructions[0]:
				return fmt.Errorf("unlabelled block of @%s at line %d does not start at its first instruction", fn.Name, bb.Line)
			}

			for _, line := range bb.Instructions {
				if line <= last {
					return fmt.Errorf("instruction of @%s at line %d is not after line %d", fn.Name, line, last)
				}

				last = line
			}
		}

		if fn.End < last || (len(fn.Blocks) > 0 && fn.End == last) {
			return fmt.Errorf("function @%s closes at line %d, not after line %d", fn.Name, fn.End, last)
		}

		last = fn.End
	}

	return nil
}

// Equal reports whether both tables record the same lines for the same
// entities. The File name is not compared.
func (t *LineTable) Equal(other *LineTable) bool {
	_, ok := t.Mismatch(other)
	return !ok
}

// Mismatch describes the first entity whose line differs between t and other.
func (t *LineTable) Mismatch(other *LineTable) (string, bool) {
	if len(t.Functions) != len(other.Functions) {
		return fmt.Sprintf("function count %d != %d", len(t.Functions), len(other.Functions)), true
	}

	for i := range t.Functions {
		a, b := t.Functions[i], other.Functions[i]
		if a.Name != b.Name || a.Defined != b.Defined || a.Header != b.Header || a.End != b.End || len(a.Blocks) != len(b.Blocks) {
			return fmt.Sprintf("function @%s: lines %d-%d != @%s lines %d-%d", a.Name, a.Header, a.End, b.Name, b.Header, b.End), true
		}

		for j := range a.Blocks {
			if msg, ok := blockMismatch(a.Name, a.Blocks[j], b.Blocks[j]); ok {
				return msg, true
			}
		}
	}

	return "", false
}

func blockMismatch(fn string, a, b BlockLines) (string, bool) {
	if a.Label != b.Label || a.Line != b.Line || len(a.Instructions) != len(b.Instructions) {
		return fmt.Sprintf("@%s block %q at line %d != block %q at line %d", fn, a.Label, a.Line, b.Label, b.Line), true
	}

	for k := range a.Instructions {
		if a.Instructions[k] != b.Instructions[k] {
			return fmt.Sprintf("@%s block %q instruction %d at line %d != line %d", fn, a.Label, k, a.Instructions[k], b.Instructions[k]), true
		}
	}

	return "", false
}

// Annotations maps every recorded line to a short description of the
// entity that starts on it, e.g. "@main", "@main:entry" or "@main:entry#2".
func (t *LineTable) Annotations() map[int]string {
	out := make(map[int]string)

	for _, fn := range t.Functions {
		out[fn.Header] = "@" + fn.Name

		for j, bb := range fn.Blocks {
			label := bb.Label
			if label == "" {
				label = fmt.Sprintf("<%d>", j)
			}

			if bb.Label != "" {
				out[bb.Line] = "@" + fn.Name + ":" + label
			}

			for k, line := range bb.Instructions {
				out[line] = fmt.Sprintf("@%s:%s#%d", fn.Name, label, k)
			}
		}
	}

	return out
}

// LineMap is a persisted line table together with the SHA-256 of the
// display text it describes.
type LineMap struct {
	DisplayHash string
	Table       *LineTable
}

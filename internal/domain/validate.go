package domain

import (
	"strings"

	m "debugir.dev/pkg/debugir/internal/model"
)

var opcodes = map[string]bool{
	"fneg": true,
	"add":  true, "fadd": true, "sub": true, "fsub": true, "mul": true, "fmul": true,
	"udiv": true, "sdiv": true, "fdiv": true, "urem": true, "srem": true, "frem": true,
	"shl": true, "lshr": true, "ashr": true, "and": true, "or": true, "xor": true,
	"extractelement": true, "insertelement": true, "shufflevector": true,
	"extractvalue": true, "insertvalue": true,
	"alloca": true, "load": true, "store": true, "fence": true, "cmpxchg": true, "atomicrmw": true,
	"getelementptr": true,
	"trunc": true, "zext": true, "sext": true, "fptrunc": true, "fpext": true, "fptoui": true,
	"fptosi": true, "uitofp": true, "sitofp": true, "ptrtoint": true, "inttoptr": true,
	"bitcast": true, "addrspacecast": true,
	"icmp": true, "fcmp": true, "phi": true, "select": true, "freeze": true, "call": true,
	"va_arg": true, "landingpad": true, "catchpad": true, "cleanuppad": true,
	"#dbg_value": true, "#dbg_declare": true, "#dbg_assign": true, "#dbg_label": true,
}

// IsTerminator reports whether opcode ends a basic block.
func IsTerminator(opcode string) bool {
	return m.IsTerminator(opcode)
}

// Validate checks that mod can be printed and that every definition is
// structurally sound.
func Validate(mod *m.Module) error {
	for _, e := range mod.Entities {
		if e.Kind == m.EntityGlobal && strings.HasPrefix(e.Text, "uselistorder") {
			return &UnsupportedConstructError{Construct: "uselistorder", Line: e.Line}
		}
	}

	for _, fn := range mod.Functions {
		if err := validateFunction(fn); err != nil {
			return err
		}
	}

	return nil
}

func validateFunction(fn *m.Function) error {
	if !fn.Defined {
		return nil
	}

	if len(fn.Blocks) == 0 {
		return &MalformedModuleError{Function: fn.Name, Line: fn.Line, Reason: "definition without blocks"}
	}

	for _, bb := range fn.Blocks {
		if len(bb.Instructions) == 0 {
			return &MalformedModuleError{Function: fn.Name, Block: bb.Label, Line: bb.Line, Reason: "block without instructions"}
		}

		last := len(bb.Instructions) - 1

		for i, inst := range bb.Instructions {
			if strings.HasPrefix(inst.Opcode, "uselistorder") {
				return &UnsupportedConstructError{Construct: inst.Opcode, Function: fn.Name, Line: inst.Line}
			}

			if !IsTerminator(inst.Opcode) && !opcodes[inst.Opcode] {
				return &UnsupportedConstructError{Construct: inst.Opcode, Function: fn.Name, Line: inst.Line}
			}

			switch {
			case i < last && IsTerminator(inst.Opcode):
				return &MalformedModuleError{
					Function: fn.Name, Block: bb.Label, Line: inst.Line,
					Reason: "terminator " + inst.Opcode + " in the middle of a block",
				}
			case i == last && !IsTerminator(inst.Opcode):
				return &MalformedModuleError{
					Function: fn.Name, Block: bb.Label, Line: inst.Line,
					Reason: "block does not end in a terminator",
				}
			}
		}
	}

	return nil
}

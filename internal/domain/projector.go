package domain

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"debugir.dev/pkg/debugir/internal/adapter"
	m "debugir.dev/pkg/debugir/internal/model"
)

// Projector renders display modules and proves that the text reproduces its
// own line table when it is read back.
type Projector struct {
	parser adapter.IRFileAdapter
}

// NewProjector creates a Projector that re-reads text with parser.
func NewProjector(parser adapter.IRFileAdapter) *Projector {
	return &Projector{parser: parser}
}

// Project renders mod and checks the round trip: parsing the text and
// rendering it again must give identical text and line table, and every
// recorded instruction line must hold that instruction.
func (p *Projector) Project(mod *m.Module) (string, *m.LineTable, error) {
	text, table, err := Render(mod)
	if err != nil {
		return "", nil, err
	}

	if err := table.Validate(); err != nil {
		return "", nil, &RenderInconsistencyError{Reason: err.Error()}
	}

	if err := checkPhysicalLines(mod, table, text); err != nil {
		return "", nil, err
	}

	reparsed, err := p.parser.Parse(mod.Name, []byte(text))
	if err != nil {
		return "", nil, &RenderInconsistencyError{Reason: fmt.Sprintf("display text does not parse: %v", err)}
	}

	again, againTable, err := Render(reparsed)
	if err != nil {
		return "", nil, &RenderInconsistencyError{Reason: fmt.Sprintf("display text does not render: %v", err)}
	}

	if again != text {
		return "", nil, &RenderInconsistencyError{
			Reason: "display text changes when read back",
			Diff:   UnifiedDiff(mod.Name, mod.Name+" (reparsed)", text, again),
		}
	}

	if msg, bad := table.Mismatch(againTable); bad {
		return "", nil, &RenderInconsistencyError{Reason: "line table changes when read back: " + msg}
	}

	return text, table, nil
}

// checkPhysicalLines verifies that every recorded instruction line starts
// with the first line of that instruction's text.
func checkPhysicalLines(mod *m.Module, table *m.LineTable, text string) error {
	physical := strings.Split(text, "\n")

	for i, fn := range mod.Functions {
		for j, bb := range fn.Blocks {
			for k, inst := range bb.Instructions {
				ref := m.InstRef{Function: i, Block: j, Instruction: k}

				line, ok := table.Line(ref)
				if !ok || line < 1 || line > len(physical) {
					return &RenderInconsistencyError{Reason: "no line recorded for " + ref.String()}
				}

				first, _, _ := strings.Cut(inst.Text, "\n")
				if strings.TrimSpace(physical[line-1]) != strings.TrimSpace(first) {
					return &RenderInconsistencyError{
						Reason: fmt.Sprintf("line %d does not hold %s of @%s", line, ref, fn.Name),
					}
				}
			}
		}
	}

	return nil
}

// UnifiedDiff returns a unified diff from a to b, empty when they are equal.
func UnifiedDiff(fromFile, toFile, a, b string) string {
	if a == b {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}

	return diff
}

package adapter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	m "debugir.dev/pkg/debugir/internal/model"
)

// IRFileAdapter encapsulates textual LLVM IR parsing so the domain layer can
// focus on debug-info synthesis while the syntax details stay in an
// infrastructure component.
type IRFileAdapter interface {
	// Parse builds a module from the textual IR in src. name identifies the
	// module in errors and becomes Module.Name.
	Parse(name string, src []byte) (*m.Module, error)
}

// ParseError reports input that is not recognisable as textual IR.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// LocalIRFileAdapter provides a concrete IRFileAdapter for LLVM assembly.
// Instruction operands are kept as opaque text; only the structure
// (entities, functions, blocks, instruction boundaries) is recognised.
type LocalIRFileAdapter struct{}

// NewLocalIRFileAdapter constructs a LocalIRFileAdapter.
func NewLocalIRFileAdapter() *LocalIRFileAdapter {
	return &LocalIRFileAdapter{}
}

// Parse implements IRFileAdapter.
func (a *LocalIRFileAdapter) Parse(name string, src []byte) (*m.Module, error) {
	p := &irParser{
		name:  name,
		lines: splitLines(src),
		mod:   &m.Module{Name: name},
	}

	if err := p.parse(); err != nil {
		return nil, err
	}

	return p.mod, nil
}

var (
	metadataNodeRe  = regexp.MustCompile(`^!(\d+)\s*=`)
	namedMetadataRe = regexp.MustCompile(`^!([-a-zA-Z$._][-a-zA-Z$._0-9]*)\s*=`)
	labelRe         = regexp.MustCompile(`^([-a-zA-Z$._0-9]+|"[^"]*"):$`)
	commentLabelRe  = regexp.MustCompile(`^;\s*<label>:(\d+)`)
	resultRe        = regexp.MustCompile(`^(%(?:[-a-zA-Z$._0-9]+|"[^"]*"))\s*=\s*`)
	globalNameRe    = regexp.MustCompile(`@("[^"]*"|[-a-zA-Z$._0-9]+)`)
)

// globalPrefixes lists how top-level entities other than functions,
// attribute groups and metadata may start.
var globalPrefixes = []string{"@", "%", "$", "source_filename", "target", "module", "uselistorder"}

type irParser struct {
	name  string
	lines []string
	pos   int
	mod   *m.Module
}

func (p *irParser) errorf(line int, format string, args ...any) error {
	return &ParseError{Path: p.name, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *irParser) parse() error {
	for p.pos < len(p.lines) {
		code := strings.TrimSpace(stripComment(p.lines[p.pos]))
		if code == "" {
			p.pos++
			continue
		}

		var err error

		switch {
		case hasKeyword(code, "define"):
			err = p.parseDefinition()
		case hasKeyword(code, "declare"):
			err = p.parseDeclaration()
		default:
			err = p.parseEntity()
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// collect returns the logical line starting at p.pos. Continuation lines are
// consumed while brackets are unbalanced; they keep their indentation.
func (p *irParser) collect() (string, int, error) {
	start := p.pos + 1
	first := strings.TrimSpace(stripComment(p.lines[p.pos]))
	parts := []string{first}
	depth := bracketDepth(first)
	p.pos++

	for depth > 0 && p.pos < len(p.lines) {
		part := strings.TrimRight(stripComment(p.lines[p.pos]), " \t")
		p.pos++

		if strings.TrimSpace(part) == "" {
			continue
		}

		parts = append(parts, part)
		depth += bracketDepth(part)
	}

	if depth != 0 {
		return "", start, p.errorf(start, "unbalanced brackets")
	}

	return strings.Join(parts, "\n"), start, nil
}

func (p *irParser) parseEntity() error {
	text, line, err := p.collect()
	if err != nil {
		return err
	}

	entity := &m.Entity{Text: text, Line: line}

	switch {
	case hasKeyword(text, "attributes"):
		entity.Kind = m.EntityAttributeGroup
	case metadataNodeRe.MatchString(text):
		id, convErr := strconv.Atoi(metadataNodeRe.FindStringSubmatch(text)[1])
		if convErr != nil {
			return p.errorf(line, "invalid metadata id: %v", convErr)
		}

		entity.Kind = m.EntityMetadataNode
		entity.MetadataID = id
	case namedMetadataRe.MatchString(text):
		entity.Kind = m.EntityNamedMetadata
		entity.Name = namedMetadataRe.FindStringSubmatch(text)[1]
	case strings.HasPrefix(text, "!"):
		return p.errorf(line, "malformed metadata definition")
	case hasAnyPrefix(text, globalPrefixes):
		entity.Kind = m.EntityGlobal
	default:
		return p.errorf(line, "unexpected top-level construct %q", firstField(text))
	}

	p.mod.Entities = append(p.mod.Entities, entity)

	return nil
}

func (p *irParser) parseDeclaration() error {
	text, line, err := p.collect()
	if err != nil {
		return err
	}

	name, ok := functionName(text)
	if !ok {
		return p.errorf(line, "declaration without a function name")
	}

	p.mod.Functions = append(p.mod.Functions, &m.Function{
		Name:   name,
		Header: text,
		Line:   line,
	})

	return nil
}

func (p *irParser) parseDefinition() error {
	start := p.pos + 1

	var header []string

	for {
		if p.pos >= len(p.lines) {
			return p.errorf(start, "function header without body")
		}

		code := strings.TrimSpace(stripComment(p.lines[p.pos]))
		p.pos++

		if code == "" {
			continue
		}

		header = append(header, code)
		if strings.HasSuffix(code, "{") {
			break
		}
	}

	text := strings.TrimSpace(strings.TrimSuffix(strings.Join(header, " "), "{"))

	name, ok := functionName(text)
	if !ok {
		return p.errorf(start, "definition without a function name")
	}

	fn := &m.Function{
		Name:    name,
		Header:  text,
		Defined: true,
		Line:    start,
	}

	if err := p.parseBody(fn); err != nil {
		return err
	}

	p.mod.Functions = append(p.mod.Functions, fn)

	return nil
}

func (p *irParser) parseBody(fn *m.Function) error {
	var block *m.BasicBlock

	// terminated is set once the current block has seen its terminator; an
	// unlabelled instruction after it opens an implicitly numbered block.
	terminated := false

	for {
		if p.pos >= len(p.lines) {
			return p.errorf(fn.Line, "unterminated body of @%s", fn.Name)
		}

		raw := p.lines[p.pos]
		lineNo := p.pos + 1
		code := strings.TrimSpace(stripComment(raw))

		if code == "" {
			if match := commentLabelRe.FindStringSubmatch(strings.TrimSpace(raw)); match != nil {
				block = &m.BasicBlock{Label: match[1], Line: lineNo}
				fn.Blocks = append(fn.Blocks, block)
				terminated = false
			}

			p.pos++

			continue
		}

		if code == "}" {
			p.pos++
			return nil
		}

		if match := labelRe.FindStringSubmatch(code); match != nil {
			block = &m.BasicBlock{Label: match[1], Line: lineNo}
			fn.Blocks = append(fn.Blocks, block)
			terminated = false
			p.pos++

			continue
		}

		if block == nil || terminated {
			block = &m.BasicBlock{Line: lineNo}
			fn.Blocks = append(fn.Blocks, block)
		}

		inst, err := p.parseInstruction()
		if err != nil {
			return err
		}

		block.Instructions = append(block.Instructions, inst)
		terminated = m.IsTerminator(inst.Opcode)
	}
}

func (p *irParser) parseInstruction() (*m.Instruction, error) {
	text, line, err := p.collect()
	if err != nil {
		return nil, err
	}

	result, opcode := splitInstructionHead(text)
	if opcode == "" {
		return nil, p.errorf(line, "instruction without opcode")
	}

	for p.pos < len(p.lines) && isContinuation(opcode, p.lines[p.pos]) {
		text += "\n" + strings.TrimRight(stripComment(p.lines[p.pos]), " \t")
		p.pos++
	}

	return &m.Instruction{
		Result: result,
		Opcode: opcode,
		Text:   text,
		Line:   line,
	}, nil
}

// splitInstructionHead extracts the defined local and the opcode.
func splitInstructionHead(text string) (string, string) {
	var result string

	rest := text
	if match := resultRe.FindStringSubmatch(text); match != nil {
		result = match[1]
		rest = text[len(match[0]):]
	}

	fields := strings.Fields(strings.SplitN(rest, "\n", 2)[0])
	if len(fields) == 0 {
		return result, ""
	}

	opcode := fields[0]

	switch {
	case (opcode == "tail" || opcode == "musttail" || opcode == "notail") && len(fields) > 1:
		opcode = fields[1]
	case strings.HasPrefix(opcode, "#dbg_"):
		opcode, _, _ = strings.Cut(opcode, "(")
	}

	return result, opcode
}

// isContinuation reports whether line continues an instruction with the
// given opcode: landingpad clauses and the `to label` part of invoke/callbr.
func isContinuation(opcode, line string) bool {
	field := firstField(strings.TrimSpace(stripComment(line)))

	switch opcode {
	case "landingpad":
		return field == "cleanup" || field == "catch" || field == "filter"
	case "invoke", "callbr":
		return field == "to"
	default:
		return false
	}
}

// functionName returns the unquoted name of the first global identifier in header.
func functionName(header string) (string, bool) {
	match := globalNameRe.FindStringSubmatch(header)
	if match == nil {
		return "", false
	}

	return strings.Trim(match[1], `"`), true
}

func splitLines(src []byte) []string {
	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	return strings.Split(text, "\n")
}

// stripComment removes a trailing `;` comment outside string literals.
func stripComment(line string) string {
	inQuote := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				return strings.TrimRight(line[:i], " \t")
			}
		}
	}

	return strings.TrimRight(line, " \t")
}

// bracketDepth returns the net bracket nesting opened by line outside string literals.
func bracketDepth(line string) int {
	depth := 0
	inQuote := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}

		if inQuote {
			continue
		}

		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}

	return depth
}

func hasKeyword(code, keyword string) bool {
	return code == keyword || strings.HasPrefix(code, keyword+" ")
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}

	return false
}

func firstField(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

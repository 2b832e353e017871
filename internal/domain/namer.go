package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	m "debugir.dev/pkg/debugir/internal/model"
)

var (
	numberedTypeRe = regexp.MustCompile(`^%\d+\s*=\s*type\b`)
	localNameRe    = regexp.MustCompile(`%([-a-zA-Z$._][-a-zA-Z$._0-9]*)`)
	blockAddressRe = regexp.MustCompile(`blockaddress\(\s*@("[^"]*"|[-a-zA-Z$._0-9]+)\s*,\s*(%[0-9]+)\s*\)`)
)

// NameResult reports what the value namer did.
type NameResult struct {
	Renamed int
	// Skipped is set when the module could not be named safely.
	Skipped string
}

// NameValues gives every anonymous local value of every definition a
// stable name: arguments become %argN, blocks %bbN and instructions %iN,
// where N is the original number. Only names change, so the rendered line
// count of every function is preserved. Modules with numbered types are
// left untouched because `%N` is ambiguous there, and so are modules with
// implicitly numbered blocks after the entry block. Block operands of
// `blockaddress(@fn, %N)` are renamed with fn's names wherever they occur.
func NameValues(mod *m.Module) (*m.Module, NameResult) {
	for _, e := range mod.EntitiesOf(m.EntityGlobal) {
		if numberedTypeRe.MatchString(e.Text) {
			return mod, NameResult{Skipped: "module defines numbered types"}
		}
	}

	for _, fn := range mod.Functions {
		for j, bb := range fn.Blocks {
			if j > 0 && bb.Label == "" {
				return mod, NameResult{Skipped: "@" + fn.Name + " has implicitly numbered blocks after its entry block"}
			}
		}
	}

	out := mod.Clone()

	var result NameResult

	renames := make(map[string]map[string]string)

	for _, fn := range out.Functions {
		if !fn.Defined {
			continue
		}

		rename, count := planRenames(fn)
		if count == 0 {
			continue
		}

		renames[fn.Name] = rename
		result.Renamed += count
	}

	if len(renames) == 0 {
		return out, result
	}

	for _, e := range out.Entities {
		e.Text = replaceBlockAddresses(e.Text, renames)
	}

	for _, fn := range out.Functions {
		applyRenames(fn, renames[fn.Name], renames)
	}

	return out, result
}

// planRenames maps the numbered locals of fn to their new names and returns
// how many values get a name.
func planRenames(fn *m.Function) (map[string]string, int) {
	taken := namedLocals(fn)
	rename := make(map[string]string)

	assign := func(old, prefix string) {
		candidate := prefix + strings.TrimPrefix(old, "%")
		name := candidate

		for k := 1; taken[name]; k++ {
			name = fmt.Sprintf("%s.%d", candidate, k)
		}

		taken[name] = true
		rename[old] = "%" + name
	}

	args := numericTokens(fn.Header)
	for _, arg := range args {
		assign(arg, "arg")
	}

	for _, bb := range fn.Blocks {
		if isNumber(bb.Label) {
			assign("%"+bb.Label, "bb")
		}

		for _, inst := range bb.Instructions {
			if isNumber(strings.TrimPrefix(inst.Result, "%")) {
				assign(inst.Result, "i")
			}
		}
	}

	renamed := len(rename)

	// The unnamed entry block keeps its slot and becomes the only
	// anonymous value left, so its references are renumbered to %0.
	if len(fn.Blocks) > 0 && fn.Blocks[0].Label == "" {
		entry := "%" + strconv.Itoa(len(args))
		if _, clash := rename[entry]; !clash {
			rename[entry] = "%0"
		}
	}

	return rename, renamed
}

// applyRenames rewrites fn with its own rename map; blockaddress operands
// use the map of the function they name.
func applyRenames(fn *m.Function, rename map[string]string, renames map[string]map[string]string) {
	fn.Header = renameText(fn.Header, rename, renames)

	for _, bb := range fn.Blocks {
		if isNumber(bb.Label) {
			if to, ok := rename["%"+bb.Label]; ok {
				bb.Label = strings.TrimPrefix(to, "%")
			}
		}

		for _, inst := range bb.Instructions {
			if to, ok := rename[inst.Result]; ok {
				inst.Result = to
			}

			inst.Text = renameText(inst.Text, rename, renames)
		}
	}
}

// renameText applies rename to the locals of text outside blockaddress
// operands and renames the blocks those operands name.
func renameText(text string, rename map[string]string, renames map[string]map[string]string) string {
	var b strings.Builder

	last := 0

	for _, loc := range blockAddressRe.FindAllStringIndex(text, -1) {
		b.WriteString(replaceLocals(text[last:loc[0]], rename))
		b.WriteString(replaceBlockAddresses(text[loc[0]:loc[1]], renames))
		last = loc[1]
	}

	b.WriteString(replaceLocals(text[last:], rename))

	return b.String()
}

// replaceBlockAddresses renames the block of every `blockaddress(@fn, %N)`
// in text with the rename map of fn.
func replaceBlockAddresses(text string, renames map[string]map[string]string) string {
	var b strings.Builder

	last := 0

	for _, idx := range blockAddressRe.FindAllStringSubmatchIndex(text, -1) {
		fn := strings.Trim(text[idx[2]:idx[3]], `"`)
		block := text[idx[4]:idx[5]]

		to, ok := renames[fn][block]
		if !ok {
			continue
		}

		b.WriteString(text[last:idx[4]])
		b.WriteString(to)
		last = idx[5]
	}

	b.WriteString(text[last:])

	return b.String()
}

// namedLocals collects the local names already used in fn.
func namedLocals(fn *m.Function) map[string]bool {
	taken := make(map[string]bool)

	collect := func(text string) {
		for _, match := range localNameRe.FindAllStringSubmatch(text, -1) {
			taken[match[1]] = true
		}
	}

	collect(fn.Header)

	for _, bb := range fn.Blocks {
		if bb.Label != "" && !isNumber(bb.Label) {
			taken[strings.Trim(bb.Label, `"`)] = true
		}

		for _, inst := range bb.Instructions {
			collect(inst.Text)
		}
	}

	return taken
}

// numericTokens returns the `%N` tokens of text in order of appearance.
func numericTokens(text string) []string {
	var out []string

	scanLocals(text, func(token string) string {
		out = append(out, token)
		return token
	})

	return out
}

// replaceLocals rewrites every `%N` token found in rename.
func replaceLocals(text string, rename map[string]string) string {
	return scanLocals(text, func(token string) string {
		if to, ok := rename[token]; ok {
			return to
		}

		return token
	})
}

// scanLocals calls fn for every `%N` token outside string literals and
// returns text with each token replaced by fn's result.
func scanLocals(text string, fn func(string) string) string {
	var b strings.Builder

	inQuote := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if c == '"' {
			inQuote = !inQuote
		}

		if inQuote || c != '%' || (i > 0 && isIdentChar(text[i-1])) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			j++
		}

		if j == i+1 || (j < len(text) && isIdentChar(text[j])) {
			b.WriteByte(c)
			continue
		}

		b.WriteString(fn(text[i:j]))
		i = j - 1
	}

	return b.String()
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '$' || c == '.' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

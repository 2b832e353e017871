package domain

import (
	"regexp"
	"strconv"
	"strings"

	m "debugir.dev/pkg/debugir/internal/model"
)

var (
	dbgAttachmentRe = regexp.MustCompile(`,\s*!dbg\s+!\d+`)
	dbgHeaderRe     = regexp.MustCompile(`\s*!dbg\s+!\d+`)
	metadataRefRe   = regexp.MustCompile(`!(\d+)`)
	quotedRe        = regexp.MustCompile(`"[^"]*"`)
)

// debugFlagKeys are the module flags owned by debug info.
var debugFlagKeys = []string{`!"Debug Info Version"`, `!"Dwarf Version"`}

const (
	namedModuleFlags = "llvm.module.flags"
	namedDebugCU     = "llvm.dbg.cu"
)

// StripDebugInfo returns a copy of mod without any debug information:
// `!dbg` attachments, debug intrinsic calls and records, the compile unit
// list and debug module flags. Numbered metadata that is no longer
// referenced is dropped.
func StripDebugInfo(mod *m.Module) *m.Module {
	out := mod.Clone()

	flagIDs := debugFlagNodes(out)

	entities := out.Entities[:0]

	for _, e := range out.Entities {
		switch e.Kind {
		case m.EntityGlobal:
			e.Text = dbgAttachmentRe.ReplaceAllString(e.Text, "")
		case m.EntityNamedMetadata:
			if e.Name == namedDebugCU {
				continue
			}

			if e.Name == namedModuleFlags {
				text, empty := withoutOperands(e.Text, flagIDs)
				if empty {
					continue
				}

				e.Text = text
			}
		}

		entities = append(entities, e)
	}

	out.Entities = entities

	functions := out.Functions[:0]

	for _, fn := range out.Functions {
		if !fn.Defined && strings.HasPrefix(fn.Name, "llvm.dbg.") {
			continue
		}

		fn.Header = dbgHeaderRe.ReplaceAllString(fn.Header, "")

		for _, bb := range fn.Blocks {
			insts := bb.Instructions[:0]

			for _, inst := range bb.Instructions {
				if isDebugIntrinsic(inst) {
					continue
				}

				inst.Text = dbgAttachmentRe.ReplaceAllString(inst.Text, "")
				insts = append(insts, inst)
			}

			bb.Instructions = insts
		}

		functions = append(functions, fn)
	}

	out.Functions = functions

	pruneMetadata(out)

	return out
}

// HasDebugInfo reports whether mod carries anything StripDebugInfo would remove.
func HasDebugInfo(mod *m.Module) bool {
	for _, e := range mod.Entities {
		if e.Kind == m.EntityNamedMetadata && e.Name == namedDebugCU {
			return true
		}

		if e.Kind == m.EntityGlobal && dbgAttachmentRe.MatchString(e.Text) {
			return true
		}
	}

	for _, fn := range mod.Functions {
		if dbgHeaderRe.MatchString(fn.Header) {
			return true
		}

		for _, bb := range fn.Blocks {
			for _, inst := range bb.Instructions {
				if isDebugIntrinsic(inst) || dbgAttachmentRe.MatchString(inst.Text) {
					return true
				}
			}
		}
	}

	return false
}

func isDebugIntrinsic(inst *m.Instruction) bool {
	if strings.HasPrefix(inst.Opcode, "#dbg_") {
		return true
	}

	return inst.Opcode == "call" && strings.Contains(inst.Text, "@llvm.dbg.")
}

// debugFlagNodes returns the ids of module flag nodes owned by debug info.
func debugFlagNodes(mod *m.Module) map[int]bool {
	ids := make(map[int]bool)

	for _, e := range mod.EntitiesOf(m.EntityMetadataNode) {
		for _, key := range debugFlagKeys {
			if strings.Contains(e.Text, key) {
				ids[e.MetadataID] = true
			}
		}
	}

	return ids
}

// withoutOperands removes references to ids from a named metadata list.
func withoutOperands(text string, ids map[int]bool) (string, bool) {
	open := strings.Index(text, "!{")
	closing := strings.LastIndex(text, "}")

	if open < 0 || closing < open {
		return text, false
	}

	var kept []string

	for _, op := range strings.Split(text[open+2:closing], ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}

		if id, err := strconv.Atoi(strings.TrimPrefix(op, "!")); err == nil && ids[id] {
			continue
		}

		kept = append(kept, op)
	}

	if len(kept) == 0 {
		return "", true
	}

	return text[:open] + "!{" + strings.Join(kept, ", ") + "}" + text[closing+1:], false
}

// metadataRefs returns the numbered metadata referenced from text, ignoring
// string literals.
func metadataRefs(text string) []int {
	text = quotedRe.ReplaceAllString(text, `""`)

	var ids []int

	for _, match := range metadataRefRe.FindAllStringSubmatch(text, -1) {
		if id, err := strconv.Atoi(match[1]); err == nil {
			ids = append(ids, id)
		}
	}

	return ids
}

// pruneMetadata drops numbered metadata nodes unreachable from the rest of
// the module.
func pruneMetadata(mod *m.Module) {
	nodes := make(map[int]*m.Entity)

	var queue []int

	for _, e := range mod.Entities {
		if e.Kind == m.EntityMetadataNode {
			nodes[e.MetadataID] = e
			continue
		}

		queue = append(queue, metadataRefs(e.Text)...)
	}

	for _, fn := range mod.Functions {
		queue = append(queue, metadataRefs(fn.Header)...)

		for _, bb := range fn.Blocks {
			for _, inst := range bb.Instructions {
				queue = append(queue, metadataRefs(inst.Text)...)
			}
		}
	}

	reachable := make(map[int]bool)

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if reachable[id] {
			continue
		}

		node, ok := nodes[id]
		if !ok {
			continue
		}

		reachable[id] = true

		text := node.Text
		if _, body, found := strings.Cut(text, "="); found {
			text = body
		}

		queue = append(queue, metadataRefs(text)...)
	}

	entities := mod.Entities[:0]

	for _, e := range mod.Entities {
		if e.Kind == m.EntityMetadataNode && !reachable[e.MetadataID] {
			continue
		}

		entities = append(entities, e)
	}

	mod.Entities = entities
}

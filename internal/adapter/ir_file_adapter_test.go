package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "debugir.dev/pkg/debugir/internal/model"
)

const sampleModule = `; ModuleID = 'sample.c'
source_filename = "sample.c"
target triple = "x86_64-pc-linux-gnu"

@.str = private unnamed_addr constant [6 x i8] c"hi;\22x\00", align 1

declare i32 @puts(ptr) #1

define dso_local i32 @main(i32 %0, ptr %1) #0 {
  %3 = alloca i32, align 4
  store i32 %0, ptr %3, align 4
  br label %loop

loop:                                             ; preds = %2, %loop
  %4 = tail call i32 @puts(ptr @.str)
  switch i32 %4, label %done [
    i32 0, label %loop
    i32 1, label %done
  ]

done:
  ret i32 0
}

attributes #0 = { noinline nounwind }
attributes #1 = { nounwind }

!llvm.module.flags = !{!0}
!0 = !{i32 1, !"wchar_size", i32 4}
`

func TestLocalIRFileAdapter_Parse(t *testing.T) {
	mod, err := NewLocalIRFileAdapter().Parse("sample.ll", []byte(sampleModule))
	require.NoError(t, err)

	assert.Equal(t, "sample.ll", mod.Name)
	require.Len(t, mod.Functions, 2)

	puts := mod.Functions[0]
	assert.Equal(t, "puts", puts.Name)
	assert.False(t, puts.Defined)
	assert.Nil(t, puts.Blocks)
	assert.Equal(t, 7, puts.Line)

	main := mod.Functions[1]
	assert.Equal(t, "main", main.Name)
	assert.True(t, main.Defined)
	assert.Equal(t, "define dso_local i32 @main(i32 %0, ptr %1) #0", main.Header)
	assert.Equal(t, 9, main.Line)
	require.Len(t, main.Blocks, 3)

	entry := main.Blocks[0]
	assert.Empty(t, entry.Label)
	assert.Equal(t, 10, entry.Line)
	require.Len(t, entry.Instructions, 3)
	assert.Equal(t, "%3", entry.Instructions[0].Result)
	assert.Equal(t, "alloca", entry.Instructions[0].Opcode)
	assert.Equal(t, "store", entry.Instructions[1].Opcode)
	assert.Empty(t, entry.Instructions[1].Result)

	loop := main.Blocks[1]
	assert.Equal(t, "loop", loop.Label)
	assert.Equal(t, 14, loop.Line)
	require.Len(t, loop.Instructions, 2)
	assert.Equal(t, "call", loop.Instructions[0].Opcode)

	sw := loop.Instructions[1]
	assert.Equal(t, "switch", sw.Opcode)
	assert.Equal(t, 16, sw.Line)
	assert.Equal(t, "switch i32 %4, label %done [\n    i32 0, label %loop\n    i32 1, label %done\n  ]", sw.Text)

	done := main.Blocks[2]
	assert.Equal(t, "done", done.Label)
	require.Len(t, done.Instructions, 1)
	assert.Equal(t, "ret", done.Instructions[0].Opcode)

	globals := mod.EntitiesOf(m.EntityGlobal)
	require.Len(t, globals, 3)
	assert.Equal(t, `@.str = private unnamed_addr constant [6 x i8] c"hi;\22x\00", align 1`, globals[2].Text)

	assert.Len(t, mod.EntitiesOf(m.EntityAttributeGroup), 2)

	named := mod.EntitiesOf(m.EntityNamedMetadata)
	require.Len(t, named, 1)
	assert.Equal(t, "llvm.module.flags", named[0].Name)

	nodes := mod.EntitiesOf(m.EntityMetadataNode)
	require.Len(t, nodes, 1)
	assert.Equal(t, 0, nodes[0].MetadataID)
}

func TestLocalIRFileAdapter_Parse_Labels(t *testing.T) {
	src := `define void @f() {
; <label>:0
  br label %"a b"

"a b":
  br label %3

3:
  ret void
}
`

	mod, err := NewLocalIRFileAdapter().Parse("labels.ll", []byte(src))
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	blocks := mod.Functions[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, "0", blocks[0].Label)
	assert.Equal(t, `"a b"`, blocks[1].Label)
	assert.Equal(t, "3", blocks[2].Label)
}

func TestLocalIRFileAdapter_Parse_ImplicitBlocks(t *testing.T) {
	src := `define void @f(i1 %c) {
  br i1 %c, label %1, label %2
  ret void

  ret void
}
`

	mod, err := NewLocalIRFileAdapter().Parse("implicit.ll", []byte(src))
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	blocks := mod.Functions[0].Blocks
	require.Len(t, blocks, 3)

	for i, want := range []struct {
		line   int
		opcode string
	}{{2, "br"}, {3, "ret"}, {5, "ret"}} {
		assert.Empty(t, blocks[i].Label)
		assert.Equal(t, want.line, blocks[i].Line)
		require.Len(t, blocks[i].Instructions, 1)
		assert.Equal(t, want.opcode, blocks[i].Instructions[0].Opcode)
	}
}

func TestLocalIRFileAdapter_Parse_Landingpad(t *testing.T) {
	src := `define void @f() personality ptr @p {
entry:
  invoke void @g()
          to label %ok unwind label %lpad

ok:
  ret void

lpad:
  %lp = landingpad { ptr, i32 }
          cleanup
          catch ptr null
  resume { ptr, i32 } %lp
}
`

	mod, err := NewLocalIRFileAdapter().Parse("eh.ll", []byte(src))
	require.NoError(t, err)

	blocks := mod.Functions[0].Blocks
	require.Len(t, blocks, 3)

	require.Len(t, blocks[0].Instructions, 1)
	assert.Equal(t, "invoke", blocks[0].Instructions[0].Opcode)
	assert.Equal(t, "invoke void @g()\n          to label %ok unwind label %lpad", blocks[0].Instructions[0].Text)

	lpad := blocks[2]
	require.Len(t, lpad.Instructions, 2)
	assert.Equal(t, "landingpad", lpad.Instructions[0].Opcode)
	assert.Equal(t, "%lp = landingpad { ptr, i32 }\n          cleanup\n          catch ptr null", lpad.Instructions[0].Text)
	assert.Equal(t, "resume", lpad.Instructions[1].Opcode)
}

func TestLocalIRFileAdapter_Parse_DebugRecords(t *testing.T) {
	src := `define void @f(i32 %x) !dbg !5 {
  #dbg_value(i32 %x, !7, !DIExpression(), !8)
  ret void, !dbg !8
}
`

	mod, err := NewLocalIRFileAdapter().Parse("records.ll", []byte(src))
	require.NoError(t, err)

	insts := mod.Functions[0].Blocks[0].Instructions
	require.Len(t, insts, 2)
	assert.Equal(t, "#dbg_value", insts[0].Opcode)
	assert.Equal(t, "ret", insts[1].Opcode)
}

func TestLocalIRFileAdapter_Parse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{
			name: "unterminated body",
			src:  "define void @f() {\n  ret void\n",
			line: 1,
		},
		{
			name: "header without body",
			src:  "define void @f()\n",
			line: 1,
		},
		{
			name: "unbalanced brackets",
			src:  "@g = global [2 x i32] [i32 1,\n",
			line: 1,
		},
		{
			name: "stray instruction at top level",
			src:  "source_filename = \"x\"\nret void\n",
			line: 2,
		},
		{
			name: "malformed metadata",
			src:  "!foo bar\n",
			line: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocalIRFileAdapter().Parse("bad.ll", []byte(tt.src))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.ll", perr.Path)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestStripComment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  ret void ; done", want: "  ret void"},
		{in: `@s = constant [2 x i8] c";\00"`, want: `@s = constant [2 x i8] c";\00"`},
		{in: "; only a comment", want: ""},
		{in: "plain   ", want: "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripComment(tt.in), tt.in)
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "debugir.dev/pkg/debugir/internal/model"
)

func TestNameValues(t *testing.T) {
	src := `define i32 @f(i32 %0, i32 %x) {
  %2 = add i32 %0, %x
  br label %3

3:
  %4 = phi i32 [ %2, %1 ], [ %5, %3 ]
  %5 = add i32 %4, 1
  br label %3
}
`
	want := `define i32 @f(i32 %arg0, i32 %x) {
  %i2 = add i32 %arg0, %x
  br label %bb3

bb3:
  %i4 = phi i32 [ %i2, %0 ], [ %i5, %bb3 ]
  %i5 = add i32 %i4, 1
  br label %bb3
}
`

	named, result := NameValues(parseIR(t, "f.ll", src))
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 5, result.Renamed)

	text, _, err := Render(named)
	require.NoError(t, err)
	assert.Equal(t, want, text)
	assert.Equal(t, "%i2", named.Functions[0].Blocks[0].Instructions[0].Result)
}

func TestNameValues_Collision(t *testing.T) {
	src := `define i32 @f() {
entry:
  %i1 = add i32 1, 2
  %1 = add i32 %i1, 3
  ret i32 %1
}
`
	named, result := NameValues(parseIR(t, "f.ll", src))
	assert.Equal(t, 1, result.Renamed)

	insts := named.Functions[0].Blocks[0].Instructions
	assert.Equal(t, "%i1.1", insts[1].Result)
	assert.Equal(t, "ret i32 %i1.1", insts[2].Text)
}

func TestNameValues_SkipsNumberedTypes(t *testing.T) {
	src := `%0 = type { i32 }

define void @f(ptr %p) {
  %1 = load %0, ptr %p
  ret void
}
`
	mod := parseIR(t, "t.ll", src)

	named, result := NameValues(mod)
	assert.NotEmpty(t, result.Skipped)
	assert.Zero(t, result.Renamed)
	assert.Same(t, mod, named)
}

func TestNameValues_BlockAddress(t *testing.T) {
	src := `@addr = global ptr blockaddress(@f, %1)

define void @f() {
  indirectbr ptr blockaddress(@f, %1), [label %1]

1:
  ret void
}

define ptr @g() {
  %1 = add i32 0, 0
  ret ptr blockaddress(@f, %1)
}
`
	named, result := NameValues(parseIR(t, "addr.ll", src))
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 2, result.Renamed)

	assert.Equal(t, "@addr = global ptr blockaddress(@f, %bb1)", named.EntitiesOf(m.EntityGlobal)[0].Text)

	f := named.Functions[0]
	assert.Equal(t, "bb1", f.Blocks[1].Label)
	assert.Equal(t, "indirectbr ptr blockaddress(@f, %bb1), [label %bb1]", f.Blocks[0].Instructions[0].Text)

	g := named.Functions[1]
	assert.Equal(t, "%i1 = add i32 0, 0", g.Blocks[0].Instructions[0].Text)
	assert.Equal(t, "ret ptr blockaddress(@f, %bb1)", g.Blocks[0].Instructions[1].Text)

	text, _, err := Render(named)
	require.NoError(t, err)
	assert.NotContains(t, text, "blockaddress(@f, %1)")
}

func TestNameValues_SkipsImplicitBlocks(t *testing.T) {
	src := `define void @f(i1 %c) {
  br i1 %c, label %1, label %2
  ret void

  ret void
}
`
	mod := parseIR(t, "implicit.ll", src)

	named, result := NameValues(mod)
	assert.Contains(t, result.Skipped, "@f")
	assert.Zero(t, result.Renamed)
	assert.Same(t, mod, named)
}

func TestNameValues_PreservesLineCounts(t *testing.T) {
	mod := parseIR(t, "hello.ll", readFixture(t, "hello.ll"))

	_, before, err := Render(mod)
	require.NoError(t, err)

	named, result := NameValues(mod)
	require.Empty(t, result.Skipped)
	assert.Positive(t, result.Renamed)

	_, after, err := Render(named)
	require.NoError(t, err)

	require.Len(t, after.Functions, len(before.Functions))

	for i, fn := range before.Functions {
		got := after.Functions[i]
		assert.Equal(t, fn.Header, got.Header, "@%s header", fn.Name)
		assert.Equal(t, fn.End, got.End, "@%s end", fn.Name)
		require.Len(t, got.Blocks, len(fn.Blocks))

		for j, bb := range fn.Blocks {
			assert.Equal(t, bb.Line, got.Blocks[j].Line)
			assert.Equal(t, bb.Instructions, got.Blocks[j].Instructions)
		}
	}

	for _, fn := range named.Functions {
		for _, bb := range fn.Blocks {
			for _, inst := range bb.Instructions {
				assert.NotRegexp(t, `^%\d+$`, inst.Result)
			}
		}
	}
}

func TestScanLocals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"operands", "add i32 %1, %22", []string{"%1", "%22"}},
		{"named values are skipped", "add i32 %x1, %a.2", nil},
		{"string literals are skipped", `call void @f(ptr c"%5")`, nil},
		{"struct types are skipped", "alloca %struct.S", nil},
		{"dotted suffix is skipped", "load i32, ptr %3.x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numericTokens(tt.text))
		})
	}
}

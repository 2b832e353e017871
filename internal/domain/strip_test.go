package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "debugir.dev/pkg/debugir/internal/model"
)

func TestStripDebugInfo(t *testing.T) {
	mod := parseIR(t, "with_debug.ll", readFixture(t, "with_debug.ll"))
	require.True(t, HasDebugInfo(mod))

	stripped := StripDebugInfo(mod)
	assert.False(t, HasDebugInfo(stripped))

	text, _, err := Render(stripped)
	require.NoError(t, err)

	want := `source_filename = "s.c"
@g = dso_local global i32 0, align 4

define dso_local void @f(ptr %p) {
entry:
  store i32 1, ptr @g, align 4, !tbaa !15
  ret void
}

!llvm.module.flags = !{!5}
!5 = !{i32 1, !"wchar_size", i32 4}
!15 = !{!16, !16, i64 0}
!16 = !{!"int", !17, i64 0}
!17 = !{!"omnipotent char", !18, i64 0}
!18 = !{!"Simple C/C++ TBAA"}
`
	assert.Equal(t, want, text)

	t.Run("input is not modified", func(t *testing.T) {
		assert.True(t, HasDebugInfo(mod))
		assert.Len(t, mod.Functions, 2)
	})
}

func TestStripDebugInfo_NoDebugInfo(t *testing.T) {
	mod := parseIR(t, "add.ll", addModule)
	assert.False(t, HasDebugInfo(mod))

	before, _, err := Render(mod)
	require.NoError(t, err)

	after, _, err := Render(StripDebugInfo(mod))
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestStripDebugInfo_DropsOnlyDebugFlags(t *testing.T) {
	src := `!llvm.module.flags = !{!0, !1}
!0 = !{i32 7, !"Dwarf Version", i32 5}
!1 = !{i32 2, !"Debug Info Version", i32 3}
`
	stripped := StripDebugInfo(parseIR(t, "flags.ll", src))

	assert.Empty(t, stripped.EntitiesOf(m.EntityNamedMetadata))
	assert.Empty(t, stripped.EntitiesOf(m.EntityMetadataNode))
}

func TestWithoutOperands(t *testing.T) {
	ids := map[int]bool{3: true}

	text, empty := withoutOperands("!llvm.module.flags = !{!1, !3, !4}", ids)
	assert.False(t, empty)
	assert.Equal(t, "!llvm.module.flags = !{!1, !4}", text)

	_, empty = withoutOperands("!llvm.module.flags = !{!3}", ids)
	assert.True(t, empty)
}

func TestMetadataRefs(t *testing.T) {
	assert.Equal(t, []int{1, 22}, metadataRefs(`!{!1, !"name !7", !22}`))
	assert.Empty(t, metadataRefs(`!{!"only a string"}`))
}

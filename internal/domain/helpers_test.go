package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"debugir.dev/pkg/debugir/internal/adapter"
	m "debugir.dev/pkg/debugir/internal/model"
)

const addModule = `define i32 @add(i32 %a, i32 %b) {
entry:
  %sum = add i32 %a, %b
  %twice = mul i32 %sum, 2
  ret i32 %twice
}
`

func parseIR(t *testing.T, name, src string) *m.Module {
	t.Helper()

	mod, err := adapter.NewLocalIRFileAdapter().Parse(name, []byte(src))
	require.NoError(t, err)

	return mod
}

func testdataPath(t *testing.T, name string) string {
	t.Helper()

	path, err := filepath.Abs(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)

	return path
}

func readFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := os.ReadFile(testdataPath(t, name))
	require.NoError(t, err)

	return string(data)
}

// copyFixture places a testdata module in dir and returns its path.
func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(readFixture(t, name)), 0o644))

	return path
}

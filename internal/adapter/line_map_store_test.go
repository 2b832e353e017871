package adapter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	m "debugir.dev/pkg/debugir/internal/model"
)

func sampleLineTable() *m.LineTable {
	return &m.LineTable{
		File: "hello.ll",
		Functions: []m.FunctionLines{
			{Name: "puts", Header: 3, End: 3},
			{
				Name:    "main",
				Defined: true,
				Header:  5,
				End:     12,
				Blocks: []m.BlockLines{
					{Line: 6, Instructions: []int{6, 7}},
					{Label: "exit", Line: 9, Instructions: []int{10, 11}},
				},
			},
		},
	}
}

func TestMsgpackLineMapStore_SaveLoad(t *testing.T) {
	store := NewMsgpackLineMapStore()
	path := m.Path(filepath.Join(t.TempDir(), "hello.lines"))

	table := sampleLineTable()
	require.NoError(t, store.SaveLineMap(path, table, "abc123"))

	loaded, err := store.LoadLineMap(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", loaded.DisplayHash)
	assert.Equal(t, table.File, loaded.Table.File)
	assert.True(t, table.Equal(loaded.Table))
}

func TestMsgpackLineMapStore_LoadMissing(t *testing.T) {
	_, err := NewMsgpackLineMapStore().LoadLineMap(m.Path(filepath.Join(t.TempDir(), "none.lines")))
	require.Error(t, err)
}

func TestDecodeLineMap_Rejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeLineMap(bytes.NewReader([]byte{0xc1}))
		require.Error(t, err)
	})

	t.Run("wrong version", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, msgpack.NewEncoder(&buf).Encode(&lineMapData{Version: 99, Table: sampleLineTable()}))

		_, err := DecodeLineMap(&buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version 99")
	})

	t.Run("missing table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, msgpack.NewEncoder(&buf).Encode(&lineMapData{Version: lineMapVersion}))

		_, err := DecodeLineMap(&buf)
		require.Error(t, err)
	})
}

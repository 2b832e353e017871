package adapter

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	m "debugir.dev/pkg/debugir/internal/model"
)

// lineMapVersion is bumped whenever the encoded layout changes.
const lineMapVersion = 1

// LineMapStore persists line tables next to the display text so other tools
// can map debugger lines back to IR entities without re-rendering.
type LineMapStore interface {
	SaveLineMap(path m.Path, table *m.LineTable, displayHash string) error
	LoadLineMap(path m.Path) (*m.LineMap, error)
}

type lineMapData struct {
	Version     int          `msgpack:"version"`
	DisplayHash string       `msgpack:"display_hash"`
	Table       *m.LineTable `msgpack:"table"`
}

// MsgpackLineMapStore stores line maps as msgpack documents.
type MsgpackLineMapStore struct{}

// NewMsgpackLineMapStore constructs a MsgpackLineMapStore.
func NewMsgpackLineMapStore() *MsgpackLineMapStore {
	return &MsgpackLineMapStore{}
}

// SaveLineMap writes table to path using msgpack.
func (s *MsgpackLineMapStore) SaveLineMap(path m.Path, table *m.LineTable, displayHash string) error {
	file, err := os.Create(string(path))
	if err != nil {
		return fmt.Errorf("failed to create line map: %w", err)
	}
	defer file.Close()

	return EncodeLineMap(file, table, displayHash)
}

// LoadLineMap restores a line map written by SaveLineMap.
func (s *MsgpackLineMapStore) LoadLineMap(path m.Path) (*m.LineMap, error) {
	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open line map: %w", err)
	}
	defer file.Close()

	return DecodeLineMap(file)
}

// EncodeLineMap writes table in the sidecar format.
func EncodeLineMap(w io.Writer, table *m.LineTable, displayHash string) error {
	data := lineMapData{
		Version:     lineMapVersion,
		DisplayHash: displayHash,
		Table:       table,
	}

	if err := msgpack.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("failed to encode line map: %w", err)
	}

	return nil
}

// DecodeLineMap reads a sidecar written by EncodeLineMap.
func DecodeLineMap(r io.Reader) (*m.LineMap, error) {
	var data lineMapData
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode line map: %w", err)
	}

	if data.Version != lineMapVersion {
		return nil, fmt.Errorf("unsupported line map version %d", data.Version)
	}

	if data.Table == nil {
		return nil, fmt.Errorf("line map without table")
	}

	return &m.LineMap{DisplayHash: data.DisplayHash, Table: data.Table}, nil
}

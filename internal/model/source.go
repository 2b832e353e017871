package model

import (
	"path/filepath"
	"strings"
)

// Path represents a file system path.
type Path string

// DefaultDebugSuffix is appended to the input stem to name the debug module.
const DefaultDebugSuffix = ".dbg.ll"

// LineMapSuffix is appended to the input stem to name the line map sidecar.
const LineMapSuffix = ".lines"

// DebugPath returns the path the debug module for input is written to:
// the input with its extension replaced by suffix.
func DebugPath(input Path, suffix string) Path {
	if suffix == "" {
		suffix = DefaultDebugSuffix
	}

	return Path(stem(input) + suffix)
}

// LineMapPath returns the sidecar path used to persist the line table of input.
func LineMapPath(input Path) Path {
	return Path(stem(input) + LineMapSuffix)
}

// DisplayLocation splits input into the directory and file name that the
// synthesized debug info refers to.
func DisplayLocation(input Path, absolute bool) (string, string, error) {
	path := string(input)

	if absolute {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", "", err
		}

		path = abs
	}

	dir := filepath.Dir(path)
	if !absolute && !strings.ContainsRune(string(input), filepath.Separator) {
		dir = ""
	}

	return dir, filepath.Base(path), nil
}

func stem(input Path) string {
	path := string(input)
	return strings.TrimSuffix(path, filepath.Ext(path))
}

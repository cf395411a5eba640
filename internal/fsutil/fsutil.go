// Package fsutil expands user-supplied input paths and filters out binary
// content before the engine begins scanning.
package fsutil

import (
	"bytes"
	"os"

	"github.com/spf13/afero"
)

// StdinPath is the conventional pseudo-path naming standard input.
const StdinPath = "-"

// binarySniffLen is how many leading bytes are inspected for NUL.
const binarySniffLen = 4096

// ExpandInputs resolves the raw input list into an ordered sequence of
// scannable paths.
//
// With no inputs, the result is stdin ("-"), or every file under the
// current directory when recursive is set. With recursive set, directory
// inputs are expanded depth-first to the regular files they contain;
// everything else passes through unchanged.
func ExpandInputs(fs afero.Fs, inputs []string, recursive bool) ([]string, error) {
	if len(inputs) == 0 {
		if !recursive {
			return []string{StdinPath}, nil
		}
		return walkFiles(fs, ".")
	}

	if !recursive {
		return inputs, nil
	}

	var files []string
	for _, in := range inputs {
		info, err := fs.Stat(in)
		if err == nil && info.IsDir() {
			sub, werr := walkFiles(fs, in)
			if werr != nil {
				return nil, werr
			}
			files = append(files, sub...)
			continue
		}
		// Unreadable paths pass through so the engine reports them
		// per-source instead of aborting the whole expansion.
		files = append(files, in)
	}
	return files, nil
}

// walkFiles collects all regular files under root in walk order.
func walkFiles(fs afero.Fs, root string) ([]string, error) {
	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return nil
			}
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IsBinary reports whether the file at path looks binary: a NUL byte
// within its first 4 KiB. Stdin and unreadable paths are treated as text
// so that read errors surface during scanning, not here.
func IsBinary(fs afero.Fs, path string) bool {
	if path == StdinPath {
		return false
	}
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binarySniffLen)
	n, _ := f.Read(buf)
	if n <= 0 {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

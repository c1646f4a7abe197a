// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// program addresses, along with the addresses of exported labels.
type SourceMap struct {
	Origin  uint16       // address of the first byte of the program
	Size    uint32       // program size in bytes
	CRC     uint32       // CRC-32 of the program bytes
	Files   []string     // source files, indexed by SourceLine.FileIndex
	Lines   []SourceLine // sorted by address
	Exports []Export     // sorted by address
}

// A SourceLine represents a mapping between a machine code address and
// the source code file and line number used to generate it.
type SourceLine struct {
	Address   int // Machine code address
	FileIndex int // Source code file index
	Line      int // Source code line number
}

// Find searches the source map for a mapping with the requested address.
func (s *SourceMap) Find(addr int) (filename string, line int, err error) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.Files[s.Lines[i].FileIndex], s.Lines[i].Line, nil
	}
	return "", 0, errNoSourceLine
}

// Export returns the address of an exported label.
func (s *SourceMap) Export(label string) (addr uint16, ok bool) {
	for _, e := range s.Exports {
		if e.Label == label {
			return e.Address, true
		}
	}
	return 0, false
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	if err := json.Unmarshal(b, s); err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}

func sortExports(e []Export) []Export {
	return slices.SortedFunc(slices.Values(e), func(a, b Export) int {
		return cmp.Compare(a.Address, b.Address)
	})
}

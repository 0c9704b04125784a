/*
 * mule - Object-file loader, module registry and fixup linker
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package loader owns the module table: it drives objfile.Reader to parse
// one object file at a time, registers modules (creating placeholder
// entries for not-yet-loaded imports), allocates each module's data and
// code frames, and finally links (fix_extcalls) every module pulled in by
// one top-level load, rewriting import-table-relative operands to
// absolute module-table indices.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcornwell/mule/mcode/arena"
	"github.com/rcornwell/mule/mcode/objfile"
	"github.com/rcornwell/mule/mcode/opcodes"
)

const (
	// MaxModules is the module table capacity: 8-bit values are embedded
	// directly in CLX/CLF opcodes, so this cap is load-bearing for the
	// instruction encoding, not just a convenient limit.
	MaxModules = 255
)

var (
	ErrTooManyModules    = errors.New("loader: module table full")
	ErrKeyMismatch       = errors.New("loader: object key mismatch")
	ErrMissingDependency = errors.New("loader: module not found on include path")
	ErrInvalidFixup      = errors.New("loader: invalid fixup")
	ErrBadHeader         = errors.New("loader: missing module header")
)

// Module is one entry of the module table.
type Module struct {
	Name string
	Key  objfile.Key

	Loaded bool

	Code    []byte
	DataOfs uint16
	DataSz  uint16

	Proc   []uint16 // proc[0..procN]; 0 = unresolved (trap on call)
	Import []int    // import[0..importN] -> module table index

	// transient, cleared after fixExtcalls runs for this module
	tmpProcMap    map[int]uint16
	tmpEntries    []uint16
	tmpFixups     []int
	tmpImportIdx  []int
	procCount     int
}

// Loader owns the module table and the object-file search path.
type Loader struct {
	ar      *arena.State
	Modules []Module

	// Search path, built as: implicit current directory, then -i
	// options in order, then MULE_PATH colon-separated entries.
	IncludePaths []string
}

// New creates a loader bound to ar, with module 0 pre-registered as the
// reserved "System" pseudo-module: a zero-key sink for calls of form 0.0.
func New(ar *arena.State, includePaths []string) *Loader {
	l := &Loader{
		ar:           ar,
		IncludePaths: includePaths,
	}
	l.Modules = append(l.Modules, Module{
		Name:   "System",
		Loaded: true,
		Proc:   []uint16{0},
	})
	return l
}

// BuildIncludePaths assembles the search path per spec §4.C: implicit
// current directory first, then the -i options in order, then
// MULE_PATH's colon-separated entries.
func BuildIncludePaths(dashI []string, mulePath string) []string {
	paths := []string{"."}
	paths = append(paths, dashI...)
	if mulePath != "" {
		for _, p := range strings.Split(mulePath, ":") {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// LoadSearch looks for fn (appending ".OBJ" if missing) on the include
// path, trying "<path>/<fn>" then, if fn doesn't already start with
// "<altPrefix>.", "<path>/<altPrefix>.<fn>".
func (l *Loader) LoadSearch(fn, altPrefix string) (*os.File, string, error) {
	if !strings.HasSuffix(strings.ToUpper(fn), ".OBJ") {
		fn += ".OBJ"
	}
	altName := altPrefix + "." + fn
	tryAlt := !strings.HasPrefix(strings.ToUpper(fn), strings.ToUpper(altPrefix)+".")

	for _, dir := range l.IncludePaths {
		p := filepath.Join(dir, fn)
		if f, err := os.Open(p); err == nil {
			return f, p, nil
		}
		if tryAlt {
			p2 := filepath.Join(dir, altName)
			if f, err := os.Open(p2); err == nil {
				return f, p2, nil
			}
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrMissingDependency, fn)
}

// initModEntry finds or creates the module table slot for name/key.
func (l *Loader) initModEntry(name string, key objfile.Key) (int, error) {
	for i := range l.Modules {
		if l.Modules[i].Name == name {
			if l.Modules[i].Key != key {
				return 0, fmt.Errorf("%w: %s", ErrKeyMismatch, name)
			}
			return i, nil
		}
	}
	if len(l.Modules) >= MaxModules {
		return 0, ErrTooManyModules
	}
	l.Modules = append(l.Modules, Module{Name: name, Key: key, Loaded: false})
	return len(l.Modules) - 1, nil
}

// LoadInitFile loads fn (and, transitively, every module it imports that
// isn't already loaded), then links every module table entry created by
// this call. It returns the index of the first newly-created module
// (the top-level file's own module).
func (l *Loader) LoadInitFile(fn, altPrefix string) (int, error) {
	top := len(l.Modules)
	if err := l.loadObjFile(fn, altPrefix); err != nil {
		return 0, err
	}
	if err := l.fixExtcalls(top); err != nil {
		return 0, err
	}
	return top, nil
}

// loadObjFile parses fn, then loads any module it (transitively)
// referenced that is still a placeholder (Loaded == false).
func (l *Loader) loadObjFile(fn, altPrefix string) error {
	f, _, err := l.LoadSearch(fn, altPrefix)
	if err != nil {
		return err
	}
	perr := l.parseObjFile(f)
	_ = f.Close()
	if perr != nil {
		return perr
	}

	for i := 0; i < len(l.Modules); i++ {
		if l.Modules[i].Loaded {
			continue
		}
		name := l.Modules[i].Name
		if err := l.loadObjFile(name, "LIB"); err != nil {
			return err
		}
	}
	return nil
}

// parseObjFile reads sections from f until EOF, feeding MODULE headers,
// IMPORTS, procedure/code blocks, DATA initializers and FIXUP lists into
// the module table. Each MODULE section starts a fresh "current module"
// scope for the sections that follow it, up to the next MODULE section
// or end of file.
func (l *Loader) parseObjFile(f io.Reader) error {
	r := objfile.NewReader(f)
	cur := -1

	for {
		sec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch s := sec.(type) {
		case *objfile.ModuleHeader:
			idx, err := l.initModEntry(s.Name, s.Key)
			if err != nil {
				return err
			}
			m := &l.Modules[idx]
			if l.ar.DataTop+uint32(s.DataSize) > arena.Size {
				return fmt.Errorf("loader: module %s: data frame exceeds arena", s.Name)
			}
			m.DataOfs = uint16(l.ar.DataTop)
			m.DataSz = s.DataSize
			l.ar.DataTop += uint32(s.DataSize)
			m.Code = make([]byte, int(s.CodeSize)*2)
			m.Loaded = true
			m.tmpProcMap = map[int]uint16{}
			cur = idx

		case *objfile.ImportSection:
			if cur < 0 {
				return ErrBadHeader
			}
			for _, rec := range s.Records {
				idx, err := l.initModEntry(rec.Name, rec.Key)
				if err != nil {
					return err
				}
				// initModEntry may grow l.Modules, so index it afresh.
				m := &l.Modules[cur]
				m.Import = append(m.Import, idx)
				m.tmpImportIdx = append(m.tmpImportIdx, idx)
			}

		case *objfile.ProcEntries:
			if cur < 0 {
				return ErrBadHeader
			}
			m := &l.Modules[cur]
			if s.OldFormat {
				m.tmpProcMap[s.Pidx] = s.Entry
				if s.Pidx+1 > m.procCount {
					m.procCount = s.Pidx + 1
				}
			} else {
				m.tmpEntries = s.Entries
				if len(s.Entries) > m.procCount {
					m.procCount = len(s.Entries)
				}
			}

		case *objfile.CodeBlock:
			if cur < 0 {
				return ErrBadHeader
			}
			m := &l.Modules[cur]
			end := int(s.ByteOffset) + len(s.Bytes)
			if end > len(m.Code) {
				return fmt.Errorf("loader: module %s: code block exceeds code frame", m.Name)
			}
			copy(m.Code[s.ByteOffset:end], s.Bytes)

		case *objfile.DataInit:
			if cur < 0 {
				return ErrBadHeader
			}
			m := &l.Modules[cur]
			if uint32(s.WordOffset)+uint32(len(s.Words)) > uint32(m.DataSz) {
				return fmt.Errorf("loader: module %s: data init exceeds data frame", m.Name)
			}
			base := m.DataOfs + s.WordOffset
			for i, w := range s.Words {
				l.ar.DSH[base+uint16(i)] = w
			}

		case *objfile.Fixups:
			if cur < 0 {
				return ErrBadHeader
			}
			m := &l.Modules[cur]
			m.tmpFixups = append(m.tmpFixups, s.Offsets...)
		}
	}
	return nil
}

// fixExtcalls links every module table entry in [top, len(Modules)):
// it builds the final zero-filled proc[] table from the transient
// entries collected while parsing, then rewrites each collected fixup
// location from a 1-based import-table slot to an absolute module-table
// index.
func (l *Loader) fixExtcalls(top int) error {
	for i := top; i < len(l.Modules); i++ {
		m := &l.Modules[i]
		if !m.Loaded {
			return fmt.Errorf("%w: %s", ErrMissingDependency, m.Name)
		}

		n := m.procCount
		if len(m.tmpEntries) > n {
			n = len(m.tmpEntries)
		}
		for pidx := range m.tmpProcMap {
			if pidx+1 > n {
				n = pidx + 1
			}
		}
		proc := make([]uint16, n)
		copy(proc, m.tmpEntries)
		for pidx, entry := range m.tmpProcMap {
			proc[pidx] = entry
		}
		m.Proc = proc

		for _, loc := range m.tmpFixups {
			if loc < 1 || loc >= len(m.Code) {
				return fmt.Errorf("%w: module %s: offset %d out of range", ErrInvalidFixup, m.Name, loc)
			}
			opc := m.Code[loc-1]
			if !opcodes.Fixupable[opc] {
				return fmt.Errorf("%w: module %s: opcode 0x%02x at offset %d", ErrInvalidFixup, m.Name, opc, loc)
			}
			slot := int(m.Code[loc])
			if slot < 1 || slot > len(m.tmpImportIdx) {
				return fmt.Errorf("%w: module %s: import slot %d", ErrInvalidFixup, m.Name, slot)
			}
			m.Code[loc] = byte(m.tmpImportIdx[slot-1])
		}

		m.tmpProcMap = nil
		m.tmpEntries = nil
		m.tmpFixups = nil
		m.tmpImportIdx = nil
		m.procCount = 0
	}
	return nil
}

// UnloadFrom releases the data frames of every module at index >= mod,
// in descending order, lowering DataTop back down. Callers are
// responsible for closing open host files and freeing heap blocks first.
func (l *Loader) UnloadFrom(mod int) {
	for i := len(l.Modules) - 1; i >= mod; i-- {
		l.ar.DataTop -= uint32(l.Modules[i].DataSz)
	}
	l.Modules = l.Modules[:mod]
}

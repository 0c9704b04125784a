/*
 * mule - loader and linker tests
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

package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/mule/mcode/arena"
	"github.com/rcornwell/mule/mcode/opcodes"
)

// objBuilder hand-assembles object-file bytes, matching objfile.Reader's
// section layout exactly.
type objBuilder struct {
	buf []byte
}

func (b *objBuilder) word(w uint16) {
	b.buf = append(b.buf, byte(w>>8), byte(w))
}

func (b *objBuilder) name16(s string) {
	nb := make([]byte, 16)
	copy(nb, s)
	b.buf = append(b.buf, nb...)
}

func (b *objBuilder) module(name string, key [3]uint16, dataSz uint16, code []byte) {
	if len(code)%2 != 0 {
		code = append(code, 0)
	}
	codeWords := uint16(len(code) / 2)

	b.word(0x81) // TagModule
	b.word(0x10)
	b.name16(name)
	b.word(key[0])
	b.word(key[1])
	b.word(key[2])
	b.word(dataSz)
	b.word(codeWords)
	b.word(0)

	b.word(0x83) // TagProcCode: new-format entries
	b.word(2)
	b.word(0)
	b.word(0)

	b.word(0x83) // TagProcCode: code block
	b.word(codeWords)
	b.word(0)
	b.buf = append(b.buf, code...)
}

func (b *objBuilder) imports(names []string, keys [][3]uint16) {
	b.word(0x82) // TagImports
	b.word(uint16(len(names)) * 22)
	for i, n := range names {
		b.name16(n)
		b.word(keys[i][0])
		b.word(keys[i][1])
		b.word(keys[i][2])
	}
}

func (b *objBuilder) data(offset uint16, words []uint16) {
	b.word(0x84) // TagData
	b.word(uint16(len(words) - 1))
	b.word(offset)
	for _, w := range words {
		b.word(w)
	}
}

func (b *objBuilder) fixups(offsets []int) {
	b.word(0x85) // TagFixup
	b.word(uint16(len(offsets)))
	for _, o := range offsets {
		b.word(uint16(o))
	}
}

func writeObjFile(t *testing.T, dir, fileName string, b *objBuilder) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, fileName), b.buf, 0o644); err != nil {
		t.Fatalf("writing test object file: %v", err)
	}
}

func newTestLoader(dirs ...string) *Loader {
	ar := &arena.State{}
	ar.Reset()
	return New(ar, dirs)
}

func TestNewRegistersSystemModule(t *testing.T) {
	l := newTestLoader(".")
	if len(l.Modules) != 1 || l.Modules[0].Name != "System" || !l.Modules[0].Loaded {
		t.Fatalf("got: %+v", l.Modules)
	}
}

func TestBuildIncludePaths(t *testing.T) {
	got := BuildIncludePaths([]string{"/a", "/b"}, "/c:/d")
	want := []string{".", "/a", "/b", "/c", "/d"}
	if len(got) != len(want) {
		t.Fatalf("got: %v expected: %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d got: %q expected: %q", i, got[i], want[i])
		}
	}
}

func TestLoadInitFileSingleModule(t *testing.T) {
	dir := t.TempDir()
	b := &objBuilder{}
	b.module("Hello", [3]uint16{}, 0, []byte{opcodes.RTN})
	writeObjFile(t, dir, "Hello.OBJ", b)

	l := newTestLoader(dir)
	idx, err := l.LoadInitFile("Hello", "LIB")
	if err != nil {
		t.Fatalf("LoadInitFile: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected module index 1, got %d", idx)
	}
	if !l.Modules[idx].Loaded || l.Modules[idx].Name != "Hello" {
		t.Errorf("got: %+v", l.Modules[idx])
	}
	if len(l.Modules[idx].Proc) != 1 {
		t.Errorf("expected one proc entry, got %v", l.Modules[idx].Proc)
	}
}

func TestLoadInitFileMissingDependency(t *testing.T) {
	dir := t.TempDir()
	b := &objBuilder{}
	b.module("Main", [3]uint16{}, 0, []byte{opcodes.RTN})
	b.imports([]string{"NoSuchLib"}, [][3]uint16{{0, 0, 0}})
	writeObjFile(t, dir, "Main.OBJ", b)

	l := newTestLoader(dir)
	if _, err := l.LoadInitFile("Main", "LIB"); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("got: %v expected: %v", err, ErrMissingDependency)
	}
}

func TestLoadInitFileTransitiveDependency(t *testing.T) {
	dir := t.TempDir()

	lib := &objBuilder{}
	lib.module("Util", [3]uint16{}, 0, []byte{opcodes.RTN})
	writeObjFile(t, dir, "Util.OBJ", lib)

	main := &objBuilder{}
	main.module("Main", [3]uint16{}, 0, []byte{opcodes.RTN})
	main.imports([]string{"Util"}, [][3]uint16{{0, 0, 0}})
	writeObjFile(t, dir, "Main.OBJ", main)

	l := newTestLoader(dir)
	idx, err := l.LoadInitFile("Main", "LIB")
	if err != nil {
		t.Fatalf("LoadInitFile: %v", err)
	}
	if len(l.Modules) != 3 { // System, Main, Util
		t.Fatalf("expected 3 modules loaded, got %d: %+v", len(l.Modules), l.Modules)
	}
	if !l.Modules[idx].Loaded {
		t.Errorf("Main not marked loaded")
	}
	var util *Module
	for i := range l.Modules {
		if l.Modules[i].Name == "Util" {
			util = &l.Modules[i]
		}
	}
	if util == nil || !util.Loaded {
		t.Fatalf("Util should have been transitively loaded, got %+v", l.Modules)
	}
}

func TestLoadInitFileKeyMismatch(t *testing.T) {
	dir := t.TempDir()

	main := &objBuilder{}
	main.module("Main", [3]uint16{}, 0, []byte{opcodes.RTN})
	main.imports([]string{"Util"}, [][3]uint16{{9, 9, 9}})
	writeObjFile(t, dir, "Main.OBJ", main)

	lib := &objBuilder{}
	lib.module("Util", [3]uint16{1, 1, 1}, 0, []byte{opcodes.RTN})
	writeObjFile(t, dir, "Util.OBJ", lib)

	l := newTestLoader(dir)
	if _, err := l.LoadInitFile("Main", "LIB"); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("got: %v expected: %v", err, ErrKeyMismatch)
	}
}

func TestFixExtcallsRewritesImportSlot(t *testing.T) {
	dir := t.TempDir()

	lib := &objBuilder{}
	lib.module("Util", [3]uint16{}, 0, []byte{opcodes.RTN})
	writeObjFile(t, dir, "Util.OBJ", lib)

	main := &objBuilder{}
	// CLX opcode followed by a 1-based import-table slot operand.
	code := []byte{opcodes.CLX, 1, opcodes.RTN}
	main.module("Main", [3]uint16{}, 0, code)
	main.imports([]string{"Util"}, [][3]uint16{{0, 0, 0}})
	// Fixup offset points at the operand byte; Code[loc-1] must hold the
	// fixupable opcode itself, so with CLX at index 0 the operand (and
	// thus the fixup location) is index 1.
	main.fixups([]int{1})
	writeObjFile(t, dir, "Main.OBJ", main)

	l := newTestLoader(dir)
	idx, err := l.LoadInitFile("Main", "LIB")
	if err != nil {
		t.Fatalf("LoadInitFile: %v", err)
	}

	util := -1
	for i := range l.Modules {
		if l.Modules[i].Name == "Util" {
			util = i
		}
	}
	if util < 0 {
		t.Fatalf("Util module not found")
	}

	m := l.Modules[idx]
	if int(m.Code[1]) != util {
		t.Errorf("operand got: %d expected module index %d", m.Code[1], util)
	}
}

func TestUnloadReloadReproducesFrames(t *testing.T) {
	dir := t.TempDir()
	b := &objBuilder{}
	code := []byte{opcodes.LI1, opcodes.RTN}
	b.module("Stable", [3]uint16{7, 8, 9}, 4, code)
	b.data(1, []uint16{0xBEEF, 0x1234})
	writeObjFile(t, dir, "Stable.OBJ", b)

	l := newTestLoader(dir)
	idx, err := l.LoadInitFile("Stable", "LIB")
	if err != nil {
		t.Fatalf("LoadInitFile: %v", err)
	}

	firstCode := append([]byte(nil), l.Modules[idx].Code...)
	ofs := l.Modules[idx].DataOfs
	var firstData [4]uint16
	copy(firstData[:], l.ar.DSH[ofs:ofs+4])

	l.UnloadFrom(idx)
	idx2, err := l.LoadInitFile("Stable", "LIB")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if idx2 != idx {
		t.Fatalf("reload index got: %d expected: %d", idx2, idx)
	}
	if !bytes.Equal(l.Modules[idx2].Code, firstCode) {
		t.Errorf("reloaded code frame differs")
	}
	ofs2 := l.Modules[idx2].DataOfs
	for i := uint16(0); i < 4; i++ {
		if l.ar.DSH[ofs2+i] != firstData[i] {
			t.Errorf("data word %d got: %#x expected: %#x", i, l.ar.DSH[ofs2+i], firstData[i])
		}
	}
}

func TestUnloadFromLowersDataTop(t *testing.T) {
	dir := t.TempDir()
	b := &objBuilder{}
	b.module("Hello", [3]uint16{}, 4, []byte{opcodes.RTN})
	writeObjFile(t, dir, "Hello.OBJ", b)

	l := newTestLoader(dir)
	before := l.ar.DataTop
	idx, err := l.LoadInitFile("Hello", "LIB")
	if err != nil {
		t.Fatalf("LoadInitFile: %v", err)
	}
	if l.ar.DataTop != before+4 {
		t.Fatalf("expected DataTop to advance by 4, got %d", l.ar.DataTop)
	}

	l.UnloadFrom(idx)
	if l.ar.DataTop != before {
		t.Errorf("UnloadFrom should restore DataTop, got %d expected %d", l.ar.DataTop, before)
	}
	if len(l.Modules) != idx {
		t.Errorf("UnloadFrom should truncate module table to %d entries, got %d", idx, len(l.Modules))
	}
}

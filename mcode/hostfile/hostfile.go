/*
 * mule - SVC 3 host filesystem surface
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

// Package hostfile implements the SVC 3 file sub-commands: guest code
// opens, reads, writes and seeks byte streams that map onto ordinary host
// files. Modeled on util/tape.Context's attach/detach/position bookkeeping,
// adapted from tape-frame semantics to a flat byte stream addressed by a
// guest file-descriptor word rather than a tape drive unit number.
package hostfile

import (
	"errors"
	"io"
	"os"
	"strings"
)

// Sub-command numbers, per spec §6.
const (
	Create     = 0
	Close      = 1
	Lookup     = 2
	Rename     = 3
	SetRead    = 4
	SetWrite   = 5
	SetModify  = 6
	SetPos     = 8
	GetPos     = 9
	ReadWord   = 13
	WriteWord  = 14
	ReadChar   = 15
	WriteChar  = 16
)

var (
	ErrNotOpen = errors.New("hostfile: descriptor not open")
	ErrEOF     = errors.New("hostfile: end of file")
)

// entry is one open guest file.
type entry struct {
	f     *os.File
	owner uint16
	temp  bool
	name  string
}

// Table tracks every file opened through SVC 3, keyed by the guest
// file-descriptor address used to identify it across calls.
type Table struct {
	open map[uint16]*entry
}

// New creates an empty file table.
func New() *Table {
	return &Table{open: map[uint16]*entry{}}
}

// hostName strips the "DK." device prefix Lilith object code prepends to
// every file name before the name reaches the host filesystem.
func hostName(name string) string {
	return strings.TrimPrefix(name, "DK.")
}

// Create opens a fresh temporary file for addr, owned by owner.
func (t *Table) Create(addr, owner uint16) error {
	f, err := os.CreateTemp("", "mule-*.tmp")
	if err != nil {
		return err
	}
	t.open[addr] = &entry{f: f, owner: owner, temp: true}
	return nil
}

// Lookup opens an existing file, or creates it if create is true and it
// does not exist.
func (t *Table) Lookup(addr, owner uint16, name string, create bool) error {
	hn := hostName(name)
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(hn, flag, 0o644)
	if err != nil {
		return err
	}
	t.open[addr] = &entry{f: f, owner: owner, name: hn}
	return nil
}

// Close closes addr's file and then removes it if it is still marked
// temporary (never renamed).
func (t *Table) Close(addr uint16) error {
	e, ok := t.open[addr]
	if !ok {
		return ErrNotOpen
	}
	name := e.f.Name()
	err := e.f.Close()
	if e.temp {
		_ = os.Remove(name)
	}
	delete(t.open, addr)
	return err
}

// Rename renames addr's file to name; an empty name instead marks the
// file temporary (removed on Close).
func (t *Table) Rename(addr uint16, name string) error {
	e, ok := t.open[addr]
	if !ok {
		return ErrNotOpen
	}
	if name == "" {
		e.temp = true
		return nil
	}
	hn := hostName(name)
	if err := os.Rename(e.f.Name(), hn); err != nil {
		return err
	}
	e.name = hn
	e.temp = false
	return nil
}

// SetPos seeks addr's file to an absolute byte position.
func (t *Table) SetPos(addr uint16, pos uint32) error {
	e, ok := t.open[addr]
	if !ok {
		return ErrNotOpen
	}
	_, err := e.f.Seek(int64(pos), 0)
	return err
}

// GetPos returns addr's file's current byte position.
func (t *Table) GetPos(addr uint16) (uint32, error) {
	e, ok := t.open[addr]
	if !ok {
		return 0, ErrNotOpen
	}
	pos, err := e.f.Seek(0, 1)
	return uint32(pos), err
}

// ReadWord reads one big-endian 16-bit word.
func (t *Table) ReadWord(addr uint16) (uint16, error) {
	e, ok := t.open[addr]
	if !ok {
		return 0, ErrNotOpen
	}
	var b [2]byte
	n, err := e.f.Read(b[:])
	if n < 2 {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrEOF
		}
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// WriteWord writes one big-endian 16-bit word.
func (t *Table) WriteWord(addr uint16, w uint16) error {
	e, ok := t.open[addr]
	if !ok {
		return ErrNotOpen
	}
	b := [2]byte{byte(w >> 8), byte(w)}
	_, err := e.f.Write(b[:])
	return err
}

// ReadChar reads one byte.
func (t *Table) ReadChar(addr uint16) (byte, error) {
	e, ok := t.open[addr]
	if !ok {
		return 0, ErrNotOpen
	}
	var b [1]byte
	n, err := e.f.Read(b[:])
	if n < 1 {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrEOF
		}
		return 0, err
	}
	return b[0], nil
}

// WriteChar writes one byte.
func (t *Table) WriteChar(addr uint16, c byte) error {
	e, ok := t.open[addr]
	if !ok {
		return ErrNotOpen
	}
	_, err := e.f.Write([]byte{c})
	return err
}

// CloseOwnedBy closes every file owned by owner, as happens when that
// module is unloaded.
func (t *Table) CloseOwnedBy(owner uint16) {
	for addr, e := range t.open {
		if e.owner == owner {
			_ = t.Close(addr)
		}
	}
}

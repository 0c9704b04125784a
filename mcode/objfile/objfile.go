/*
 * mule - Object file section reader
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

// Package objfile parses the tagged-section Lilith object file format:
// start-of-file markers, module headers, import lists, interleaved
// procedure-entry/code-block records, data initializers, and relocation
// (fixup) offset lists. It has no notion of a module table or a linker;
// it just turns bytes into typed sections, the way util/tape's reader
// turns tape frames into typed records without knowing what a channel
// program is.
package objfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Section tags. The file stores each as a 16-bit big-endian word whose
// high byte is always zero; Next below strips that down to a byte.
const (
	TagStart    = 0x80
	TagAltStart = 0xC1
	TagModule   = 0x81
	TagImports  = 0x82
	TagProcCode = 0x83
	TagData     = 0x84
	TagFixup    = 0x85
)

var (
	ErrBadStart  = errors.New("objfile: bad start-of-file marker")
	ErrBadTag    = errors.New("objfile: unrecognized section tag")
	ErrTruncated = errors.New("objfile: truncated section")
)

// Key is a module's 3-word identity/version signature.
type Key [3]uint16

// ModuleHeader is a parsed MODULE section (tag 0x81).
type ModuleHeader struct {
	Name     string
	Key      Key
	DataSize uint16 // words
	CodeSize uint16 // words (caller multiplies by 2 for bytes)
}

// ImportRecord names one imported module and its expected key.
type ImportRecord struct {
	Name string
	Key  Key
}

// ProcEntries is a parsed procedure-entry half of a 0x83 section.
// OldFormat records a single entry point at index Pidx; otherwise
// Entries holds entry points for procedure indices 0..len(Entries)-1.
type ProcEntries struct {
	OldFormat bool
	Pidx      int
	Entry     uint16   // valid when OldFormat
	Entries   []uint16 // valid when !OldFormat
}

// CodeBlock is a parsed code half of a 0x83 section: raw bytes to be
// copied into the current module's code frame at ByteOffset.
type CodeBlock struct {
	ByteOffset uint16
	Bytes      []byte
}

// DataInit is a parsed DATA section (tag 0x84): raw words to be written
// into the current module's data frame starting at WordOffset.
type DataInit struct {
	WordOffset uint16
	Words      []uint16
}

// Fixups is a parsed relocation section (tag 0x85): absolute byte offsets
// into the current procedure's code whose operand needs linking.
type Fixups struct {
	Offsets []int
}

// Reader parses a sequence of object-file sections. The 0x83 tag
// alternates between ProcEntries and CodeBlock on successive
// occurrences; Reader tracks that toggle internally.
type Reader struct {
	r           *bufio.Reader
	sawStart    bool
	procToggle  bool // false: next 0x83 is ProcEntries, true: next is CodeBlock
}

// NewReader wraps r for section-at-a-time parsing.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (p *Reader) readByte() (byte, error) {
	return p.r.ReadByte()
}

func (p *Reader) readWord() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(p.r, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (p *Reader) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, ErrTruncated
	}
	return buf, nil
}

func (p *Reader) readKey() (Key, error) {
	var k Key
	for i := range k {
		w, err := p.readWord()
		if err != nil {
			return k, err
		}
		k[i] = w
	}
	return k, nil
}

// nameFromBytes trims trailing NUL padding from a fixed-width name field.
func nameFromBytes(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// Next reads and returns the next section. It returns io.EOF when the
// file is exhausted between sections (a well-formed object file ends
// right after a section, never mid-section).
func (p *Reader) Next() (any, error) {
	tagWord, err := p.readWord()
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return nil, io.EOF
		}
		return nil, err
	}
	tag := tagWord & 0xFF

	switch tag {
	case TagStart:
		marker, err := p.readWord()
		if err != nil {
			return nil, err
		}
		if marker != 1 {
			return nil, ErrBadStart
		}
		if _, err := p.readWord(); err != nil { // ignored
			return nil, err
		}
		p.sawStart = true
		return struct{}{}, nil

	case TagAltStart:
		if _, err := p.readWord(); err != nil { // ignored
			return nil, err
		}
		p.sawStart = true
		return struct{}{}, nil

	case TagModule:
		return p.readModule()

	case TagImports:
		return p.readImports()

	case TagProcCode:
		section, err := p.readProcOrCode()
		p.procToggle = !p.procToggle
		return section, err

	case TagData:
		return p.readData()

	case TagFixup:
		return p.readFixups()

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadTag, tag)
	}
}

func (p *Reader) readModule() (*ModuleHeader, error) {
	n, err := p.readWord()
	if err != nil {
		return nil, err
	}
	nameBytes, err := p.readBytes(16)
	if err != nil {
		return nil, err
	}
	key, err := p.readKey()
	if err != nil {
		return nil, err
	}
	if n == 0x11 {
		if _, err := p.readBytes(6); err != nil {
			return nil, err
		}
	}
	dataSz, err := p.readWord()
	if err != nil {
		return nil, err
	}
	codeSz, err := p.readWord()
	if err != nil {
		return nil, err
	}
	if _, err := p.readWord(); err != nil { // trailing word, ignored
		return nil, err
	}
	return &ModuleHeader{
		Name:     nameFromBytes(nameBytes),
		Key:      key,
		DataSize: dataSz,
		CodeSize: codeSz,
	}, nil
}

// ImportSection is a parsed IMPORTS section (tag 0x82).
type ImportSection struct {
	Records []ImportRecord
}

func (p *Reader) readImports() (*ImportSection, error) {
	totalLen, err := p.readWord()
	if err != nil {
		return nil, err
	}
	n := int(totalLen) / 22 // 16-byte name + 3-word (6-byte) key
	recs := make([]ImportRecord, 0, n)
	for i := 0; i < n; i++ {
		nameBytes, err := p.readBytes(16)
		if err != nil {
			return nil, err
		}
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		recs = append(recs, ImportRecord{Name: nameFromBytes(nameBytes), Key: key})
	}
	return &ImportSection{Records: recs}, nil
}

func (p *Reader) readProcOrCode() (any, error) {
	if !p.procToggle {
		length, err := p.readWord()
		if err != nil {
			return nil, err
		}
		pidx, err := p.readWord()
		if err != nil {
			return nil, err
		}
		if pidx != 0 {
			entry, err := p.readWord()
			if err != nil {
				return nil, err
			}
			return &ProcEntries{OldFormat: true, Pidx: int(pidx), Entry: entry}, nil
		}
		count := int(length) - 1
		if count < 0 {
			count = 0
		}
		entries := make([]uint16, count)
		for i := range entries {
			w, err := p.readWord()
			if err != nil {
				return nil, err
			}
			entries[i] = w
		}
		return &ProcEntries{OldFormat: false, Entries: entries}, nil
	}

	wordLen, err := p.readWord()
	if err != nil {
		return nil, err
	}
	wordOfs, err := p.readWord()
	if err != nil {
		return nil, err
	}
	data, err := p.readBytes(int(wordLen) * 2)
	if err != nil {
		return nil, err
	}
	return &CodeBlock{ByteOffset: wordOfs * 2, Bytes: data}, nil
}

func (p *Reader) readData() (*DataInit, error) {
	lenMinus1, err := p.readWord()
	if err != nil {
		return nil, err
	}
	ofs, err := p.readWord()
	if err != nil {
		return nil, err
	}
	count := int(lenMinus1) + 1
	words := make([]uint16, count)
	for i := range words {
		w, err := p.readWord()
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return &DataInit{WordOffset: ofs, Words: words}, nil
}

func (p *Reader) readFixups() (*Fixups, error) {
	count, err := p.readWord()
	if err != nil {
		return nil, err
	}
	offs := make([]int, count)
	for i := range offs {
		w, err := p.readWord()
		if err != nil {
			return nil, err
		}
		offs[i] = int(w)
	}
	return &Fixups{Offsets: offs}, nil
}

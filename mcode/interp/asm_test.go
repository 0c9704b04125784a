/*
 * mule - tiny two-pass assembler for interpreter tests
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

package interp

// asm assembles test programs directly to bytes; it exists only so the
// jump-offset-bearing tests (FOR, CASE) don't need hand-counted byte
// offsets that silently rot if an instruction's encoding changes.
type asm struct {
	buf    []byte
	labels map[string]uint16
	fixups []asmFixup
}

type asmFixup struct {
	pos   int
	label string
	from  string // "here" (relative to byte after the field), "back", or "abs"
}

func newAsm() *asm {
	return &asm{labels: map[string]uint16{}}
}

func (a *asm) label(name string) *asm {
	a.labels[name] = uint16(len(a.buf))
	return a
}

func (a *asm) b(v byte) *asm {
	a.buf = append(a.buf, v)
	return a
}

func (a *asm) w2(v uint16) *asm {
	a.buf = append(a.buf, byte(v>>8), byte(v))
	return a
}

// jumpTo reserves a 2-byte field to be filled with (label - (pos after field)),
// matching the forward/backward relative jump opcodes.
func (a *asm) jumpTo(label string) *asm {
	pos := len(a.buf)
	a.buf = append(a.buf, 0, 0)
	a.fixups = append(a.fixups, asmFixup{pos: pos, label: label, from: "here"})
	return a
}

// backTo reserves a 2-byte field filled with ((pos after field) - label), for
// FOR2's backward offset.
func (a *asm) backTo(label string) *asm {
	pos := len(a.buf)
	a.buf = append(a.buf, 0, 0)
	a.fixups = append(a.fixups, asmFixup{pos: pos, label: label, from: "back"})
	return a
}

// at reserves a 2-byte field holding a label's absolute byte offset, the
// encoding CASE table entries use.
func (a *asm) at(label string) *asm {
	pos := len(a.buf)
	a.buf = append(a.buf, 0, 0)
	a.fixups = append(a.fixups, asmFixup{pos: pos, label: label, from: "abs"})
	return a
}

func (a *asm) code() []byte {
	for _, f := range a.fixups {
		target := a.labels[f.label]
		after := uint16(f.pos + 2)
		var v uint16
		switch f.from {
		case "back":
			v = after - target
		case "abs":
			v = target
		default:
			v = target - after
		}
		a.buf[f.pos] = byte(v >> 8)
		a.buf[f.pos+1] = byte(v)
	}
	return a.buf
}

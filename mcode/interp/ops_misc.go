/*
 * mule - block move/compare, character output and bit-field opcodes
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

import "github.com/rcornwell/mule/mcode/opcodes"

// opMOV copies k words from DSH[j..] to DSH[i..], by way of a temporary
// so overlapping source/destination ranges behave like memmove rather
// than corrupting one end of the range.
func opMOV(m *Machine) uint16 {
	k := m.pop()
	j := m.pop()
	i := m.pop()
	tmp := make([]uint16, k)
	copy(tmp, m.Ar.DSH[j:uint32(j)+uint32(k)])
	copy(m.Ar.DSH[i:uint32(i)+uint32(k)], tmp)
	return 0
}

// opCMP compares k words starting at i against k words starting at j,
// pushing -1, 0 or 1 for the first differing pair (or 0 if all equal).
func opCMP(m *Machine) uint16 {
	k := m.pop()
	j := m.pop()
	i := m.pop()
	result := int16(0)
	for x := uint16(0); x < k; x++ {
		a := m.Ar.DSH[i+x]
		b := m.Ar.DSH[j+x]
		if a != b {
			if a < b {
				result = -1
			} else {
				result = 1
			}
			break
		}
	}
	m.push(uint16(result))
	return 0
}

// opDCH pops the character and its bitmap cursor position; on a character
// terminal the position is meaningless, so this reduces to a putchar the
// way the terminal surface contract says it should.
func opDCH(m *Machine) uint16 {
	ch := m.pop()
	m.pop() // y
	m.pop() // x
	m.Term.Put(byte(ch))
	return 0
}

// opUNPK extracts bits [i, i+n) of w, right-justified.
func opUNPK(m *Machine) uint16 {
	n := m.pop()
	i := m.pop()
	w := m.pop()
	var mask uint16 = 0xFFFF
	if n < 16 {
		mask = (uint16(1) << n) - 1
	}
	m.push((w >> i) & mask)
	return 0
}

// opPACK inserts the low n bits of val into DSH[addr] at bit position i.
func opPACK(m *Machine) uint16 {
	n := m.pop()
	i := m.pop()
	addr := m.pop()
	val := m.pop()
	var bits uint16 = 0xFFFF
	if n < 16 {
		bits = (uint16(1) << n) - 1
	}
	mask := bits << i
	m.Ar.DSH[addr] = (m.Ar.DSH[addr] &^ mask) | ((val << i) & mask)
	return 0
}

// opSTORE spills the expression stack onto the procedure stack ahead of
// an external call, the mechanism the CLX/CLI calling convention relies
// on to carry in-flight expression results across a call that might
// itself use the expression stack.
func opSTORE(m *Machine) uint16 {
	if err := m.Ar.Spill(); err != nil {
		return opcodes.TrapStackOverflow
	}
	return 0
}

// opLODF is LODFW/LODFD: both restore the spilled expression stack left
// behind by STORE.
func opLODF(m *Machine) uint16 {
	if err := m.Ar.Restore(); err != nil {
		return opcodes.TrapStackOverflow
	}
	return 0
}

// opSTOT stores the popped word into the top of the procedure stack
// without moving S, a narrow write-back used to patch a value already
// reserved by ALLOC/ENTR.
func opSTOT(m *Machine) uint16 {
	v := m.pop()
	if m.Ar.S == 0 {
		return opcodes.TrapStackOverflow
	}
	m.Ar.DSH[m.Ar.S-1] = v
	return 0
}

// opSTOFV stores through a formal (VAR) parameter: pop the value, then
// the address it was passed by reference as, and write it there.
func opSTOFV(m *Machine) uint16 {
	v := m.pop()
	addr := m.pop()
	m.Ar.DSH[addr] = v
	return 0
}

// opCOPT duplicates the top of the expression stack.
func opCOPT(m *Machine) uint16 {
	v, err := m.Ar.TopW()
	if err != nil {
		return opcodes.TrapStackOverflow
	}
	m.push(v)
	return 0
}

// opDECS pops a count and lowers S by that many words, the ALLOC/ENTR
// frame-teardown counterpart.
func opDECS(m *Machine) uint16 {
	n := uint32(m.pop())
	if n > m.Ar.S {
		return opcodes.TrapStackOverflow
	}
	m.Ar.S -= n
	return 0
}

// opPCOP packs a (module, procedure) pair into one word, the formal
// procedure value CLF's dynamic call later unpacks; this is this
// implementation's resolution for constructing such a value, paired with
// CLF's documented layout even though CLF's own consumption is stubbed
// as an open question.
func opPCOP(m *Machine) uint16 {
	procIdx := m.pop()
	modIdx := m.pop()
	m.push(modIdx<<8 | (procIdx & 0xFF))
	return 0
}

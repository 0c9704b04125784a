/*
 * mule - integer, double, bitwise and unsigned arithmetic opcodes
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

func opDADD(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(a + b); return 0 }
func opDSUB(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(a - b); return 0 }
func opDMUL(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(a * b); return 0 }

func opDDIV(m *Machine) uint16 {
	b := int32(m.popD())
	a := int32(m.popD())
	if b == 0 {
		return opcodes.TrapIntArith
	}
	m.pushD(uint32(a / b))
	return 0
}

func opDSHL(m *Machine) uint16 {
	cnt := m.pop()
	a := m.popD()
	if cnt >= 32 {
		m.pushD(0)
	} else {
		m.pushD(a << cnt)
	}
	return 0
}

func opDSHR(m *Machine) uint16 {
	cnt := m.pop()
	a := int32(m.popD())
	if cnt >= 32 {
		if a < 0 {
			m.pushD(^uint32(0))
		} else {
			m.pushD(0)
		}
	} else {
		m.pushD(uint32(a >> cnt))
	}
	return 0
}

// opSCmp builds a signed-compare opcode for the CMPI family (0310-0315).
func opSCmp(cmp func(a, b int16) bool) opFunc {
	return func(m *Machine) uint16 {
		b := int16(m.pop())
		a := int16(m.pop())
		if cmp(a, b) {
			m.push(1)
		} else {
			m.push(0)
		}
		return 0
	}
}

// opUCmp builds an unsigned-compare opcode for ULSS/ULEQ/UGTR/UGEQ.
func opUCmp(cmp func(a, b uint16) bool) opFunc {
	return func(m *Machine) uint16 {
		b := m.pop()
		a := m.pop()
		if cmp(a, b) {
			m.push(1)
		} else {
			m.push(0)
		}
		return 0
	}
}

func opABS(m *Machine) uint16 {
	v := int16(m.pop())
	if v < 0 {
		v = -v
	}
	m.push(uint16(v))
	return 0
}

func opNEG(m *Machine) uint16 {
	m.push(uint16(-int16(m.pop())))
	return 0
}

func opOR(m *Machine) uint16  { b := m.pop(); a := m.pop(); m.push(a | b); return 0 }
func opXOR(m *Machine) uint16 { b := m.pop(); a := m.pop(); m.push(a ^ b); return 0 }
func opAND(m *Machine) uint16 { b := m.pop(); a := m.pop(); m.push(a & b); return 0 }
func opCOM(m *Machine) uint16 { m.push(^m.pop()); return 0 }

// opIN tests whether bit b of set word s is set.
func opIN(m *Machine) uint16 {
	bit := m.pop()
	set := m.pop()
	m.push((set >> (bit & 15)) & 1)
	return 0
}

// opLIN is IN over a 32-bit set.
func opLIN(m *Machine) uint16 {
	bit := m.pop()
	set := m.popD()
	m.push(uint16((set >> (bit & 31)) & 1))
	return 0
}

// opMSK builds a mask of the low n bits.
func opMSK(m *Machine) uint16 {
	n := m.pop()
	if n >= 16 {
		m.push(0xFFFF)
	} else {
		m.push((uint16(1) << n) - 1)
	}
	return 0
}

func opNOT(m *Machine) uint16 {
	if m.pop() == 0 {
		m.push(1)
	} else {
		m.push(0)
	}
	return 0
}

func opIADD(m *Machine) uint16 {
	b := int16(m.pop())
	a := int16(m.pop())
	sum := int32(a) + int32(b)
	if sum < -32768 || sum > 32767 {
		return opcodes.TrapIntArith
	}
	m.push(uint16(int16(sum)))
	return 0
}

func opISUB(m *Machine) uint16 {
	b := int16(m.pop())
	a := int16(m.pop())
	diff := int32(a) - int32(b)
	if diff < -32768 || diff > 32767 {
		return opcodes.TrapIntArith
	}
	m.push(uint16(int16(diff)))
	return 0
}

func opIMUL(m *Machine) uint16 {
	b := int16(m.pop())
	a := int16(m.pop())
	prod := int32(a) * int32(b)
	if prod < -32768 || prod > 32767 {
		return opcodes.TrapIntArith
	}
	m.push(uint16(int16(prod)))
	return 0
}

func opIDIV(m *Machine) uint16 {
	b := int16(m.pop())
	a := int16(m.pop())
	if b == 0 || (a == -32768 && b == -1) {
		return opcodes.TrapIntArith
	}
	m.push(uint16(a / b))
	return 0
}

func opIMOD(m *Machine) uint16 {
	b := int16(m.pop())
	a := int16(m.pop())
	if b == 0 {
		return opcodes.TrapIntArith
	}
	m.push(uint16(a % b))
	return 0
}

// opBIT pushes a single-bit mask (1 << n), the SET-constructor counterpart
// to IN's membership test.
func opBIT(m *Machine) uint16 {
	n := m.pop()
	m.push(uint16(1) << (n & 15))
	return 0
}

func opUADD(m *Machine) uint16 {
	b := m.pop()
	a := m.pop()
	sum := uint32(a) + uint32(b)
	if sum > 0xFFFF {
		return opcodes.TrapIntArith
	}
	m.push(uint16(sum))
	return 0
}

func opUSUB(m *Machine) uint16 {
	b := m.pop()
	a := m.pop()
	if b > a {
		return opcodes.TrapIntArith
	}
	m.push(a - b)
	return 0
}

func opUMUL(m *Machine) uint16 {
	b := m.pop()
	a := m.pop()
	prod := uint32(a) * uint32(b)
	if prod > 0xFFFF {
		return opcodes.TrapIntArith
	}
	m.push(uint16(prod))
	return 0
}

func opUDIV(m *Machine) uint16 {
	b := m.pop()
	a := m.pop()
	if b == 0 {
		return opcodes.TrapIntArith
	}
	m.push(a / b)
	return 0
}

func opUMOD(m *Machine) uint16 {
	b := m.pop()
	a := m.pop()
	if b == 0 {
		return opcodes.TrapIntArith
	}
	m.push(a % b)
	return 0
}

// opROR rotates right by a count taken from the expression stack. The
// reference ISA's rotate for a full 16-bit word is itself ambiguous at
// count 0 (a shift by 16 is undefined behavior on most hardware); this
// reduces the count mod 16 and treats 0 as a no-op, the conventional fix.
func opROR(m *Machine) uint16 {
	cnt := m.pop() % 16
	v := m.pop()
	if cnt == 0 {
		m.push(v)
	} else {
		m.push((v >> cnt) | (v << (16 - cnt)))
	}
	return 0
}

func opSHL(m *Machine) uint16 {
	cnt := m.pop()
	v := m.pop()
	if cnt >= 16 {
		m.push(0)
	} else {
		m.push(v << cnt)
	}
	return 0
}

func opSHR(m *Machine) uint16 {
	cnt := m.pop()
	v := m.pop()
	if cnt >= 16 {
		m.push(0)
	} else {
		m.push(v >> cnt)
	}
	return 0
}

/*
 * mule - load, store and jump opcodes
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

// opOpenQuestion traps opcodes the source material leaves genuinely
// ambiguous (TRA, CLF, BBLT, REPL, DDT, MOVF, LXFW, SXFW): rather than
// invent behavior for these, they
// raise an invalid-opcode trap so a program that exercises them fails
// loudly instead of silently doing the wrong thing.
func opOpenQuestion(m *Machine) uint16 {
	return opcodes.TrapInvalidOpcode
}

func opLIB(m *Machine) uint16 {
	m.push(uint16(m.next()))
	return 0
}

func opLIW(m *Machine) uint16 {
	m.push(m.next2())
	return 0
}

func opLID(m *Machine) uint16 {
	hi := m.next2()
	lo := m.next2()
	m.pushD(uint32(hi)<<16 | uint32(lo))
	return 0
}

func opLLA(m *Machine) uint16 {
	m.push(m.L + uint16(m.next()))
	return 0
}

func opLGA(m *Machine) uint16 {
	m.push(m.G + uint16(m.next()))
	return 0
}

func opLSA(m *Machine) uint16 {
	base := m.pop()
	m.push(base + uint16(m.next()))
	return 0
}

// externalDataOfs reads a fixed-up module-index byte and an offset byte,
// returning the absolute arena address of that module's data word.
func (m *Machine) externalDataOfs() uint16 {
	modIdx := int(m.next())
	ofs := uint16(m.next())
	return m.Loader.Modules[modIdx].DataOfs + ofs
}

func opLEA(m *Machine) uint16 {
	m.push(m.externalDataOfs())
	return 0
}

func opLLW(m *Machine) uint16 {
	m.push(m.Ar.DSH[m.L+uint16(m.next())])
	return 0
}

func opLLD(m *Machine) uint16 {
	m.pushD(m.getD(m.L + uint16(m.next())))
	return 0
}

func opLEW(m *Machine) uint16 {
	m.push(m.Ar.DSH[m.externalDataOfs()])
	return 0
}

func opLED(m *Machine) uint16 {
	m.pushD(m.getD(m.externalDataOfs()))
	return 0
}

func opSLW(m *Machine) uint16 {
	n := uint16(m.next())
	m.Ar.DSH[m.L+n] = m.pop()
	return 0
}

func opSLD(m *Machine) uint16 {
	n := uint16(m.next())
	m.setD(m.L+n, m.popD())
	return 0
}

func opSEW(m *Machine) uint16 {
	addr := m.externalDataOfs()
	m.Ar.DSH[addr] = m.pop()
	return 0
}

func opSED(m *Machine) uint16 {
	addr := m.externalDataOfs()
	m.setD(addr, m.popD())
	return 0
}

func opLGW(m *Machine) uint16 {
	m.push(m.Ar.DSH[m.G+uint16(m.next())])
	return 0
}

func opLGD(m *Machine) uint16 {
	m.pushD(m.getD(m.G + uint16(m.next())))
	return 0
}

func opSGW(m *Machine) uint16 {
	n := uint16(m.next())
	m.Ar.DSH[m.G+n] = m.pop()
	return 0
}

func opSGD(m *Machine) uint16 {
	n := uint16(m.next())
	m.setD(m.G+n, m.popD())
	return 0
}

// opLSW/opLSD/opLSTA/opLXB/opLXW/opLXD are the stack-indexed load family:
// the base address (and, for the indexed forms, an index) come off the
// expression stack rather than as immediate operands.
func opLSW(m *Machine) uint16 {
	addr := m.pop()
	m.push(m.Ar.DSH[addr])
	return 0
}

func opLSD(m *Machine) uint16 {
	addr := m.pop()
	m.pushD(m.getD(addr))
	return 0
}

// opLSTA computes a byte address from a word base and index, used ahead
// of LXB/SXB to address into packed character data.
func opLSTA(m *Machine) uint16 {
	idx := m.pop()
	base := m.pop()
	m.push(base + idx)
	return 0
}

func (m *Machine) readByte(wordAddr, idx uint16) byte {
	word := m.Ar.DSH[wordAddr+idx/2]
	if idx%2 == 0 {
		return byte(word)
	}
	return byte(word >> 8)
}

func (m *Machine) writeByte(wordAddr, idx uint16, b byte) {
	word := m.Ar.DSH[wordAddr+idx/2]
	if idx%2 == 0 {
		word = word&0xFF00 | uint16(b)
	} else {
		word = word&0x00FF | uint16(b)<<8
	}
	m.Ar.DSH[wordAddr+idx/2] = word
}

func opLXB(m *Machine) uint16 {
	idx := m.pop()
	addr := m.pop()
	m.push(uint16(m.readByte(addr, idx)))
	return 0
}

func opLXW(m *Machine) uint16 {
	idx := m.pop()
	addr := m.pop()
	m.push(m.Ar.DSH[addr+idx])
	return 0
}

func opLXD(m *Machine) uint16 {
	idx := m.pop()
	addr := m.pop()
	m.pushD(m.getD(addr + idx*2))
	return 0
}

func opSSW(m *Machine) uint16 {
	v := m.pop()
	addr := m.pop()
	m.Ar.DSH[addr] = v
	return 0
}

func opSSD(m *Machine) uint16 {
	v := m.popD()
	addr := m.pop()
	m.setD(addr, v)
	return 0
}

func opSXB(m *Machine) uint16 {
	v := m.pop()
	idx := m.pop()
	addr := m.pop()
	m.writeByte(addr, idx, byte(v))
	return 0
}

func opSXW(m *Machine) uint16 {
	v := m.pop()
	idx := m.pop()
	addr := m.pop()
	m.Ar.DSH[addr+idx] = v
	return 0
}

func opSXD(m *Machine) uint16 {
	v := m.popD()
	idx := m.pop()
	addr := m.pop()
	m.setD(addr+idx*2, v)
	return 0
}

// Jumps. JP and JPC carry 2-byte signed relative offsets; the short
// forms JPF/JPB (and the conditional JPFC/JPBC) carry a 1-byte unsigned
// distance, forward or backward per the mnemonic. The *C forms pop a
// boolean and jump only when it is zero (compiled Modula-2 negates the
// condition at the jump, the usual "jump if NOT true" shape); ORJP/ANDJP
// implement short-circuit boolean evaluation by jumping on a decided
// outcome with the result left on the stack, popping only when the next
// operand still matters.
func opJP(m *Machine) uint16 {
	ofs := int16(m.next2())
	m.PC = uint16(int32(m.PC) + int32(ofs))
	return 0
}

func opJPF(m *Machine) uint16 {
	ofs := uint16(m.next())
	m.PC += ofs
	return 0
}

func opJPB(m *Machine) uint16 {
	ofs := uint16(m.next())
	m.PC -= ofs
	return 0
}

func opJPC(m *Machine) uint16 {
	ofs := int16(m.next2())
	if m.pop() == 0 {
		m.PC = uint16(int32(m.PC) + int32(ofs))
	}
	return 0
}

func opJPFC(m *Machine) uint16 {
	ofs := uint16(m.next())
	if m.pop() == 0 {
		m.PC += ofs
	}
	return 0
}

func opJPBC(m *Machine) uint16 {
	ofs := uint16(m.next())
	if m.pop() == 0 {
		m.PC -= ofs
	}
	return 0
}

func opORJP(m *Machine) uint16 {
	ofs := uint16(m.next())
	if v, err := m.Ar.TopW(); err == nil && v != 0 {
		m.PC += ofs
		return 0
	}
	m.pop()
	return 0
}

func opANDJP(m *Machine) uint16 {
	ofs := uint16(m.next())
	if v, err := m.Ar.TopW(); err == nil && v == 0 {
		m.PC += ofs
		return 0
	}
	m.pop()
	return 0
}

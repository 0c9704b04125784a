/*
 * mule - call frames, static chain, FOR/CASE and trap opcodes
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

// opGB follows the static chain n levels up from the current frame,
// pushing the resulting frame's base address.
func opGB(m *Machine) uint16 {
	n := m.next()
	addr := m.L
	for i := byte(0); i < n; i++ {
		addr = m.Ar.DSH[addr+1]
	}
	m.push(addr)
	return 0
}

// opGB1 is GB with an implicit count of one.
func opGB1(m *Machine) uint16 {
	m.push(m.Ar.DSH[m.L+1])
	return 0
}

func opALLOC(m *Machine) uint16 {
	words := uint32(m.pop())
	if m.Ar.S+words > m.Ar.H {
		return opcodes.TrapStackOverflow
	}
	m.Ar.S += words
	return 0
}

func opENTR(m *Machine) uint16 {
	n := uint32(m.next())
	if m.Ar.S+n > m.Ar.H {
		return opcodes.TrapStackOverflow
	}
	m.Ar.S += n
	return 0
}

func opRTN(m *Machine) uint16 {
	m.doReturn()
	return 0
}

// opCLX is an external call: two operand bytes, module index (fixed up
// by the loader to an absolute module-table index) and procedure index
// (left as a literal local procedure number within that module). A call
// to module 0, procedure 0 is the reserved no-op sink.
func opCLX(m *Machine) uint16 {
	modIdx := int(m.next())
	procIdx := int(m.next())
	if modIdx == 0 && procIdx == 0 {
		return 0
	}
	return m.callExternal(modIdx, procIdx)
}

func (m *Machine) callExternal(modIdx, procIdx int) uint16 {
	if modIdx < 0 || modIdx >= len(m.Loader.Modules) {
		return opcodes.TrapIndex
	}
	proc := m.Loader.Modules[modIdx].Proc
	if procIdx < 0 || procIdx >= len(proc) || proc[procIdx] == 0 {
		return opcodes.TrapIndex
	}
	entry := proc[procIdx]
	callerModn := uint16(m.modn)
	callerL := m.L
	callerPC := m.PC
	if !m.pushCallFrame(callerModn, callerL, callerPC) {
		return opcodes.TrapStackOverflow
	}
	m.switchModule(modIdx)
	m.PC = entry
	return 0
}

// opCLI is an intermediate-level call: the static-link base comes off the
// expression stack instead of being the caller's L, letting a nested
// procedure more than one lexical level up be invoked directly.
func opCLI(m *Machine) uint16 {
	procIdx := int(m.next())
	base := m.pop()
	proc := m.Loader.Modules[m.modn].Proc
	if procIdx < 0 || procIdx >= len(proc) || proc[procIdx] == 0 {
		return opcodes.TrapIndex
	}
	callerPC := m.PC
	if !m.pushCallFrame(m.CS+0x100, base, callerPC) {
		return opcodes.TrapStackOverflow
	}
	m.PC = proc[procIdx]
	return 0
}

// doCLL is the common body of CLL+ (explicit operand) and CLL1..CLL15
// (procedure index folded into the opcode itself).
func (m *Machine) doCLL(procIdx byte) uint16 {
	proc := m.Loader.Modules[m.modn].Proc
	if int(procIdx) >= len(proc) || proc[procIdx] == 0 {
		return opcodes.TrapIndex
	}
	callerL := m.L
	callerPC := m.PC
	if !m.pushCallFrame(m.CS+0x100, callerL, callerPC) {
		return opcodes.TrapStackOverflow
	}
	m.PC = proc[procIdx]
	return 0
}

// opCLL0 is CLL+: the procedure index is a following operand byte rather
// than folded into the opcode.
func opCLL0(m *Machine) uint16 {
	return m.doCLL(m.next())
}

// opENTP raises the running priority to the popped value; the previous
// priority was saved into the call frame's fourth word when the frame was
// pushed, which is where EXP finds it again.
func opENTP(m *Machine) uint16 {
	m.priority = m.pop()
	return 0
}

func opEXP(m *Machine) uint16 {
	m.priority = m.Ar.DSH[m.CS+3]
	return 0
}

// opFOR1 starts a FOR loop: it pops the control variable's address, the
// initial value and the bound, checks whether the loop runs at all, and
// either stores the first value and pushes the two control words (addr,
// bound) onto the procedure stack for FOR2 to read each iteration, or
// skips past the loop body. The control words live on the procedure
// stack, not the expression stack, so a loop body is free to make calls
// that spill and restore the expression stack around them.
func opFOR1(m *Machine) uint16 {
	addr := m.pop()
	lo := m.pop()
	hi := m.pop()
	down := m.next() != 0
	skip := int16(m.next2())

	runs := int16(lo) <= int16(hi)
	if down {
		runs = int16(lo) >= int16(hi)
	}
	if !runs {
		m.PC = uint16(int32(m.PC) + int32(skip))
		return 0
	}
	m.Ar.DSH[addr] = lo
	if m.Ar.S+2 > m.Ar.H {
		return opcodes.TrapStackOverflow
	}
	m.Ar.DSH[m.Ar.S] = addr
	m.Ar.DSH[m.Ar.S+1] = hi
	m.Ar.S += 2
	return 0
}

// opFOR2 closes one iteration: step the control variable, and either loop
// back or discard the two control words and fall through past the loop.
func opFOR2(m *Machine) uint16 {
	step := int8(m.next())
	back := m.next2()
	addr := m.Ar.DSH[m.Ar.S-2]
	hi := m.Ar.DSH[m.Ar.S-1]

	cur := int16(m.Ar.DSH[addr])
	next := cur + int16(step)
	within := next <= int16(hi)
	if step < 0 {
		within = next >= int16(hi)
	}
	if within {
		m.Ar.DSH[addr] = uint16(next)
		m.PC -= back
	} else {
		m.Ar.S -= 2
	}
	return 0
}

// opENTC begins a CASE statement. The 2-byte operand is the forward
// distance from the current PC to the selector table the compiler places
// past the arms: two bound words (low, hi), then one entry word per
// selector value in [low, hi], each an absolute byte offset into the
// code frame (the same convention the proc table uses). The end-of-table
// address is pushed for EXC; because the table sits last, that address
// is the first instruction after the whole statement. A selector outside
// [low, hi] falls through into the default arm that directly follows
// ENTC.
func opENTC(m *Machine) uint16 {
	ofs := m.next2()
	table := m.PC + ofs
	low := int16(m.codeWord(table))
	hi := int16(m.codeWord(table + 2))
	count := int(hi) - int(low) + 1
	if count < 0 {
		count = 0
	}
	tableEnd := table + 4 + uint16(count)*2
	sel := int16(m.pop())

	m.push(tableEnd)
	if sel < low || sel > hi {
		return 0
	}
	m.PC = m.codeWord(table + 4 + uint16(sel-low)*2)
	return 0
}

// opEXC jumps to the end-of-table address ENTC pushed, skipping past the
// rest of the CASE statement at the close of one arm.
func opEXC(m *Machine) uint16 {
	m.PC = m.pop()
	return 0
}

func opTRAP(m *Machine) uint16 {
	return m.pop()
}

// The check opcodes take all their operands from the expression stack
// and leave the checked value back on top when it passes.

// opCHK range-checks a signed value against popped [lo, hi] bounds.
func opCHK(m *Machine) uint16 {
	hi := int16(m.pop())
	lo := int16(m.pop())
	v := int16(m.pop())
	if v < lo || v > hi {
		return opcodes.TrapIndex
	}
	m.push(uint16(v))
	return 0
}

// opCHKZ is CHK with an implicit lower bound of zero.
func opCHKZ(m *Machine) uint16 {
	hi := int16(m.pop())
	v := int16(m.pop())
	if v < 0 || v > hi {
		return opcodes.TrapIndex
	}
	m.push(uint16(v))
	return 0
}

// opCHKS checks the sign alone: a negative value traps.
func opCHKS(m *Machine) uint16 {
	v := int16(m.pop())
	if v < 0 {
		return opcodes.TrapIndex
	}
	m.push(uint16(v))
	return 0
}

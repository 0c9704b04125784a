/*
 * mule - terminal I/O, SVC and SYS dispatch
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

import (
	"github.com/rcornwell/mule/mcode/hostfile"
	"github.com/rcornwell/mule/mcode/opcodes"
)

// opREAD implements the two hardware channel reads the terminal exposes:
// channel 1 reports whether a key is pending, channel 2 consumes and
// returns the buffered key (0 if none is pending). The channel number
// comes off the expression stack.
func opREAD(m *Machine) uint16 {
	ch := m.pop()
	switch ch {
	case 1:
		if _, ok := m.pollPeek(); ok {
			m.push(1)
		} else {
			m.push(0)
		}
	case 2:
		if k, ok := m.pollPeek(); ok {
			m.pendingKey = nil
			m.push(uint16(k))
		} else {
			m.push(0)
		}
	default:
		m.push(0)
	}
	return 0
}

// pollPeek buffers one key from the terminal so channel 1's pending check
// and channel 2's consume agree on the same key.
func (m *Machine) pollPeek() (byte, bool) {
	if m.pendingKey != nil {
		return *m.pendingKey, true
	}
	if k, ok := m.Term.PollKey(); ok {
		m.pendingKey = &k
		return k, true
	}
	return 0, false
}

// opWRITE pops the data word, then the channel it goes to; only the
// terminal channel is wired.
func opWRITE(m *Machine) uint16 {
	v := m.pop()
	ch := m.pop()
	if ch == 1 {
		m.Term.Put(byte(v))
	}
	return 0
}

// opUnsupportedIO traps the disk-controller opcodes: disk emulation is out
// of scope, so any program that exercises DSKR/DSKW/SETRK fails with a
// clear trap instead of silently doing nothing.
func opUnsupportedIO(m *Machine) uint16 {
	return opcodes.TrapInvalidOpcode
}

// opUCHK is the unsigned counterpart of CHK: pops [lo, hi] bounds and the
// value, trapping when the value falls outside them.
func opUCHK(m *Machine) uint16 {
	hi := m.pop()
	lo := m.pop()
	v := m.pop()
	if v < lo || v > hi {
		return opcodes.TrapIndex
	}
	m.push(v)
	return 0
}

// opSVC dispatches the four supervisor-call sub-codes: heap, nested
// program load, wall clock and host file operations.
func opSVC(m *Machine) uint16 {
	sub := m.next()
	switch sub {
	case 0:
		return m.svcHeap()
	case 1:
		return m.svcLoadAndRun()
	case 2:
		return m.svcClock()
	case 3:
		return m.svcFile()
	default:
		return opcodes.TrapSystem
	}
}

func (m *Machine) svcHeap() uint16 {
	varAddr := m.pop()
	sz := m.pop()
	mode := m.pop()
	switch mode {
	case 0:
		addr, err := m.Heap.Alloc(uint16(m.modn), sz)
		if err != nil {
			return opcodes.TrapStackOverflow
		}
		m.Ar.DSH[varAddr] = addr
	case 1:
		if err := m.Heap.Free(m.Ar.DSH[varAddr]); err != nil {
			return opcodes.TrapIndex
		}
	case 2:
		m.Heap.FreeAll(uint16(m.modn), m.Ar.DSH[varAddr])
	default:
		return opcodes.TrapSystem
	}
	return 0
}

// svcLoadAndRun runs a nested program. The caller's register set is saved
// here and restored after the nested Run has clobbered it; PC matters
// most, since the nested program's final RTN leaves it at 0, which is the
// outer fetch loop's own termination condition. The stack pointer is
// restored too, discarding whatever stack the nested program grew.
func (m *Machine) svcLoadAndRun() uint16 {
	length := m.pop()
	addr := m.pop()
	name := m.readString(addr, length)
	if m.LoadAndRun == nil {
		return opcodes.TrapSystem
	}

	savedPC, savedL, savedCS := m.PC, m.L, m.CS
	savedMod := m.modn
	savedPriority := m.priority
	savedS := m.Ar.S

	err := m.LoadAndRun(m, name)

	m.switchModule(savedMod)
	m.PC, m.L, m.CS = savedPC, savedL, savedCS
	m.priority = savedPriority
	m.Ar.S = savedS

	if err != nil {
		m.push(1)
	} else {
		m.push(0)
	}
	return 0
}

// readString unpacks a Modula-2 string descriptor: length characters,
// two packed per arena word, the even-indexed character in the low byte.
func (m *Machine) readString(addr, length uint16) string {
	buf := make([]byte, length)
	for i := uint16(0); i < length; i++ {
		buf[i] = m.readByte(addr, i)
	}
	return string(buf)
}

func (m *Machine) svcClock() uint16 {
	varAddr := m.pop()
	year, month, day, hour, minute := m.Clock()
	m.Ar.DSH[varAddr+0] = uint16((year&0x7f)<<9 | (month&0xf)<<5 | (day & 0x1f))
	m.Ar.DSH[varAddr+1] = uint16(hour*60 + minute)
	m.Ar.DSH[varAddr+2] = 0
	return 0
}

func (m *Machine) svcFile() uint16 {
	fdAddr := m.pop()
	subCmd := m.pop()
	status := uint16(0)

	switch subCmd {
	case hostfile.Create:
		if err := m.Files.Create(fdAddr, uint16(m.modn)); err != nil {
			status = 1
		}
	case hostfile.Close:
		if err := m.Files.Close(fdAddr); err != nil {
			status = 1
		}
	case hostfile.Lookup:
		newFlag := m.pop()
		length := m.pop()
		addr := m.pop()
		name := m.readString(addr, length)
		if err := m.Files.Lookup(fdAddr, uint16(m.modn), name, newFlag != 0); err != nil {
			status = 1
		}
	case hostfile.Rename:
		length := m.pop()
		addr := m.pop()
		name := m.readString(addr, length)
		if err := m.Files.Rename(fdAddr, name); err != nil {
			status = 1
		}
	case hostfile.SetRead, hostfile.SetWrite, hostfile.SetModify:
		// Files are always opened read/write; nothing to change.
	case hostfile.SetPos:
		pos := m.popD()
		if err := m.Files.SetPos(fdAddr, pos); err != nil {
			status = 1
		}
	case hostfile.GetPos:
		varAddr := m.pop()
		pos, err := m.Files.GetPos(fdAddr)
		if err != nil {
			status = 1
		} else {
			m.setD(varAddr, pos)
		}
	case hostfile.ReadWord:
		varAddr := m.pop()
		w, err := m.Files.ReadWord(fdAddr)
		if err != nil {
			status = 1
		} else {
			m.Ar.DSH[varAddr] = w
		}
	case hostfile.WriteWord:
		w := m.pop()
		if err := m.Files.WriteWord(fdAddr, w); err != nil {
			status = 1
		}
	case hostfile.ReadChar:
		varAddr := m.pop()
		c, err := m.Files.ReadChar(fdAddr)
		if err != nil {
			status = 1
		} else {
			m.Ar.DSH[varAddr] = uint16(c)
		}
	case hostfile.WriteChar:
		c := m.pop()
		if err := m.Files.WriteChar(fdAddr, byte(c)); err != nil {
			status = 1
		}
	default:
		status = 1
	}
	m.push(status)
	return 0
}

// opSYS covers boot/dump/priority sub-functions outside this emulator's
// scope; every sub-code traps.
func opSYS(m *Machine) uint16 {
	m.next()
	return opcodes.TrapSystem
}

// opRDS reads up to n characters from the terminal into consecutive arena
// bytes starting at addr, stopping early (leaving the remaining bytes
// untouched) once no more keys are buffered: guest code that needs a
// blocking read loops on READ channel 1/2 itself, the way the worked
// keyboard-echo examples do.
func opRDS(m *Machine) uint16 {
	n := m.pop()
	addr := m.pop()
	for i := uint16(0); i < n; i++ {
		k, ok := m.pollPeek()
		if !ok {
			break
		}
		m.pendingKey = nil
		m.writeByte(addr, i, k)
	}
	return 0
}

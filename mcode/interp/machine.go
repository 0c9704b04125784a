/*
 * mule - M-Code instruction fetch/execute loop
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

// Package interp is the M-Code bytecode interpreter: a fetch/decode loop
// driving a 256-entry opcode dispatch table, modeled on emu/cpu.cpuState's
// createTable/cpu.table[op] pattern, generalized from the S/370 RR/RX/SI/SS
// instruction formats to M-Code's byte-stream operand encodings.
package interp

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/mule/mcode/arena"
	"github.com/rcornwell/mule/mcode/heap"
	"github.com/rcornwell/mule/mcode/hostfile"
	"github.com/rcornwell/mule/mcode/loader"
	"github.com/rcornwell/mule/mcode/opcodes"
	"github.com/rcornwell/mule/mcode/terminal"
)

// opFunc executes one opcode and returns a trap number, or 0 if none was
// raised. This mirrors cpuState.table's func(*stepInfo) uint16 shape.
type opFunc func(m *Machine) uint16

// Clock supplies the wall-clock reading SVC 2 hands back to guest code.
// Tests inject a fixed Clock; production wires time.Now.
type Clock func() (year, month, day, hour, minute int)

// LoadAndRunFunc loads and runs a nested program, as invoked by SVC 1.
// It is injected rather than imported directly, since it requires calling
// back into the Machine to execute the nested program's init procedure.
type LoadAndRunFunc func(m *Machine, name string) error

// Trap is returned by Run when the program traps out instead of running
// to a normal RTN-to-PC-zero completion.
type Trap struct {
	Num    uint16
	Module string
	PC     uint16
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap %d in module %s at PC %#04x", t.Num, t.Module, t.PC)
}

// Machine holds every register the interpreter needs plus the resources
// that back SVC calls: the arena, heap, loader (module/proc table),
// terminal and host file table. One Machine runs one program at a time,
// matching the spec's strict single-threaded execution model: unlike
// emu/cpu's goroutine-driven core, there is no concurrent instruction
// issue here to synchronize.
type Machine struct {
	Ar     *arena.State
	Heap   *heap.Heap
	Loader *loader.Loader
	Term   terminal.Terminal
	Files  *hostfile.Table
	Clock  Clock

	LoadAndRun LoadAndRunFunc

	Log *slog.Logger
	// Trace logs every fetched opcode at debug level (the -t flag).
	Trace bool

	PC   uint16
	IR   byte
	G    uint16 // current module's data-frame base
	L    uint16 // current frame's local base
	CS   uint16 // current call-frame address
	modn int     // current module table index
	code []byte  // current module's code, cached

	priority   uint16
	pendingKey *byte

	table [256]opFunc
}

// New builds a Machine over the given resources and fills its opcode
// dispatch table.
func New(ar *arena.State, h *heap.Heap, ld *loader.Loader, term terminal.Terminal, files *hostfile.Table, clock Clock, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	m := &Machine{
		Ar:     ar,
		Heap:   h,
		Loader: ld,
		Term:   term,
		Files:  files,
		Clock:  clock,
		Log:    log,
	}
	m.createTable()
	return m
}

// switchModule makes idx the current module: code, PC base and G track it.
func (m *Machine) switchModule(idx int) {
	m.modn = idx
	mod := &m.Loader.Modules[idx]
	m.code = mod.Code
	m.G = mod.DataOfs
}

func (m *Machine) moduleName() string {
	if m.modn < 0 || m.modn >= len(m.Loader.Modules) {
		return "?"
	}
	return m.Loader.Modules[m.modn].Name
}

// next fetches one operand byte, advancing PC.
func (m *Machine) next() byte {
	if int(m.PC) >= len(m.code) {
		panic(trapPanic(opcodes.TrapCodeOverflow))
	}
	b := m.code[m.PC]
	m.PC++
	return b
}

// next2 fetches a 2-byte big-endian operand, advancing PC by 2.
func (m *Machine) next2() uint16 {
	hi := m.next()
	lo := m.next()
	return uint16(hi)<<8 | uint16(lo)
}

// trapPanic is the sentinel panic value used to unwind out of a deeply
// nested opcode handler straight back to Run's recover, the same way a
// real trap would abandon the rest of the current instruction.
type trapPanic uint16

// push/pop wrap the expression-stack accessors, turning an arena error
// into the matching trap so opcode handlers read as straight-line code.
func (m *Machine) push(v uint16) {
	if err := m.Ar.PushW(v); err != nil {
		panic(trapPanic(opcodes.TrapStackOverflow))
	}
}

func (m *Machine) pop() uint16 {
	v, err := m.Ar.PopW()
	if err != nil {
		panic(trapPanic(opcodes.TrapStackOverflow))
	}
	return v
}

func (m *Machine) pushD(v uint32) {
	if err := m.Ar.PushD(v); err != nil {
		panic(trapPanic(opcodes.TrapStackOverflow))
	}
}

func (m *Machine) popD() uint32 {
	v, err := m.Ar.PopD()
	if err != nil {
		panic(trapPanic(opcodes.TrapStackOverflow))
	}
	return v
}

// codeWord reads a big-endian word out of the current code frame without
// touching PC, for data embedded in the instruction stream (CASE tables).
func (m *Machine) codeWord(addr uint16) uint16 {
	if int(addr)+2 > len(m.code) {
		panic(trapPanic(opcodes.TrapCodeOverflow))
	}
	return uint16(m.code[addr])<<8 | uint16(m.code[addr+1])
}

// getD/setD read and write a little-endian doubleword directly in the
// arena: the low word sits at addr, the high word at addr+1.
func (m *Machine) getD(addr uint16) uint32 {
	return uint32(m.Ar.DSH[addr+1])<<16 | uint32(m.Ar.DSH[addr])
}

func (m *Machine) setD(addr uint16, v uint32) {
	m.Ar.DSH[addr] = uint16(v)
	m.Ar.DSH[addr+1] = uint16(v >> 16)
}

// pushCallFrame writes the 4-word call-frame prelude at the current S,
// then sets CS, L and S per the calling convention: CS and L become the
// frame's own address, S moves past the 4-word header. Returns false on
// stack overflow.
func (m *Machine) pushCallFrame(discriminator, frame1, frame2 uint16) bool {
	f := m.Ar.S
	if f+4 > m.Ar.H {
		return false
	}
	m.Ar.DSH[f+0] = discriminator
	m.Ar.DSH[f+1] = frame1
	m.Ar.DSH[f+2] = frame2
	m.Ar.DSH[f+3] = m.priority
	m.CS = uint16(f)
	m.L = uint16(f)
	m.Ar.S = f + 4
	return true
}

// doReturn pops the current call frame, restoring the caller's PC, L, CS
// and (for an external return) current module.
func (m *Machine) doReturn() {
	discriminator := m.Ar.DSH[m.CS+0]
	frame1 := m.Ar.DSH[m.CS+1]
	frame2 := m.Ar.DSH[m.CS+2]
	m.Ar.S = uint32(m.CS)
	m.PC = frame2
	if discriminator >= 0x100 {
		m.CS = discriminator - 0x100
		m.L = m.CS
		return
	}
	m.switchModule(int(discriminator))
	m.L = frame1
	m.CS = m.L
}

// Run executes the module at modIdx's init procedure (proc[0]) to
// completion. It returns nil on a normal return-to-PC-zero, or a *Trap if
// the program trapped.
func (m *Machine) Run(modIdx int) (trap *Trap) {
	defer func() {
		if r := recover(); r != nil {
			tn, ok := r.(trapPanic)
			if !ok {
				panic(r)
			}
			trap = &Trap{Num: uint16(tn), Module: m.moduleName(), PC: m.PC}
		}
	}()

	m.switchModule(modIdx)
	m.Ar.S = m.Ar.DataTop
	// Sentinel frame: an RTN from the outermost procedure restores PC=0,
	// which is the loop's termination condition. Seeding the caller slot
	// with the entry module keeps modn pointing at it after that final
	// return, rather than falling back to the System pseudo-module.
	if !m.pushCallFrame(uint16(modIdx), 0, 0) {
		return &Trap{Num: opcodes.TrapStackOverflow, Module: m.moduleName(), PC: 0}
	}
	if len(m.Loader.Modules[modIdx].Proc) == 0 {
		return &Trap{Num: opcodes.TrapInvalidOpcode, Module: m.moduleName(), PC: 0}
	}
	m.PC = m.Loader.Modules[modIdx].Proc[0]

	for {
		pc := m.PC
		m.IR = m.next()
		if m.Trace {
			m.Log.Debug("exec", "module", m.moduleName(), "pc", fmt.Sprintf("%#04x", pc), "op", fmt.Sprintf("%#o", m.IR))
		}
		if tn := m.table[m.IR](m); tn != 0 {
			return &Trap{Num: tn, Module: m.moduleName(), PC: m.PC}
		}
		if m.PC == 0 {
			return nil
		}
	}
}

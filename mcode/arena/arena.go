/*
 * mule - Word arena and expression stack
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

// Package arena implements the Lilith M-Code runtime's flat 16-bit word
// store: the shared data/stack/heap arena (DSH) and the small dedicated
// expression stack used by arithmetic and logic opcodes.
package arena

import "errors"

const (
	// Size is the number of 16-bit words in the arena.
	Size = 65536
	// ExprSize is the number of words in the expression stack.
	ExprSize = 15
)

var (
	ErrStackOverflow = errors.New("arena: stack overflow")
	ErrStackUnderflow = errors.New("arena: expression stack underflow")
	ErrExprOverflow   = errors.New("arena: expression stack overflow")
	ErrHeapOverflow   = errors.New("arena: heap overflow")
)

// State holds the full arena: the flat word store plus the registers that
// carve it into data frames, procedure stack and heap, plus the separate
// expression stack. Each running machine owns one State; the package-level
// instance below (returned by Get) is a further one that callers may use
// instead of constructing their own.
type State struct {
	DSH [Size]uint16

	// DataTop, S and H range over [0, Size]; Size itself is one past the
	// last word, so they need one more bit than a machine word has.

	// DataTop marks the first word beyond all allocated module data frames.
	DataTop uint32
	// S is the procedure-stack pointer (grows upward from DataTop).
	S uint32
	// H is the lowest heap address in use (grows downward from Size).
	H uint32

	xs [ExprSize]uint16
	sp int
}

var ar State

// Get returns the singleton arena state.
func Get() *State {
	return &ar
}

// Reset restores the arena to its empty, just-booted shape.
func (a *State) Reset() {
	a.DataTop = 0
	a.S = 0
	a.H = Size
	a.sp = 0
}

// PushW pushes a single word onto the expression stack.
func (a *State) PushW(v uint16) error {
	if a.sp >= ExprSize {
		return ErrExprOverflow
	}
	a.xs[a.sp] = v
	a.sp++
	return nil
}

// PopW pops a single word off the expression stack.
func (a *State) PopW() (uint16, error) {
	if a.sp <= 0 {
		return 0, ErrStackUnderflow
	}
	a.sp--
	return a.xs[a.sp], nil
}

// TopW returns the top word of the expression stack without popping it.
func (a *State) TopW() (uint16, error) {
	if a.sp <= 0 {
		return 0, ErrStackUnderflow
	}
	return a.xs[a.sp-1], nil
}

// SP returns the number of words currently on the expression stack.
func (a *State) SP() int {
	return a.sp
}

// PushD pushes a 32-bit value as two words: the high word goes in first
// (deeper), the low word ends up on top, per the spec's doubleword order.
func (a *State) PushD(v uint32) error {
	if err := a.PushW(uint16(v >> 16)); err != nil {
		return err
	}
	if err := a.PushW(uint16(v)); err != nil {
		// Undo the high-word push so a failed PushD is a no-op.
		a.sp--
		return err
	}
	return nil
}

// PopD pops a 32-bit value: low word first (top), then high word.
func (a *State) PopD() (uint32, error) {
	lo, err := a.PopW()
	if err != nil {
		return 0, err
	}
	hi, err := a.PopW()
	if err != nil {
		// Restore the low word so a failed PopD is a no-op.
		a.sp++
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// Spill pops all words currently on the expression stack onto the
// procedure stack (growing S upward), then pushes their count as the
// sole remaining expression-stack word. This is what the STORE opcode
// does at an external-call boundary.
func (a *State) Spill() error {
	n := a.sp
	if a.S+uint32(n) > a.H {
		return ErrStackOverflow
	}
	for i := 0; i < n; i++ {
		a.DSH[a.S+uint32(i)] = a.xs[i]
	}
	a.S += uint32(n)
	a.sp = 0
	return a.PushW(uint16(n))
}

// Restore is the inverse of Spill: it pops the spilled-word count off the
// expression stack and restores those words from the procedure stack.
// This is what LODFW/LODFD do to refill the expression stack on return
// from an external call.
func (a *State) Restore() error {
	n, err := a.PopW()
	if err != nil {
		return err
	}
	if uint32(n) > a.S {
		return ErrStackUnderflow
	}
	a.S -= uint32(n)
	for i := uint32(0); i < uint32(n); i++ {
		a.xs[i] = a.DSH[a.S+i]
	}
	a.sp = int(n)
	return nil
}

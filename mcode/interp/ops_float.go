/*
 * mule - REAL arithmetic opcodes
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
	"github.com/rcornwell/mule/mcode/arena"
	"github.com/rcornwell/mule/mcode/opcodes"
)

func opFADD(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(arena.FAdd(a, b)); return 0 }
func opFSUB(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(arena.FSub(a, b)); return 0 }
func opFMUL(m *Machine) uint16 { b := m.popD(); a := m.popD(); m.pushD(arena.FMul(a, b)); return 0 }

func opFDIV(m *Machine) uint16 {
	b := m.popD()
	a := m.popD()
	if b == 0 {
		return opcodes.TrapIntArith
	}
	m.pushD(arena.FDiv(a, b))
	return 0
}

func opFCMP(m *Machine) uint16 {
	b := m.popD()
	a := m.popD()
	m.push(uint16(int16(arena.FCmp(a, b))))
	return 0
}

func opFABS(m *Machine) uint16 { m.pushD(arena.FAbs(m.popD())); return 0 }
func opFNEG(m *Machine) uint16 { m.pushD(arena.FNeg(m.popD())); return 0 }

// opFFCT dispatches REAL<->INTEGER conversion sub-functions. Sub-code 0 is
// TRUNC (REAL to INTEGER), 1 is FLOAT (INTEGER to REAL); any other code
// traps INV_FFCT, per the spec's trap table.
func opFFCT(m *Machine) uint16 {
	sub := m.next()
	switch sub {
	case 0:
		m.push(uint16(arena.RealToInt(m.popD())))
	case 1:
		m.pushD(arena.IntToReal(int16(m.pop())))
	default:
		return opcodes.TrapInvalidFFCT
	}
	return 0
}

/*
 * mule - Terminal surface interface
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

// Package terminal specifies the boundary to the scrollable
// character-output / polled-keyboard front end that spec.md deliberately
// excludes from the core: the emulator core only ever reaches through
// this interface, the way emu/device.Device is the boundary between the
// CPU and any I/O unit.
package terminal

// Terminal is the consumed interface for the front-end text surface.
type Terminal interface {
	// Put appends a character at the cursor.
	Put(c byte)
	// Backspace deletes the character before the cursor.
	Backspace()
	// PollKey returns the buffered key and true if one is pending,
	// or (0, false) if the keyboard has nothing buffered.
	PollKey() (byte, bool)
	// Refresh flushes any buffered output to the display.
	Refresh()
	// Shutdown releases the front end (restores terminal modes, etc.).
	Shutdown()
}

// Null is a Terminal that discards output and never has input pending;
// useful for tests and for hosts with no attached console.
type Null struct{}

func (Null) Put(byte)             {}
func (Null) Backspace()           {}
func (Null) PollKey() (byte, bool) { return 0, false }
func (Null) Refresh()             {}
func (Null) Shutdown()            {}

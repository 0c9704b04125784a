/*
 * mule - Fallback terminal surface for hosts with no termios ioctls
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

//go:build !linux && !darwin

package terminal

import (
	"bufio"
	"os"
)

// Stdio on hosts without a termios ioctl: output works, PollKey always
// reports nothing pending (there is no portable non-blocking stdin read).
type Stdio struct {
	out *bufio.Writer
}

func NewStdio() *Stdio {
	return &Stdio{out: bufio.NewWriter(os.Stdout)}
}

func (t *Stdio) Put(c byte)              { _ = t.out.WriteByte(c) }
func (t *Stdio) Backspace()              { _, _ = t.out.WriteString("\b \b") }
func (t *Stdio) PollKey() (byte, bool)   { return 0, false }
func (t *Stdio) Refresh()                { _ = t.out.Flush() }
func (t *Stdio) Shutdown()               { _ = t.out.Flush() }

/*
 * mule - Default terminal surface backed by the host stdio
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

//go:build linux || darwin

package terminal

import (
	"bufio"
	"os"

	"golang.org/x/sys/unix"
)

// Stdio is the default Terminal: it writes straight to stdout and polls
// stdin non-blockingly by putting the controlling tty into cbreak mode
// (no line buffering, no echo) so PollKey can return 0, false instead of
// waiting on the Enter key the way a cooked terminal would.
type Stdio struct {
	out     *bufio.Writer
	in      *os.File
	saved   *unix.Termios
	raw     bool
	pending []byte
}

// NewStdio builds a Stdio terminal over os.Stdin/os.Stdout. If stdin is
// not a tty (e.g. redirected from a file, or running under test), raw
// mode is skipped and PollKey always reports no key pending.
func NewStdio() *Stdio {
	t := &Stdio{
		out: bufio.NewWriter(os.Stdout),
		in:  os.Stdin,
	}
	if term, err := unix.IoctlGetTermios(int(t.in.Fd()), ioctlGetTermios); err == nil {
		saved := *term
		t.saved = &saved
		raw := *term
		raw.Lflag &^= unix.ECHO | unix.ICANON
		raw.Cc[unix.VMIN] = 0
		raw.Cc[unix.VTIME] = 0
		if err := unix.IoctlSetTermios(int(t.in.Fd()), ioctlSetTermios, &raw); err == nil {
			t.raw = true
		}
	}
	return t
}

func (t *Stdio) Put(c byte) {
	_ = t.out.WriteByte(c)
}

func (t *Stdio) Backspace() {
	_, _ = t.out.WriteString("\b \b")
}

func (t *Stdio) PollKey() (byte, bool) {
	if !t.raw {
		return 0, false
	}
	var buf [1]byte
	n, err := t.in.Read(buf[:])
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

func (t *Stdio) Refresh() {
	_ = t.out.Flush()
}

func (t *Stdio) Shutdown() {
	_ = t.out.Flush()
	if t.raw && t.saved != nil {
		_ = unix.IoctlSetTermios(int(t.in.Fd()), ioctlSetTermios, t.saved)
	}
}

/*
 * mule - In-memory Terminal fake for tests
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

package terminal

// Fake records every character written and serves a queued sequence of
// key presses, for interpreter tests that need a terminal without a tty.
type Fake struct {
	Out  []byte
	Keys []byte
}

func (f *Fake) Put(c byte) {
	f.Out = append(f.Out, c)
}

func (f *Fake) Backspace() {
	if len(f.Out) > 0 {
		f.Out = f.Out[:len(f.Out)-1]
	}
}

func (f *Fake) PollKey() (byte, bool) {
	if len(f.Keys) == 0 {
		return 0, false
	}
	k := f.Keys[0]
	f.Keys = f.Keys[1:]
	return k, true
}

func (f *Fake) Refresh()  {}
func (f *Fake) Shutdown() {}

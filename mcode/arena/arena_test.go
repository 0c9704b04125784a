/*
 * mule - word arena tests
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

package arena

import "testing"

func TestPushPopWord(t *testing.T) {
	a := &State{}
	a.Reset()

	if err := a.PushW(42); err != nil {
		t.Fatalf("PushW: %v", err)
	}
	if v, err := a.TopW(); err != nil || v != 42 {
		t.Errorf("TopW got: (%d, %v) expected: (42, nil)", v, err)
	}
	v, err := a.PopW()
	if err != nil || v != 42 {
		t.Errorf("PopW got: (%d, %v) expected: (42, nil)", v, err)
	}
	if a.SP() != 0 {
		t.Errorf("SP got: %d expected: 0", a.SP())
	}
}

func TestPopUnderflow(t *testing.T) {
	a := &State{}
	a.Reset()
	if _, err := a.PopW(); err != ErrStackUnderflow {
		t.Errorf("got: %v expected: %v", err, ErrStackUnderflow)
	}
}

func TestPushOverflow(t *testing.T) {
	a := &State{}
	a.Reset()
	for i := 0; i < ExprSize; i++ {
		if err := a.PushW(uint16(i)); err != nil {
			t.Fatalf("unexpected overflow at %d: %v", i, err)
		}
	}
	if err := a.PushW(99); err != ErrExprOverflow {
		t.Errorf("got: %v expected: %v", err, ErrExprOverflow)
	}
}

func TestPushPopDoubleword(t *testing.T) {
	a := &State{}
	a.Reset()
	const want = 0x12345678
	if err := a.PushD(want); err != nil {
		t.Fatalf("PushD: %v", err)
	}
	if a.SP() != 2 {
		t.Fatalf("PushD should leave two words on the expression stack, got %d", a.SP())
	}
	got, err := a.PopD()
	if err != nil {
		t.Fatalf("PopD: %v", err)
	}
	if got != want {
		t.Errorf("got: %#x expected: %#x", got, want)
	}
}

func TestSpillAndRestore(t *testing.T) {
	a := &State{}
	a.Reset()
	a.H = Size
	a.DataTop = 0
	a.S = 0

	_ = a.PushW(1)
	_ = a.PushW(2)
	_ = a.PushW(3)

	if err := a.Spill(); err != nil {
		t.Fatalf("Spill: %v", err)
	}
	if a.SP() != 1 {
		t.Fatalf("Spill should leave only the count on the expression stack, got %d words", a.SP())
	}
	if a.S != 3 {
		t.Fatalf("Spill should have advanced S by 3, got %d", a.S)
	}

	if err := a.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if a.SP() != 3 {
		t.Fatalf("Restore should refill all 3 words, got %d", a.SP())
	}
	if a.S != 0 {
		t.Fatalf("Restore should have brought S back to 0, got %d", a.S)
	}
	for i, want := range []uint16{1, 2, 3} {
		if a.xs[i] != want {
			t.Errorf("xs[%d] got: %d expected: %d", i, a.xs[i], want)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	a := &State{}
	a.DataTop = 100
	a.S = 200
	a.H = 300
	_ = a.PushW(1)

	a.Reset()

	if a.DataTop != 0 || a.S != 0 || a.H != Size || a.SP() != 0 {
		t.Errorf("Reset left non-zero state: DataTop=%d S=%d H=%d SP=%d", a.DataTop, a.S, a.H, a.SP())
	}
}

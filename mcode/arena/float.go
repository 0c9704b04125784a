/*
 * mule - REAL (IEEE-754 single) conversions with the Lilith exponent bias
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

import "math"

// REAL is stored in the arena as IEEE-754 single precision, but the
// historical Lilith microcode carries a 2-bit exponent bias offset
// relative to the host FPU: every conversion or multiply/divide that
// crosses between INTEGER and REAL space is off by a factor of 4 unless
// corrected here. Get this wrong and all arithmetic on values produced by
// compiled Modula-2 code is silently off by a power of four.

// IntToReal converts an INTEGER to the arena's biased REAL representation.
func IntToReal(i int16) uint32 {
	f := float32(i) * 4
	return math.Float32bits(f)
}

// RealToInt converts the arena's biased REAL representation to an
// INTEGER, truncating toward zero after undoing the bias.
func RealToInt(bits uint32) int16 {
	f := math.Float32frombits(bits) / 4
	return int16(f)
}

// FMul multiplies two biased REALs; the raw IEEE product carries the bias
// twice, so it is divided back down by 4.
func FMul(a, b uint32) uint32 {
	prod := float64(math.Float32frombits(a)) * float64(math.Float32frombits(b))
	return math.Float32bits(float32(prod / 4))
}

// FDiv divides two biased REALs; the raw IEEE quotient cancels the bias
// entirely, so it is multiplied back up by 4.
func FDiv(a, b uint32) uint32 {
	q := float64(math.Float32frombits(a)) / float64(math.Float32frombits(b))
	return math.Float32bits(float32(q * 4))
}

// FAdd and FSub need no bias correction: the bias is a common scale factor
// that cancels in addition/subtraction.
func FAdd(a, b uint32) uint32 {
	return math.Float32bits(math.Float32frombits(a) + math.Float32frombits(b))
}

func FSub(a, b uint32) uint32 {
	return math.Float32bits(math.Float32frombits(a) - math.Float32frombits(b))
}

// FCmp returns -1, 0, 1 as a, b compare; bias cancels.
func FCmp(a, b uint32) int {
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// FAbs and FNeg are sign-bit operations; bias is irrelevant.
func FAbs(a uint32) uint32 {
	return a &^ 0x8000_0000
}

func FNeg(a uint32) uint32 {
	return a ^ 0x8000_0000
}

/*
 * mule - heap allocator tests
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

package heap

import (
	"reflect"
	"testing"

	"github.com/rcornwell/mule/mcode/arena"
)

func newTestHeap() (*arena.State, *Heap) {
	ar := &arena.State{}
	ar.Reset()
	return ar, New(ar)
}

func TestAllocExtendsDownward(t *testing.T) {
	ar, h := newTestHeap()

	adr, err := h.Alloc(1, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if adr != arena.Size-4 {
		t.Errorf("got: %#x expected: %#x", adr, arena.Size-4)
	}
	if ar.H != arena.Size-4 {
		t.Errorf("H got: %#x expected: %#x", ar.H, arena.Size-4)
	}
}

func TestAllocZeroWordsRoundsUpToOne(t *testing.T) {
	_, h := newTestHeap()
	adr, err := h.Alloc(1, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	blocks := h.Blocks()
	if len(blocks) != 1 || blocks[0].Sz != 1 || blocks[0].Adr != adr {
		t.Errorf("expected a single 1-word block, got %v", blocks)
	}
}

func TestAllocOverflow(t *testing.T) {
	ar, h := newTestHeap()
	ar.S = 40000 // extending H down past S must fail
	if _, err := h.Alloc(1, 30000); err != arena.ErrHeapOverflow {
		t.Errorf("got: %v expected: %v", err, arena.ErrHeapOverflow)
	}
	if ar.H != arena.Size {
		t.Errorf("failed alloc must not move H, got %d", ar.H)
	}
}

func TestFreeCoalescesAdjacentBlocks(t *testing.T) {
	_, h := newTestHeap()

	a1, err := h.Alloc(1, 4)
	if err != nil {
		t.Fatalf("Alloc a1: %v", err)
	}
	a2, err := h.Alloc(1, 4)
	if err != nil {
		t.Fatalf("Alloc a2: %v", err)
	}

	if err := h.Free(a1); err != nil {
		t.Fatalf("Free a1: %v", err)
	}
	if err := h.Free(a2); err != nil {
		t.Fatalf("Free a2: %v", err)
	}

	// Both blocks sat at the heap boundary, so freeing them should
	// coalesce away entirely and raise H back to the top.
	if len(h.Blocks()) != 0 {
		t.Errorf("expected no remaining blocks, got %v", h.Blocks())
	}
}

func TestFreeNotFound(t *testing.T) {
	_, h := newTestHeap()
	if err := h.Free(0x1234); err != ErrNotFound {
		t.Errorf("got: %v expected: %v", err, ErrNotFound)
	}
}

func TestFreeDoubleFree(t *testing.T) {
	_, h := newTestHeap()
	adr, _ := h.Alloc(1, 2)
	_, _ = h.Alloc(1, 2) // keeps adr off the heap boundary so Free leaves its header in place
	if err := h.Free(adr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := h.Free(adr); err != ErrDoubleFree {
		t.Errorf("got: %v expected: %v", err, ErrDoubleFree)
	}
}

func TestAllocReusesFreedBlock(t *testing.T) {
	_, h := newTestHeap()
	a1, _ := h.Alloc(1, 4)
	a2, _ := h.Alloc(1, 4)

	if err := h.Free(a1); err != nil {
		t.Fatalf("Free a1: %v", err)
	}
	// a2 is still allocated, so a1's block should not have coalesced
	// away, and a fresh alloc of the same size should reuse it exactly.
	got, err := h.Alloc(2, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got != a1 {
		t.Errorf("expected reuse of freed block at %#x, got %#x", a1, got)
	}
	_ = a2
}

func TestAllocSplitsLargerBlock(t *testing.T) {
	_, h := newTestHeap()
	a1, _ := h.Alloc(1, 8)
	_, _ = h.Alloc(1, 1) // keeps a1 off the heap boundary so Free leaves it as a free block
	if err := h.Free(a1); err != nil {
		t.Fatalf("Free: %v", err)
	}

	got, err := h.Alloc(2, 3)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got != a1 {
		t.Errorf("split block should start at freed block's low address, got %#x expected %#x", got, a1)
	}

	blocks := h.Blocks()
	var free *Block
	for i := range blocks {
		if blocks[i].Owner == 0 {
			free = &blocks[i]
		}
	}
	if free == nil {
		t.Fatalf("expected a leftover free block after split, got %v", blocks)
	}
	if free.Sz != 5 {
		t.Errorf("leftover free block size got: %d expected: 5", free.Sz)
	}
}

func TestFreeAfterSplitCoalescesWithRemainder(t *testing.T) {
	ar, h := newTestHeap()
	ar.H = 50 // keep this region away from the heap boundary so the
	// merge below exercises the neighbor-address formulas in coalesce,
	// not the separate boundary-collapse branch.
	h.blocks = []Block{{Adr: 100, Sz: 10, Owner: 0}}

	got, err := h.Alloc(5, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got != 100 {
		t.Fatalf("got: %#x expected: %#x", got, 100)
	}

	// The split must leave the list address-descending: the free
	// remainder (higher address) before the carved block (lower address).
	want := []Block{{Adr: 104, Sz: 6, Owner: 0}, {Adr: 100, Sz: 4, Owner: 5}}
	if got := h.Blocks(); !reflect.DeepEqual(got, want) {
		t.Fatalf("after split got: %+v expected: %+v", got, want)
	}

	if err := h.Free(100); err != nil {
		t.Fatalf("Free: %v", err)
	}

	blocks := h.Blocks()
	want = []Block{{Adr: 100, Sz: 10, Owner: 0}}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("expected split halves to coalesce back into one free block, got %v", blocks)
	}
}

func TestFreeAllByOwner(t *testing.T) {
	_, h := newTestHeap()
	a1, _ := h.Alloc(1, 4)
	_, err := h.Alloc(2, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	h.FreeAll(1, 0xFFFF)

	blocks := h.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected both blocks to remain present (one freed, one owned), got %v", blocks)
	}
	for _, b := range blocks {
		if b.Adr == a1 && b.Owner != 0 {
			t.Errorf("block owned by 1 should have been freed: %v", b)
		}
	}
}

func TestFreeAllRespectsLimit(t *testing.T) {
	_, h := newTestHeap()
	firstAdr, _ := h.Alloc(1, 4)  // carved first, sits at the higher address
	secondAdr, _ := h.Alloc(1, 4) // carved second, sits lower in the arena

	if secondAdr >= firstAdr {
		t.Fatalf("expected second allocation to sit lower in the arena: first=%#x second=%#x", firstAdr, secondAdr)
	}

	// Limit to secondAdr: only the deeper block should be freed.
	h.FreeAll(1, secondAdr)

	found := false
	for _, b := range h.Blocks() {
		if b.Adr == firstAdr {
			found = true
			if b.Owner == 0 {
				t.Errorf("block above the limit should not have been freed: %v", b)
			}
		}
	}
	if !found {
		t.Fatalf("expected block at %#x to still be present", firstAdr)
	}
}

func TestReset(t *testing.T) {
	ar, h := newTestHeap()
	_, _ = h.Alloc(1, 4)
	h.Reset()
	if len(h.Blocks()) != 0 {
		t.Errorf("expected no blocks after Reset, got %v", h.Blocks())
	}
	if ar.H != arena.Size {
		t.Errorf("H got: %#x expected: %#x", ar.H, arena.Size)
	}
}

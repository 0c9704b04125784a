/*
 * mule - In-arena heap allocator
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

// Package heap implements the first-fit, address-ordered heap allocator
// that carves blocks off the top of the arena. The reference design
// threads an intrusive linked list of header structs outside the arena;
// here the free/used block list is a value-typed, address-sorted slice,
// per the redesign note: coalescing becomes a neighbor-merge on the
// sorted key instead of pointer surgery.
package heap

import (
	"errors"

	"github.com/rcornwell/mule/mcode/arena"
)

var (
	ErrNotFound   = errors.New("heap: block not found")
	ErrDoubleFree = errors.New("heap: block already free")
)

// Block is one allocation-unit header. Owner 0 means free.
type Block struct {
	Adr   uint16
	Sz    uint16
	Owner uint16
}

// Heap is the block list for one arena. Blocks are kept sorted in
// strictly decreasing Adr order, matching invariant 2 of the spec: newer
// blocks sit lower in the arena. There is no sentinel element in this
// slice-based reimplementation (the original's sz=0 sentinel existed only
// to simplify pointer-list edge cases); the arena's H register marks the
// lower edge of the heap instead.
type Heap struct {
	ar     *arena.State
	blocks []Block // address-descending
}

// New creates a heap bound to the given arena.
func New(ar *arena.State) *Heap {
	return &Heap{ar: ar}
}

// Reset clears all blocks; H returns to the top of the arena.
func (h *Heap) Reset() {
	h.blocks = h.blocks[:0]
	h.ar.H = arena.Size
}

// Alloc reserves words for owner, returning the arena address of the
// first word of the block. A zero-word request is treated as a 1-word
// request, matching the reference allocator.
func (h *Heap) Alloc(owner uint16, words uint16) (uint16, error) {
	if words == 0 {
		words = 1
	}

	for i, b := range h.blocks {
		if b.Owner != 0 || b.Sz < words {
			continue
		}
		if b.Sz == words {
			h.blocks[i].Owner = owner
			return b.Adr, nil
		}
		// Split: the high-address remainder stays free in place at i,
		// the newly carved block sits at the low end of the old one and
		// is returned to the caller. It must be inserted after i, not
		// before, to keep the list address-descending: the remainder's
		// address is higher than the carved block's.
		newAdr := b.Adr
		h.blocks[i].Adr = b.Adr + words
		h.blocks[i].Sz = b.Sz - words
		h.insert(Block{Adr: newAdr, Sz: words, Owner: owner}, i+1)
		return newAdr, nil
	}

	// No free block large enough: extend the heap downward.
	if h.ar.H < uint32(words) || h.ar.H-uint32(words) <= h.ar.S {
		return 0, arena.ErrHeapOverflow
	}
	h.ar.H -= uint32(words)
	blk := Block{Adr: uint16(h.ar.H), Sz: words, Owner: owner}
	h.blocks = append(h.blocks, blk)
	// Keep address-descending order: the new block is the current lowest
	// address, so it goes at the end.
	return blk.Adr, nil
}

// insert places blk at index i in the (address descending) slice,
// shifting the element previously at i (and everything after it) one
// slot later. Callers choose i to keep the list address-descending.
func (h *Heap) insert(blk Block, i int) {
	h.blocks = append(h.blocks, Block{})
	copy(h.blocks[i+1:], h.blocks[i:])
	h.blocks[i] = blk
}

// indexOf returns the slice index of the block at adr, or -1.
func (h *Heap) indexOf(adr uint16) int {
	for i, b := range h.blocks {
		if b.Adr == adr {
			return i
		}
	}
	return -1
}

// Free releases the block at adr, coalescing with free neighbors.
func (h *Heap) Free(adr uint16) error {
	i := h.indexOf(adr)
	if i < 0 {
		return ErrNotFound
	}
	if h.blocks[i].Owner == 0 {
		return ErrDoubleFree
	}
	h.blocks[i].Owner = 0
	h.coalesce(i)
	return nil
}

// FreeAll releases every block owned by owner whose address is <= limit,
// coalescing as it goes. Used to unload a module's heap blocks.
func (h *Heap) FreeAll(owner uint16, limit uint16) {
	if owner == 0 {
		// Owner 0 marks a block free; "free everything free" would spin.
		return
	}
	i := 0
	for i < len(h.blocks) {
		b := h.blocks[i]
		if b.Owner == owner && b.Adr <= limit {
			h.blocks[i].Owner = 0
			h.coalesce(i)
			continue // h.blocks[i] is now the merged block; re-examine it.
		}
		i++
	}
}

// coalesce merges the free block at index i with its physically adjacent
// free neighbors, then (if the merged block now sits at the heap
// boundary) raises H and drops the header entirely.
func (h *Heap) coalesce(i int) {
	// blocks are address-descending, so blocks[i-1] is the higher-address
	// (physically-next) neighbor and blocks[i+1] is the lower-address
	// (physically-previous) neighbor.
	if i > 0 && h.blocks[i-1].Owner == 0 && h.blocks[i-1].Adr == h.blocks[i].Adr+h.blocks[i].Sz {
		h.blocks[i].Sz += h.blocks[i-1].Sz
		h.blocks = append(h.blocks[:i-1], h.blocks[i:]...)
		i--
	}
	if i+1 < len(h.blocks) && h.blocks[i+1].Owner == 0 && h.blocks[i+1].Adr+h.blocks[i+1].Sz == h.blocks[i].Adr {
		h.blocks[i].Adr = h.blocks[i+1].Adr
		h.blocks[i].Sz += h.blocks[i+1].Sz
		h.blocks = append(h.blocks[:i+1], h.blocks[i+2:]...)
	}
	if uint32(h.blocks[i].Adr) == h.ar.H {
		h.ar.H += uint32(h.blocks[i].Sz)
		h.blocks = append(h.blocks[:i], h.blocks[i+1:]...)
	}
}

// Blocks returns a snapshot of the current block list, address-descending,
// for diagnostics and invariant testing.
func (h *Heap) Blocks() []Block {
	out := make([]Block, len(h.blocks))
	copy(out, h.blocks)
	return out
}

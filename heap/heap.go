// Package heap implements a first-fit allocator over a fixed byte arena.
//
// Every block in the arena starts with a header {size, state, next}.
// size counts payload bytes only. next is meaningful only while the block
// is free and threads the free list, which is kept in increasing address
// order. After every Free no two physically adjacent blocks are both free.
package heap

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/util"
)

// Ptr is the arena offset of an allocation's payload.
type Ptr = uint64

// Nil is never a valid payload offset, since every payload follows a header.
const Nil Ptr = 0

const HeaderSize uint64 = 3 * 8

const (
	stateFree uint64 = 0
	stateUsed uint64 = 1
)

type header struct {
	size  uint64
	state uint64
	next  uint64
}

// Block describes one block of the arena: the offset of its header and
// the size of its payload.
type Block struct {
	Addr uint64
	Size uint64
}

type Heap struct {
	arena    []byte
	freelist uint64
}

// New returns a heap over a size-byte arena holding a single free block.
func New(size uint64) *Heap {
	if size <= HeaderSize {
		panic("heap: arena too small")
	}
	h := &Heap{
		arena:    make([]byte, size),
		freelist: 0,
	}
	h.putHeader(0, header{size: size - HeaderSize, state: stateFree, next: common.EMPTY})
	util.DPrintf(1, "heap: %d bytes, %d free\n", size, size-HeaderSize)
	return h
}

func (h *Heap) getHeader(a uint64) header {
	dec := marshal.NewDec(h.arena[a : a+HeaderSize])
	size := dec.GetInt()
	state := dec.GetInt()
	next := dec.GetInt()
	return header{size: size, state: state, next: next}
}

func (h *Heap) putHeader(a uint64, hdr header) {
	enc := marshal.NewEnc(HeaderSize)
	enc.PutInt(hdr.size)
	enc.PutInt(hdr.state)
	enc.PutInt(hdr.next)
	copy(h.arena[a:a+HeaderSize], enc.Finish())
}

// end returns the offset just past the payload of the block at a.
func (h *Heap) end(a uint64, hdr header) uint64 {
	return a + HeaderSize + hdr.size
}

func (h *Heap) setNext(prev uint64, next uint64) {
	if prev == common.EMPTY {
		h.freelist = next
		return
	}
	hdr := h.getHeader(prev)
	hdr.next = next
	h.putHeader(prev, hdr)
}

// Alloc returns the first free block that can hold size bytes, splitting
// off the unused tail when it can hold a header of its own. It returns Nil
// when no block is large enough.
func (h *Heap) Alloc(size uint64) Ptr {
	if size == 0 || util.SumOverflows(size, HeaderSize) {
		return Nil
	}
	prev := common.EMPTY
	for a := h.freelist; a != common.EMPTY; {
		hdr := h.getHeader(a)
		if hdr.size < size {
			prev = a
			a = hdr.next
			continue
		}
		next := hdr.next
		if hdr.size > size+HeaderSize {
			rest := a + HeaderSize + size
			h.putHeader(rest, header{
				size:  hdr.size - size - HeaderSize,
				state: stateFree,
				next:  hdr.next,
			})
			hdr.size = size
			next = rest
		}
		hdr.state = stateUsed
		hdr.next = common.EMPTY
		h.putHeader(a, hdr)
		h.setNext(prev, next)
		util.DPrintf(10, "heap: alloc %d at %d\n", size, a+HeaderSize)
		return a + HeaderSize
	}
	util.DPrintf(5, "heap: alloc %d failed\n", size)
	return Nil
}

// Free returns p's block to the free list and merges it with its free
// physical neighbors. Free(Nil) does nothing.
func (h *Heap) Free(p Ptr) {
	if p == Nil {
		return
	}
	if p < HeaderSize || p > uint64(len(h.arena)) {
		panic("heap: free of pointer outside arena")
	}
	a := p - HeaderSize
	hdr := h.getHeader(a)
	if hdr.state != stateUsed {
		panic("heap: free of block not in use")
	}

	prev := common.EMPTY
	next := h.freelist
	for next != common.EMPTY && next < a {
		prev = next
		next = h.getHeader(next).next
	}

	hdr.state = stateFree
	hdr.next = next
	if next != common.EMPTY && h.end(a, hdr) == next {
		nhdr := h.getHeader(next)
		hdr.size += HeaderSize + nhdr.size
		hdr.next = nhdr.next
	}
	h.putHeader(a, hdr)
	h.setNext(prev, a)

	if prev != common.EMPTY {
		phdr := h.getHeader(prev)
		if h.end(prev, phdr) == a {
			phdr.size += HeaderSize + hdr.size
			phdr.next = hdr.next
			h.putHeader(prev, phdr)
		}
	}
	util.DPrintf(10, "heap: free %d\n", p)
}

// Bytes returns the payload of the allocation at p.
func (h *Heap) Bytes(p Ptr) []byte {
	hdr := h.getHeader(p - HeaderSize)
	return h.arena[p : p+hdr.size]
}

// SizeOf returns the payload size recorded for the allocation at p. It can
// exceed the requested size when the block was too small to split.
func (h *Heap) SizeOf(p Ptr) uint64 {
	return h.getHeader(p - HeaderSize).size
}

func (h *Heap) FreeList() []Block {
	var blocks []Block
	for a := h.freelist; a != common.EMPTY; {
		hdr := h.getHeader(a)
		blocks = append(blocks, Block{Addr: a, Size: hdr.size})
		a = hdr.next
	}
	return blocks
}

// Avail is the total payload space on the free list.
func (h *Heap) Avail() uint64 {
	var n uint64
	for _, b := range h.FreeList() {
		n += b.Size
	}
	return n
}

func (h *Heap) Size() uint64 {
	return uint64(len(h.arena))
}

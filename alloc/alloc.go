package alloc

import (
	"sync"

	"github.com/mit-pdos/go-bareos/util"
)

// Alloc uses a bit map to allocate and free numbers. Bit 0 of byte 0
// corresponds to number 0, bit 1 to 1, and so on. Number 0 is never handed
// out, so AllocNum can return it to report that the map is full.
type Alloc struct {
	lock   *sync.Mutex
	max    uint64
	bitmap []byte
}

// MkAlloc takes ownership of bitmap, which tracks numbers below max.
func MkAlloc(bitmap []byte, max uint64) *Alloc {
	if uint64(len(bitmap))*8 < max {
		panic("MkAlloc: bitmap too small")
	}
	a := &Alloc{
		lock:   new(sync.Mutex),
		max:    max,
		bitmap: bitmap,
	}
	return a
}

// MkMaxAlloc returns an allocator for numbers below max with only 0 in use.
func MkMaxAlloc(max uint64) *Alloc {
	bitmap := make([]byte, util.RoundUp(max, 8))
	a := MkAlloc(bitmap, max)
	a.MarkUsed(0)
	return a
}

func (a *Alloc) isSet(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

func (a *Alloc) set(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clear(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

// AllocNum claims the lowest free number, or returns 0 if none is free.
func (a *Alloc) AllocNum() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	for n := uint64(0); n < a.max; n++ {
		if !a.isSet(n) {
			a.set(n)
			util.DPrintf(10, "AllocNum: %d\n", n)
			return n
		}
	}
	return 0
}

func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.max {
		panic("MarkUsed")
	}
	a.lock.Lock()
	a.set(n)
	a.lock.Unlock()
}

func (a *Alloc) FreeNum(n uint64) {
	if n == 0 || n >= a.max {
		panic("FreeNum")
	}
	a.lock.Lock()
	a.clear(n)
	a.lock.Unlock()
}

func (a *Alloc) IsUsed(n uint64) bool {
	if n >= a.max {
		return true
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.isSet(n)
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

func (a *Alloc) NumFree() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	var used uint64
	for n := uint64(0); n < a.max/8; n++ {
		used += popCnt(a.bitmap[n])
	}
	for n := a.max / 8 * 8; n < a.max; n++ {
		if a.isSet(n) {
			used++
		}
	}
	return a.max - used
}

func (a *Alloc) Max() uint64 {
	return a.max
}

// Bytes returns a copy of the bitmap for persisting.
func (a *Alloc) Bytes() []byte {
	a.lock.Lock()
	defer a.lock.Unlock()
	return util.CloneByteSlice(a.bitmap)
}

// Package kernel implements a single-CPU cooperative thread kernel.
//
// Every thread runs on its own goroutine, but only the goroutine of the
// current thread ever executes kernel or thread code; all others are parked
// in a context switch. Kernel state is therefore guarded only by the
// interrupt mask, and code that mutates the thread table, the queues or the
// heap runs with interrupts disabled so that a timer interrupt cannot see a
// half-updated structure.
package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/disk"
	"github.com/mit-pdos/go-bareos/fs"
	"github.com/mit-pdos/go-bareos/heap"
	"github.com/mit-pdos/go-bareos/queue"
	"github.com/mit-pdos/go-bareos/util"
)

type Params struct {
	Threads  uint64
	HeapSize uint64
	Priority int64

	// Disk holds the filesystem. A nil Disk is replaced by a ramdisk of
	// NumBlocks blocks of BlockSize bytes, which is always formatted.
	Disk      disk.Disk
	BlockSize uint64
	NumBlocks uint64
	Format    bool

	// Yield, if set, is called instead of rescheduling. It lets a caller
	// drive the kernel from a single goroutine and observe every
	// reschedule request.
	Yield func()
}

func DefaultParams() Params {
	return Params{
		Threads:   common.NTHREADS,
		HeapSize:  common.HEAPSIZE,
		Priority:  common.PRIORITY,
		BlockSize: common.BLOCKSIZE,
		NumBlocks: common.NBLOCKS,
	}
}

type Kernel struct {
	id      uuid.UUID
	p       Params
	threads []thread
	q       *queue.Table
	current common.Tid
	initTid common.Tid
	heap    *heap.Heap
	fs      *fs.FS
	cpu     cpu

	bootComplete bool

	halt     chan struct{}
	haltOnce *sync.Once
	done     chan byte
}

// New boots a kernel: it sets up the thread table and queues, the heap and
// the filesystem. No thread runs until Run.
func New(p Params) (*Kernel, error) {
	if p.Threads == 0 {
		return nil, fmt.Errorf("%w: no thread slots", ErrBadState)
	}
	if p.HeapSize <= heap.HeaderSize {
		return nil, fmt.Errorf("%w: heap of %d bytes", ErrNoMemory, p.HeapSize)
	}
	k := &Kernel{
		id:       uuid.New(),
		p:        p,
		halt:     make(chan struct{}),
		haltOnce: new(sync.Once),
		done:     make(chan byte, 1),
	}
	k.cpu.irq = make(chan struct{}, 1)

	mask := k.DisableInterrupts()
	k.threads = make([]thread, p.Threads)
	for i := range k.threads {
		k.threads[i].state = StateFree
	}
	k.q = queue.MkTable(p.Threads)
	k.current = k.none()
	k.initTid = k.none()
	k.RestoreInterrupts(mask)

	k.heap = heap.New(p.HeapSize)

	d := p.Disk
	format := p.Format
	if d == nil {
		d = disk.NewRamDisk(p.NumBlocks, p.BlockSize)
		format = true
	}
	if format {
		if err := fs.Mkfs(d); err != nil {
			return nil, err
		}
	}
	fsys, err := fs.Mount(d)
	if err != nil {
		return nil, err
	}
	k.fs = fsys

	k.bootComplete = true
	util.DPrintf(1, "boot %s: %d threads, %d byte heap, %d free blocks\n",
		k.id, p.Threads, p.HeapSize, fsys.NumFree())
	return k, nil
}

func (k *Kernel) none() common.Tid {
	return common.Tid(k.p.Threads)
}

func (k *Kernel) ID() uuid.UUID {
	return k.id
}

func (k *Kernel) FS() *fs.FS {
	return k.fs
}

// Run starts entry as the first thread and waits for it to return. The
// kernel halts when that thread returns, and Run returns its value.
func (k *Kernel) Run(ctx context.Context, entry Entry, arg []byte) (byte, error) {
	tid, err := k.Create(entry, arg)
	if err != nil {
		return 0, err
	}
	// the first thread enables interrupts itself once it is loaded
	k.DisableInterrupts()
	k.initTid = tid
	k.threads[tid].state = StateRunning
	k.current = tid
	k.ctxload(k.threads[tid].ctx)

	select {
	case ret := <-k.done:
		return ret, nil
	case <-ctx.Done():
		k.Halt()
		return 0, ctx.Err()
	case <-k.halt:
		select {
		case ret := <-k.done:
			return ret, nil
		default:
			return 0, ErrHalted
		}
	}
}

// Halt stops the kernel. Parked threads never run again.
func (k *Kernel) Halt() {
	k.haltOnce.Do(func() {
		util.DPrintf(1, "halt %s\n", k.id)
		close(k.halt)
	})
}

// Shutdown halts the kernel and unmounts its filesystem.
func (k *Kernel) Shutdown() error {
	k.Halt()
	return k.fs.Unmount()
}

// Malloc allocates size bytes from the kernel heap.
func (k *Kernel) Malloc(size uint64) heap.Ptr {
	mask := k.DisableInterrupts()
	p := k.heap.Alloc(size)
	k.RestoreInterrupts(mask)
	return p
}

func (k *Kernel) Free(p heap.Ptr) {
	mask := k.DisableInterrupts()
	k.heap.Free(p)
	k.RestoreInterrupts(mask)
}

// Bytes returns the memory of heap allocation p.
func (k *Kernel) Bytes(p heap.Ptr) []byte {
	return k.heap.Bytes(p)
}

// HeapFree reports the free payload bytes left in the heap.
func (k *Kernel) HeapFree() uint64 {
	mask := k.DisableInterrupts()
	n := k.heap.Avail()
	k.RestoreInterrupts(mask)
	return n
}

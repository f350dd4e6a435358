package kernel

import (
	"fmt"
	"runtime"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/heap"
	"github.com/mit-pdos/go-bareos/util"
)

type State uint64

const (
	StateFree State = iota
	StateSuspend
	StateReady
	StateRunning
	StateSleep
	StateDefunct
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateSuspend:
		return "SUSPEND"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateSleep:
		return "SLEEP"
	case StateDefunct:
		return "DEFUNCT"
	}
	return fmt.Sprintf("State(%d)", uint64(s))
}

// An Entry is a thread's body. arg is the thread's private copy of the
// argument given to Create; the return value is collected by Join.
type Entry func(k *Kernel, arg []byte) byte

type thread struct {
	state    State
	priority int64
	parent   common.Tid
	entry    Entry
	arg      heap.Ptr
	argLen   uint64
	retval   byte
	ctx      *savearea
}

// Thread is a snapshot of a thread table entry. Parent is the thread that
// created it, or the table size for the first thread.
type Thread struct {
	Tid      common.Tid
	State    State
	Priority int64
	Parent   common.Tid
	Retval   byte
}

func tidOf(i uint64) common.Tid {
	return common.Tid(i)
}

func (k *Kernel) valid(tid common.Tid) bool {
	return uint64(tid) < k.p.Threads
}

// Create claims a free thread slot for entry and leaves it suspended. arg
// is copied into a heap buffer owned by the thread until it is joined.
func (k *Kernel) Create(entry Entry, arg []byte) (common.Tid, error) {
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)

	tid := k.none()
	for i := range k.threads {
		if k.threads[i].state == StateFree {
			tid = common.Tid(i)
			break
		}
	}
	if tid == k.none() {
		return tid, ErrNoThread
	}
	p := heap.Nil
	if len(arg) > 0 {
		p = k.heap.Alloc(uint64(len(arg)))
		if p == heap.Nil {
			return k.none(), fmt.Errorf("%w: %d byte argument", ErrNoMemory, len(arg))
		}
		copy(k.heap.Bytes(p), arg)
	}
	t := &k.threads[tid]
	*t = thread{
		state:    StateSuspend,
		priority: k.p.Priority,
		parent:   k.current,
		entry:    entry,
		arg:      p,
		argLen:   uint64(len(arg)),
		ctx:      mkSavearea(),
	}
	go k.trampoline(tid, t.ctx)
	util.DPrintf(5, "create %d\n", tid)
	return tid, nil
}

// trampoline is where a new thread's goroutine waits to be switched to for
// the first time.
func (k *Kernel) trampoline(tid common.Tid, ctx *savearea) {
	select {
	case <-ctx.wake:
	case <-k.halt:
		return
	}
	k.RestoreInterrupts(MaskEnabled)
	t := &k.threads[tid]
	var arg []byte
	if t.arg != heap.Nil {
		arg = k.heap.Bytes(t.arg)[:t.argLen]
	}
	ret := t.entry(k, arg)
	k.exit(tid, ret)
}

// exit marks the calling thread DEFUNCT with its return value and gives up
// the CPU for good.
func (k *Kernel) exit(tid common.Tid, ret byte) {
	k.DisableInterrupts()
	t := &k.threads[tid]
	t.retval = ret
	t.state = StateDefunct
	util.DPrintf(5, "exit %d: %d\n", tid, ret)
	if tid == k.initTid {
		k.done <- ret
		k.Halt()
		runtime.Goexit()
	}
	k.resched()
	panic("exit: defunct thread resumed")
}

// Resume readies a suspended thread and requests a reschedule. Threads in
// any other state are left alone.
func (k *Kernel) Resume(tid common.Tid) error {
	if !k.valid(tid) {
		return ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	t := &k.threads[tid]
	if t.state != StateSuspend {
		return fmt.Errorf("%w: resume %d in %v", ErrBadState, tid, t.state)
	}
	t.state = StateReady
	k.q.Enqueue(k.q.ReadyList(), uint64(tid), t.priority)
	k.dispatch()
	return nil
}

// Suspend takes a ready or running thread off the CPU until it is resumed.
// Suspending the current thread switches away from it.
func (k *Kernel) Suspend(tid common.Tid) error {
	if !k.valid(tid) {
		return ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	t := &k.threads[tid]
	if t.state != StateReady && t.state != StateRunning {
		return fmt.Errorf("%w: suspend %d in %v", ErrBadState, tid, t.state)
	}
	k.q.Remove(uint64(tid))
	t.state = StateSuspend
	k.dispatch()
	return nil
}

// Join waits for tid to terminate, frees its slot and returns its value.
// Joining a free slot returns 0 at once. Between reschedule requests the
// caller's interrupt mask is restored, so timer ticks can wake a sleeping
// target.
func (k *Kernel) Join(tid common.Tid) (byte, error) {
	if !k.valid(tid) {
		return 0, ErrNoThread
	}
	for {
		mask := k.DisableInterrupts()
		t := &k.threads[tid]
		switch {
		case tid == k.current && t.state == StateRunning:
			k.RestoreInterrupts(mask)
			return 0, fmt.Errorf("%w: thread %d joining itself", ErrBadState, tid)
		case t.state == StateFree:
			k.RestoreInterrupts(mask)
			return 0, nil
		case t.state == StateDefunct:
			k.q.Remove(uint64(tid))
			k.heap.Free(t.arg)
			ret := t.retval
			*t = thread{state: StateFree}
			util.DPrintf(5, "join %d: %d\n", tid, ret)
			k.RestoreInterrupts(mask)
			return ret, nil
		}
		k.dispatch()
		k.RestoreInterrupts(mask)
		k.checkHalt()
	}
}

// SetPriority changes tid's priority and returns the old one. A ready
// thread is moved to its new place in the ready list.
func (k *Kernel) SetPriority(tid common.Tid, prio int64) (int64, error) {
	if !k.valid(tid) {
		return 0, ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	t := &k.threads[tid]
	if t.state == StateFree {
		return 0, fmt.Errorf("%w: thread %d is free", ErrBadState, tid)
	}
	old := t.priority
	t.priority = prio
	if t.state == StateReady {
		k.q.Remove(uint64(tid))
		k.q.Enqueue(k.q.ReadyList(), uint64(tid), prio)
	}
	return old, nil
}

// Current returns the running thread.
func (k *Kernel) Current() common.Tid {
	return k.current
}

func (k *Kernel) snapshot(tid common.Tid) Thread {
	t := &k.threads[tid]
	return Thread{Tid: tid, State: t.state, Priority: t.priority, Parent: t.parent, Retval: t.retval}
}

func (k *Kernel) Thread(tid common.Tid) (Thread, error) {
	if !k.valid(tid) {
		return Thread{}, ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	return k.snapshot(tid), nil
}

// Threads returns every slot that is not free.
func (k *Kernel) Threads() []Thread {
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	var ts []Thread
	for i := range k.threads {
		if k.threads[i].state != StateFree {
			ts = append(ts, k.snapshot(common.Tid(i)))
		}
	}
	return ts
}

// Ready lists the ready threads in the order they will run.
func (k *Kernel) Ready() []common.Tid {
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	var ids []common.Tid
	for _, i := range k.q.Members(k.q.ReadyList()) {
		ids = append(ids, common.Tid(i))
	}
	return ids
}

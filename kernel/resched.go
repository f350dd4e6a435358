package kernel

import (
	"runtime"

	"github.com/mit-pdos/go-bareos/util"
)

// dispatch raises a reschedule request. The caller has interrupts disabled.
func (k *Kernel) dispatch() {
	if k.p.Yield != nil {
		k.p.Yield()
		return
	}
	k.resched()
}

// Yield gives the CPU to the next ready thread, if there is one.
func (k *Kernel) Yield() {
	mask := k.DisableInterrupts()
	k.dispatch()
	k.RestoreInterrupts(mask)
}

// resched switches to the head of the ready list. The outgoing thread goes
// back on the ready list if it could still run. With nothing ready, a
// thread that can keep running just continues; otherwise the CPU idles
// until a sleeping thread wakes.
func (k *Kernel) resched() {
	old := k.current
	if old == k.none() {
		// called from outside any thread
		return
	}
	ready := k.q.ReadyList()
	ot := &k.threads[old]
	if k.q.IsEmpty(ready) {
		if ot.state == StateRunning || ot.state == StateReady {
			return
		}
		k.idle()
	}

	next := k.q.Dequeue(ready)
	nt := &k.threads[next]
	if next == uint64(old) {
		// woke up while idling
		nt.state = StateRunning
		return
	}
	if ot.state == StateRunning || ot.state == StateReady {
		ot.state = StateReady
		k.q.Enqueue(ready, uint64(old), ot.priority)
	}
	nt.state = StateRunning
	k.current = tidOf(next)
	util.DPrintf(5, "resched: %d (%v) -> %d\n", old, ot.state, next)

	if ot.state == StateDefunct {
		k.ctxload(nt.ctx)
		runtime.Goexit()
	}
	k.ctxsw(ot.ctx, nt.ctx)
}

// idle waits for timer interrupts and services them until some thread is
// ready to run.
func (k *Kernel) idle() {
	util.DPrintf(10, "idle\n")
	for k.q.IsEmpty(k.q.ReadyList()) {
		select {
		case <-k.cpu.irq:
		case <-k.halt:
			runtime.Goexit()
		}
		n := k.cpu.pending.Swap(0)
		for i := uint64(0); i < n; i++ {
			k.clockTick()
		}
	}
}

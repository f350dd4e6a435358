package kernel

import (
	"context"
	"time"

	"github.com/mit-pdos/go-bareos/util"
)

// clockTick counts one tick off the sleep list and readies every thread
// whose delay has run out.
func (k *Kernel) clockTick() {
	sleep := k.q.SleepList()
	if k.q.IsEmpty(sleep) {
		return
	}
	head := k.q.Head(sleep)
	k.q.SetKey(head, k.q.Key(head)-1)
	for !k.q.IsEmpty(sleep) && k.q.Key(k.q.Head(sleep)) <= 0 {
		tid := k.q.Dequeue(sleep)
		util.DPrintf(5, "wake %d\n", tid)
		k.ready(tidOf(tid))
	}
}

// Tick runs the timer interrupt handler synchronously on the calling
// thread.
func (k *Kernel) Tick() {
	if !k.bootComplete {
		return
	}
	mask := k.DisableInterrupts()
	k.clockTick()
	k.dispatch()
	k.RestoreInterrupts(mask)
}

// StartClock raises a timer interrupt every period until ctx is done or
// the kernel halts.
func (k *Kernel) StartClock(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.Interrupt()
			case <-ctx.Done():
				return
			case <-k.halt:
				return
			}
		}
	}()
}

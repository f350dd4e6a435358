package kernel

import (
	"fmt"
	"math"

	"github.com/mit-pdos/go-bareos/common"
	"github.com/mit-pdos/go-bareos/util"
)

// Sleep puts tid to sleep for delay ticks. A zero delay only yields.
func (k *Kernel) Sleep(tid common.Tid, delay uint64) error {
	if !k.valid(tid) {
		return ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	if delay == 0 {
		k.dispatch()
		return nil
	}
	t := &k.threads[tid]
	if t.state != StateReady && t.state != StateRunning {
		return fmt.Errorf("%w: sleep %d in %v", ErrBadState, tid, t.state)
	}
	if delay > math.MaxInt64 {
		return fmt.Errorf("%w: sleep %d for %d ticks", ErrBadState, tid, delay)
	}
	k.q.Remove(uint64(tid))
	t.state = StateSleep
	k.q.SleepInsert(k.q.SleepList(), uint64(tid), int64(delay))
	util.DPrintf(5, "sleep %d for %d\n", tid, delay)
	k.dispatch()
	return nil
}

// Unsleep wakes a sleeping thread early and readies it. It does not
// reschedule.
func (k *Kernel) Unsleep(tid common.Tid) error {
	if !k.valid(tid) {
		return ErrNoThread
	}
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	if k.threads[tid].state != StateSleep {
		return fmt.Errorf("%w: unsleep %d in %v", ErrBadState, tid, k.threads[tid].state)
	}
	k.q.RemoveDelta(uint64(tid))
	k.ready(tid)
	return nil
}

func (k *Kernel) ready(tid common.Tid) {
	t := &k.threads[tid]
	t.state = StateReady
	k.q.Enqueue(k.q.ReadyList(), uint64(tid), t.priority)
}

// A Sleeper is a sleeping thread and the ticks left until it wakes.
type Sleeper struct {
	Tid   common.Tid
	Delay uint64
}

// Sleeping lists sleeping threads in wake order.
func (k *Kernel) Sleeping() []Sleeper {
	mask := k.DisableInterrupts()
	defer k.RestoreInterrupts(mask)
	var ss []Sleeper
	var sum int64
	for _, i := range k.q.Members(k.q.SleepList()) {
		sum += k.q.Key(i)
		ss = append(ss, Sleeper{Tid: common.Tid(i), Delay: uint64(sum)})
	}
	return ss
}

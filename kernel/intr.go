package kernel

import (
	"sync/atomic"
)

// Mask is the interrupt enable state returned by DisableInterrupts.
type Mask bool

const (
	MaskDisabled Mask = false
	MaskEnabled  Mask = true
)

// cpu models the single processor's interrupt line. enabled belongs to
// whichever thread is running; pending and irq may be touched by the clock.
type cpu struct {
	enabled bool
	pending atomic.Uint64
	irq     chan struct{}
}

func (k *Kernel) DisableInterrupts() Mask {
	m := Mask(k.cpu.enabled)
	k.cpu.enabled = false
	return m
}

// RestoreInterrupts sets the interrupt state to m. Enabling interrupts
// delivers any timer interrupts that arrived while they were masked.
func (k *Kernel) RestoreInterrupts(m Mask) {
	k.cpu.enabled = bool(m)
	for k.cpu.enabled && k.cpu.pending.Load() > 0 {
		k.handleClk()
	}
}

func (k *Kernel) InterruptsEnabled() bool {
	return k.cpu.enabled
}

// Interrupt raises the timer interrupt. It is safe to call from any
// goroutine; the interrupt is taken by the running thread the next time it
// has interrupts enabled, or by an idle CPU right away.
func (k *Kernel) Interrupt() {
	k.cpu.pending.Add(1)
	select {
	case k.cpu.irq <- struct{}{}:
	default:
	}
}

// handleClk services every pending timer interrupt, then reschedules once.
func (k *Kernel) handleClk() {
	n := k.cpu.pending.Swap(0)
	if !k.bootComplete {
		return
	}
	k.cpu.enabled = false
	for i := uint64(0); i < n; i++ {
		k.clockTick()
	}
	k.dispatch()
	k.cpu.enabled = true
}

package kernel

import (
	"runtime"
)

// A savearea is a thread's saved execution context. The goroutine backing
// the thread parks on wake until another thread switches to it.
type savearea struct {
	wake chan struct{}
}

func mkSavearea() *savearea {
	return &savearea{wake: make(chan struct{}, 1)}
}

// park blocks the calling goroutine until its thread is switched to. A
// halted kernel never resumes anyone, so the goroutine exits instead.
func (k *Kernel) park(from *savearea) {
	select {
	case <-from.wake:
	case <-k.halt:
		runtime.Goexit()
	}
}

// ctxsw saves the calling thread's context in from and resumes to. It
// returns once some thread switches back to from.
func (k *Kernel) ctxsw(from *savearea, to *savearea) {
	to.wake <- struct{}{}
	k.park(from)
}

// ctxload resumes to without saving the caller, which must not touch
// kernel state afterwards.
func (k *Kernel) ctxload(to *savearea) {
	to.wake <- struct{}{}
}

// checkHalt ends the calling thread's goroutine if the kernel has halted.
// Busy-waiting threads never park, so they poll for it instead.
func (k *Kernel) checkHalt() {
	select {
	case <-k.halt:
		runtime.Goexit()
	default:
	}
}

package kernel

import "errors"

var (
	ErrNoThread = errors.New("kernel: no such thread")
	ErrBadState = errors.New("kernel: thread in wrong state")
	ErrNoMemory = errors.New("kernel: out of heap memory")
	ErrHalted   = errors.New("kernel: halted")
)

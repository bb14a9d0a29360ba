// Package interrupt implements the static 9-slot interrupt vector,
// pending-bit table, and dispatch sweep, grounded on
// original_source/INTERRUPTS/interrupts.c.
package interrupt

import (
	"sync/atomic"

	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
)

// Code identifies one of the 9 fixed interrupt slots.
type Code int

const (
	CodeInvalidSyscall Code = iota
	CodeInvalidInterrupt
	CodeSyscall
	CodeTimer
	CodeIOCompletion
	CodeInvalidInstruction
	CodeInvalidAddress
	CodeUnderflow
	CodeOverflow

	numCodes = 9
)

func (c Code) String() string {
	switch c {
	case CodeInvalidSyscall:
		return "INVALID_SYSCALL"
	case CodeInvalidInterrupt:
		return "INVALID_INTERRUPT"
	case CodeSyscall:
		return "SYSCALL"
	case CodeTimer:
		return "TIMER"
	case CodeIOCompletion:
		return "IO_COMPLETION"
	case CodeInvalidInstruction:
		return "INVALID_INSTRUCTION"
	case CodeInvalidAddress:
		return "INVALID_ADDRESS"
	case CodeUnderflow:
		return "UNDERFLOW"
	case CodeOverflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// Handler is the effect a dispatched interrupt has on VM state. The
// vector is a fixed array of these, not dynamically dispatched objects,
// per spec.md §9.
type Handler func(regs *register.File, log vmlog.Logger)

// Controller owns the 9-entry handler vector and pending-bit table. The
// pending bits are atomic so the DMA worker goroutine (raising
// IO_COMPLETION) and the CPU loop (sweeping pending bits) can touch them
// without a data race, per spec.md §5.
type Controller struct {
	vector  [numCodes]Handler
	pending [numCodes]atomic.Bool
	regs    *register.File
	log     vmlog.Logger
}

// New installs the fixed handler vector described in spec.md §4.5.
func New(regs *register.File, log vmlog.Logger) *Controller {
	c := &Controller{regs: regs, log: log}
	c.vector[CodeInvalidSyscall] = func(*register.File, vmlog.Logger) {
		log.Interruptf("interrupt 0: invalid syscall code")
	}
	c.vector[CodeInvalidInterrupt] = func(*register.File, vmlog.Logger) {
		log.Interruptf("interrupt 1: invalid interrupt code")
	}
	c.vector[CodeSyscall] = func(r *register.File, _ vmlog.Logger) {
		log.Interruptf("interrupt 2: syscall")
		r.PSW.Mode = register.ModeKernel
	}
	c.vector[CodeTimer] = func(*register.File, vmlog.Logger) {
		log.Interruptf("interrupt 3: timer")
	}
	c.vector[CodeIOCompletion] = func(*register.File, vmlog.Logger) {
		log.Interruptf("interrupt 4: I/O completion")
	}
	c.vector[CodeInvalidInstruction] = func(*register.File, vmlog.Logger) {
		log.Interruptf("interrupt 5: invalid instruction")
	}
	c.vector[CodeInvalidAddress] = func(r *register.File, _ vmlog.Logger) {
		mar, _ := r.MAR.ToInt()
		log.Interruptf("interrupt 6: invalid address")
		log.Errorf("invalid access at address: %d", mar)
	}
	c.vector[CodeUnderflow] = func(r *register.File, _ vmlog.Logger) {
		log.Interruptf("interrupt 7: underflow")
		r.PSW.ConditionCode = 7
	}
	c.vector[CodeOverflow] = func(r *register.File, _ vmlog.Logger) {
		log.Interruptf("interrupt 8: overflow")
		r.PSW.ConditionCode = 3
	}
	return c
}

// Trigger marks code as pending if interrupts are enabled in the PSW. An
// out-of-range code raises CodeInvalidInterrupt instead (guarded against
// infinite recursion: CodeInvalidInterrupt is always in range).
func (c *Controller) Trigger(code Code) {
	if code < 0 || int(code) >= numCodes {
		c.log.Errorf("invalid interrupt code: %d", code)
		c.Trigger(CodeInvalidInterrupt)
		return
	}
	if !c.regs.PSW.InterruptEnabled {
		c.log.Debugf("interrupt %d ignored (interrupts disabled)", code)
		return
	}
	c.pending[code].Store(true)
	c.log.Debugf("interrupt %d marked pending", code)
}

// HandlePending dispatches every pending interrupt in ascending code
// order, each exactly once, saving/restoring context (no-op stubs) around
// every handler so a richer implementation can insert real stack frames
// without touching this dispatcher.
func (c *Controller) HandlePending() {
	for i := 0; i < numCodes; i++ {
		code := Code(i)
		if !c.pending[code].CompareAndSwap(true, false) {
			continue
		}
		c.log.Debugf("handling pending interrupt: %d", code)
		c.saveContext()
		c.regs.PSW.Mode = register.ModeKernel
		c.vector[code](c.regs, c.log)
		c.restoreContext()
	}
}

// saveContext and restoreContext are no-ops in this core: the spec only
// requires that they be callable around each handler dispatch.
func (c *Controller) saveContext() {
	c.log.Debugf("context saved (stub)")
}

func (c *Controller) restoreContext() {
	c.log.Debugf("context restored (stub)")
}

// Package memory implements the 2000-word main memory array, logical to
// physical translation via the base/limit registers, and OS-region
// privilege enforcement, grounded on original_source/MEMORY/memory.c.
package memory

import (
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

// Size is the number of addressable words in main memory.
const Size = 2000

// OSReserved is the size, in words, of the privileged OS region.
const OSReserved = 300

// Unit is the memory unit: the raw cell array plus the translation logic
// that reads the current RB/RL/PSW.Mode out of the register file on every
// access. It does not hold a reference to the interrupt controller: the
// spec's register-file/memory/interrupt/CPU cycle (see spec.md §9) is
// broken here by having Read/Write report a fault code and letting the
// CPU — which already touches every other subsystem — be the one place
// that turns it into an interrupt.Controller.Trigger call.
type Unit struct {
	cells [Size]word.Word
	regs  *register.File
	log   vmlog.Logger
}

// New allocates memory, zeroing every cell then marking 0..OSReserved-1
// with the OS_RESERVED sentinel, per init_memory.
func New(regs *register.File, log vmlog.Logger) *Unit {
	u := &Unit{regs: regs, log: log}
	for i := range u.cells {
		u.cells[i] = word.Zero
	}
	for i := 0; i < OSReserved; i++ {
		u.cells[i] = word.SentinelOSReserved
	}
	return u
}

// SetRegion configures the current process's base/limit window.
func (u *Unit) SetRegion(base, limit int) {
	u.regs.RB = word.FromInt(base, u.log.Errorf)
	u.regs.RL = word.FromInt(limit, u.log.Errorf)
	u.log.Infof("memory region configured: RB=%d, RL=%d", base, limit)
}

// translate maps a logical address to a physical one using the current
// RB/RL. If RB=0 and RL=0 the mapping is identity (kernel trust, per
// spec.md §3); otherwise phys = logical+RB, and phys must land in
// [RB, RB+RL). Returns a non-nil CodeInvalidAddress on violation.
func (u *Unit) translate(logical int) (phys int, code *interrupt.Code) {
	rb := u.regs.RB.ToIntLogged(u.log.Errorf)
	rl := u.regs.RL.ToIntLogged(u.log.Errorf)

	if rb == 0 && rl == 0 {
		return logical, nil
	}

	phys = logical + rb
	if phys < rb || phys >= rb+rl {
		u.log.Errorf("memory violation: address %d out of bounds [RB=%d, RL=%d]", logical, rb, rl)
		c := interrupt.CodeInvalidAddress
		return 0, &c
	}
	return phys, nil
}

// Read performs a logical read: translate, bounds-check, and enforce OS
// privilege, in that order (spec.md §4.3). Translate and privilege
// failures return a fault code for the caller to raise; the physical
// bounds-check (step 2) only ever logs and returns a sentinel with a
// nil code, since a RB/RL window reaching past real memory is not a
// condition the original ever routes through trigger_interrupt.
func (u *Unit) Read(logical int) (word.Word, *interrupt.Code) {
	phys, code := u.translate(logical)
	if code != nil {
		return word.SentinelMemErr, code
	}
	if phys < 0 || phys >= Size {
		// Step 2 of spec.md §4.3: log only, no interrupt — unlike steps
		// 1 and 3, a physical-range miss here means RB/RL was configured
		// to reach past actual memory, not a privilege or window fault.
		u.log.Errorf("invalid physical address: %d", phys)
		return word.SentinelAddrErr, nil
	}
	if phys < OSReserved && u.regs.PSW.Mode == register.ModeUser {
		u.log.Errorf("user attempted to read OS region: %d", phys)
		c := interrupt.CodeInvalidAddress
		return word.SentinelPrivErr, &c
	}
	u.log.Debugf("read: logical=%d -> physical=%d = %s", logical, phys, u.cells[phys].String())
	return u.cells[phys], nil
}

// Write performs a logical write with the same translate/bounds/privilege
// sequence as Read. On failure the target cell is left untouched; a nil
// return only means "no interrupt to raise", not "the write happened" —
// callers that need to know the write landed should check via Read.
func (u *Unit) Write(logical int, w word.Word) *interrupt.Code {
	phys, code := u.translate(logical)
	if code != nil {
		return code
	}
	if phys < 0 || phys >= Size {
		// Step 2: log only, skip the write, no interrupt — see Read above.
		u.log.Errorf("invalid physical address for write: %d", phys)
		return nil
	}
	if phys < OSReserved && u.regs.PSW.Mode == register.ModeUser {
		u.log.Errorf("user attempted to write OS region: %d", phys)
		c := interrupt.CodeInvalidAddress
		return &c
	}
	u.cells[phys] = w
	u.log.Debugf("write: logical=%d -> physical=%d = %s", logical, phys, w.String())
	return nil
}

// ReadPhysical and WritePhysical bypass translation and privilege checks
// entirely. They exist for the DMA controller and for the default program
// loader, both of which legitimately address memory by absolute cell
// index rather than through a process's logical window.
func (u *Unit) ReadPhysical(phys int) word.Word {
	if phys < 0 || phys >= Size {
		return word.SentinelAddrErr
	}
	return u.cells[phys]
}

func (u *Unit) WritePhysical(phys int, w word.Word) bool {
	if phys < 0 || phys >= Size {
		return false
	}
	u.cells[phys] = w
	return true
}

// Dump returns a copy of cells [start, end] inclusive, clamped to bounds,
// for the memory CLI introspection command.
func (u *Unit) Dump(start, end int) []word.Word {
	if start < 0 {
		start = 0
	}
	if end >= Size {
		end = Size - 1
	}
	if end < start {
		return nil
	}
	out := make([]word.Word, end-start+1)
	copy(out, u.cells[start:end+1])
	return out
}

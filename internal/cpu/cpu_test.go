package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorgearias2404/virtual-machine/internal/cpu"
	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/dma"
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

func newHarness() (*cpu.CPU, *memory.Unit, *register.File) {
	var regs register.File
	mem := memory.New(&regs, vmlog.Discard)
	interrupts := interrupt.New(&regs, vmlog.Discard)
	dmaCtrl := dma.New(vmlog.Discard)
	dsk := disk.New(vmlog.Discard)
	c := cpu.New(&regs, mem, interrupts, dmaCtrl, dsk, vmlog.Discard)
	return c, mem, &regs
}

// program writes a sequence of 8-digit instruction strings starting at
// physical address start and returns the address just past the program.
func program(mem *memory.Unit, start int, instructions ...string) int {
	for i, ins := range instructions {
		var w word.Word
		copy(w[:], ins)
		mem.WritePhysical(start+i, w)
	}
	return start + len(instructions)
}

func TestArithmeticLoadAndStore(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	// 04 1 00010 -> load immediate 10
	// 00 1 00005 -> sum immediate 5 (AC = 15)
	// 05 0 00500 -> store AC to address 500
	// 40 0 00000 -> halt
	program(mem, 300,
		"04100010",
		"00100005",
		"05000500",
		"40000000",
	)

	c.RunProgram(300, 0)

	assert.Equal(t, cpu.Halted, c.State())
	v, code := mem.Read(500)
	assert.Nil(t, code)
	n, ok := v.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 15, n)
}

func TestDivisionByZeroZeroesACWithoutInterrupt(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	program(mem, 300,
		"04100099", // load immediate 99
		"03100000", // divi immediate 0
		"40000000", // halt
	)

	c.RunProgram(300, 0)

	n, ok := regs.AC.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestArithmeticResultExceedingMagnitudeBecomesOverflowSentinel(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	// load immediate 99999 (the widest 5-digit value), then multiply by
	// 99999 again: the product exceeds MaxMagnitude and AC takes the
	// OVERFLOW sentinel instead of a decodable integer.
	program(mem, 300,
		"04199999", // load immediate 99999
		"02199999", // mult immediate 99999
		"40000000", // halt
	)

	c.RunProgram(300, 0)

	assert.Equal(t, cpu.Halted, c.State())
	assert.Equal(t, word.SentinelOverflow, regs.AC)
	assert.EqualValues(t, 3, regs.PSW.ConditionCode)
}

// TestOverflowRaisesInterruptAndEntersKernelMode mirrors spec.md §9's
// worked overflow scenario: AC=9999000, SUM 2000 must set cc=3, raise
// INT_OVERFLOW, and leave the CPU in kernel mode once it's dispatched.
func TestOverflowRaisesInterruptAndEntersKernelMode(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true
	regs.PSW.Mode = register.ModeUser
	regs.AC = word.FromInt(9999000, nil)

	program(mem, 300,
		"00102000", // sum immediate 2000
		"40000000", // halt
	)

	c.RunProgram(300, 0)

	assert.Equal(t, cpu.Halted, c.State())
	assert.EqualValues(t, 3, regs.PSW.ConditionCode)
	assert.Equal(t, register.ModeKernel, regs.PSW.Mode)
}

func TestConditionalJumpOnEqual(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	// cmp immediate 0 against AC=0 -> condition code 0 (equal) -> jeq jumps to 305
	program(mem, 300,
		"06100000", // cmp immediate 0
		"09000305", // jeq 305
		"04100001", // load immediate 1 (skipped)
		"40000000", // halt (skipped)
		"40000000", // filler at 304
		"04100099", // at 305: load immediate 99
		"40000000", // halt
	)

	c.RunProgram(300, 0)

	n, ok := regs.AC.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 99, n)
}

func TestCallAndReturn(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	// main: call 310; then halt
	// sub at 310: load immediate 42; ret
	program(mem, 300,
		"14000310", // call 310
		"40000000", // halt
	)
	program(mem, 310,
		"04100042", // load immediate 42
		"15000000", // ret
	)

	c.RunProgram(300, 0)

	n, ok := regs.AC.ToInt()
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	assert.Equal(t, cpu.Halted, c.State())
}

func TestPrivilegedWriteToOSRegionRaisesInterruptInUserMode(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true
	regs.PSW.Mode = register.ModeUser

	program(mem, 300,
		"04100007", // load immediate 7
		"05000010", // str to address 10 (OS region) -> fault
		"40000000", // halt
	)

	c.RunProgram(300, 0)
	assert.Equal(t, cpu.Halted, c.State())
}

func TestStepProgramAdvancesOneInstructionAtATime(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	program(mem, 300,
		"04100005",
		"40000000",
	)
	regs.SetPC(300)
	c.SetState(cpu.Running)

	assert.True(t, c.StepProgram())
	n, _ := regs.AC.ToInt()
	assert.Equal(t, 5, n)

	assert.False(t, c.StepProgram())
	assert.Equal(t, cpu.Halted, c.State())
}

func TestInvalidInstructionTriggersInterrupt(t *testing.T) {
	c, mem, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	// malformed word (not 8 valid digits) decodes to opcode -1
	var w word.Word
	copy(w[:], "????????")
	mem.WritePhysical(300, w)
	mem.WritePhysical(301, func() word.Word {
		var h word.Word
		copy(h[:], "40000000")
		return h
	}())

	c.RunProgram(300, 0)
	assert.Equal(t, cpu.Halted, c.State())
}

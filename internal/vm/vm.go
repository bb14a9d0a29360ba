// Package vm wires the register file, memory, disk, interrupt controller,
// DMA controller, and CPU into a single owning container, grounded on
// original_source/main.c's init sequence and CONSOLE/console.c's command
// dispatch.
package vm

import (
	"fmt"
	"time"

	"github.com/jorgearias2404/virtual-machine/internal/cpu"
	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/dma"
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

// Logger is the core's logging boundary, re-exported at the package a
// caller actually constructs a Machine through.
type Logger = vmlog.Logger

// Machine owns every subsystem and is the unit a front end (cmd/vmctl or
// a test) drives.
type Machine struct {
	Regs       *register.File
	Mem        *memory.Unit
	Disk       *disk.Disk
	Interrupts *interrupt.Controller
	DMA        *dma.Controller
	CPU        *cpu.CPU
	Log        Logger
}

// Option customizes a Machine at construction time.
type Option func(*Machine)

// WithRegion sets the initial RB/RL window, overriding the File.Init
// default of RB=0, RL=1024.
func WithRegion(base, limit int) Option {
	return func(m *Machine) {
		m.Mem.SetRegion(base, limit)
	}
}

// New constructs every subsystem in dependency order: registers first
// (memory/interrupts/dma all borrow the register file), then
// memory/disk/interrupts/dma, and finally the CPU, which borrows all of
// them. This mirrors main()'s init_memory(); init_registers();
// init_interrupts(); init_disk(); init_dma(); init_cpu() sequence,
// reordered only because Go's explicit construction requires the
// register file to exist before anything can hold a pointer to it.
func New(log Logger, opts ...Option) *Machine {
	regs := &register.File{}
	regs.Init()

	m := &Machine{
		Regs:       regs,
		Mem:        memory.New(regs, log),
		Disk:       disk.New(log),
		Interrupts: interrupt.New(regs, log),
		DMA:        dma.New(log),
		Log:        log,
	}
	m.CPU = cpu.New(regs, m.Mem, m.Interrupts, m.DMA, m.Disk, log)

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ProgramLoader places a program into the machine's memory and reports
// the address execution should begin at.
type ProgramLoader interface {
	Load(m *Machine) (startAddress int, err error)
}

// LoadAndRun loads a program then runs the CPU to completion (or error),
// with no cycle pause — callers that need wall-clock pacing or a cycle
// budget should drive CPU.RunProgram/StepProgram directly instead.
func (m *Machine) LoadAndRun(loader ProgramLoader) error {
	start, err := loader.Load(m)
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	m.CPU.RunProgram(start, 0)
	return nil
}

// Shutdown joins any in-flight DMA transfer before the machine is
// discarded.
func (m *Machine) Shutdown() {
	m.DMA.Shutdown()
}

// DefaultLoader reproduces, word for word, the hard-coded demonstration
// program from original_source/CONSOLE/console.c's load_program_file:
// four literal instruction strings at physical addresses 300-303, then
// RB=300/RL=100.
//
// This is preserved as a bug, not fixed: load_program_file writes those
// four words via write_memory while RB is still 0 (the register file's
// power-on default), so they land at physical 300-303. It then sets
// RB=300 and returns the literal absolute address 300 as the start PC.
// The first fetch computes physical = logical+RB = 300+300 = 600,
// outside the [300, 400) window RL=100 permits — so it raises
// INVALID_ADDRESS, and because interrupts start disabled the fault is
// simply dropped. PC still advances each cycle, so every later fetch
// (physical 601, 602, ...) is outside the window too and the CPU
// free-runs without ever fetching a loaded word. None of the four loaded
// words, including the literal "45000000" that confusingly decodes as
// SWKERN rather than HALT, is ever reached. cmd/vmctl's `run` imposes a cycle budget rather
// than trusting this program to halt on its own.
type DefaultLoader struct{}

func (DefaultLoader) Load(m *Machine) (int, error) {
	instructions := []string{"00050000", "01030000", "05001200", "45000000"}
	for i, ins := range instructions {
		var w word.Word
		copy(w[:], ins)
		m.Mem.WritePhysical(300+i, w)
	}
	m.Mem.SetRegion(300, 100)
	return 300, nil
}

// RunWithBudget runs at most maxCycles CPU cycles starting at start,
// sleeping cyclePause between each, stopping early if the CPU halts or
// errors.
func (m *Machine) RunWithBudget(start int, maxCycles int, cyclePause time.Duration) {
	m.Regs.SetPC(start)
	m.CPU.SetState(cpu.Running)
	for i := 0; i < maxCycles && m.CPU.State() == cpu.Running; i++ {
		m.CPU.Cycle()
		if cyclePause > 0 {
			time.Sleep(cyclePause)
		}
	}
}

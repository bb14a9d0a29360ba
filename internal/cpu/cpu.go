// Package cpu implements the fetch-decode-execute cycle and the full
// 46-opcode instruction set, grounded on original_source/CPU/cpu.c.
package cpu

import (
	"time"

	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/dma"
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

// State is the CPU's run state.
type State int

const (
	Halted State = iota
	Running
	WaitingIO
	Error
)

func (s State) String() string {
	switch s {
	case Halted:
		return "HALTED"
	case Running:
		return "RUNNING"
	case WaitingIO:
		return "WAITING_IO"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CPU ties together the register file and every subsystem it drives on
// each cycle. It is the one place that turns a memory.Unit fault code
// into an interrupt.Controller.Trigger call, breaking the
// register/memory/interrupt/CPU reference cycle described in spec.md §9.
type CPU struct {
	regs       *register.File
	mem        *memory.Unit
	interrupts *interrupt.Controller
	dmaCtrl    *dma.Controller
	disk       *disk.Disk
	log        vmlog.Logger

	state State
}

// New wires a CPU to its already-constructed subsystems and resets it to
// the power-on state.
func New(regs *register.File, mem *memory.Unit, interrupts *interrupt.Controller, dmaCtrl *dma.Controller, dsk *disk.Disk, log vmlog.Logger) *CPU {
	c := &CPU{regs: regs, mem: mem, interrupts: interrupts, dmaCtrl: dmaCtrl, disk: dsk, log: log}
	c.Reset()
	return c
}

// Reset reinitializes the register file and sets the CPU running, per
// init_cpu/reset_cpu.
func (c *CPU) Reset() {
	c.regs.Init()
	c.state = Running
	c.log.Infof("CPU initialized")
}

// State returns the CPU's current run state.
func (c *CPU) State() State {
	return c.state
}

// SetState forces the CPU's run state; used by the `debug` CLI command,
// by Machine.RunWithBudget, and by tests that need to resume a halted CPU.
func (c *CPU) SetState(s State) {
	c.state = s
}

// fetch performs the FETCH phase: MAR <- PC, MDR <- mem[MAR], IR <- MDR,
// PC++, then decodes IR. A fetch that faults against the logical window
// raises the fault interrupt and yields an always-invalid instruction
// (opcode -1), so execute raises INVALID_INSTRUCTION for that cycle and
// does nothing else.
func (c *CPU) fetch() Instruction {
	pc := c.regs.PCInt()
	c.regs.MAR = word.FromInt(pc, c.log.Errorf)

	mdr, code := c.mem.Read(pc)
	c.regs.MDR = mdr
	c.regs.IR = mdr

	c.regs.SetPC(pc + 1)

	c.log.Debugf("FETCH: PC=%d, instruction=%s", pc, c.regs.IR.String())

	if code != nil {
		c.interrupts.Trigger(*code)
		return Instruction{Opcode: -1}
	}

	ac := c.regs.AC.ToIntLogged(c.log.Errorf)
	return decode(c.regs.IR, ac)
}

// Cycle runs one fetch-decode-execute-interrupt-sweep iteration. It is a
// no-op if the CPU is not Running, mirroring cpu_cycle's early return.
func (c *CPU) Cycle() {
	if c.state != Running {
		return
	}
	instr := c.fetch()
	c.execute(instr)
	c.interrupts.HandlePending()
}

// RunProgram starts execution at start and cycles until the CPU stops
// running, sleeping cyclePause between cycles (execute_program's
// CPU_SLEEP, made configurable instead of a hardcoded 10ms so tests can
// run with no delay at all).
func (c *CPU) RunProgram(start int, cyclePause time.Duration) {
	c.regs.SetPC(start)
	c.state = Running
	c.log.Infof("starting execution at address %d", start)

	for c.state == Running {
		c.Cycle()
		if cyclePause > 0 {
			time.Sleep(cyclePause)
		}
	}
	c.log.Infof("execution finished")
}

// StepProgram runs exactly one cycle and reports whether the CPU is
// still Running afterward, for the debugger's single-step command.
func (c *CPU) StepProgram() bool {
	if c.state != Running {
		c.log.Warningf("CPU stopped; use RunProgram to resume execution")
		return false
	}
	c.Cycle()
	return c.state == Running
}

// readOperand resolves an instruction's operand value: the literal value
// for immediate mode, or the memory cell at its effective address
// otherwise. A fault during the memory read is reported through ok=false
// after triggering the corresponding interrupt.
func (c *CPU) readOperand(instr Instruction) (value int, ok bool) {
	if instr.Mode == Immediate {
		return instr.Value, true
	}
	w, code := c.mem.Read(instr.EffectiveAddress)
	if code != nil {
		c.interrupts.Trigger(*code)
		return 0, false
	}
	return w.ToIntLogged(c.log.Errorf), true
}

// writeMemory performs a fault-checked logical write, triggering the
// corresponding interrupt on failure.
func (c *CPU) writeMemory(addr int, w word.Word) bool {
	if code := c.mem.Write(addr, w); code != nil {
		c.interrupts.Trigger(*code)
		return false
	}
	return true
}

// readMemory performs a fault-checked logical read, triggering the
// corresponding interrupt and returning the zero word on failure.
func (c *CPU) readMemory(addr int) (word.Word, bool) {
	w, code := c.mem.Read(addr)
	if code != nil {
		c.interrupts.Trigger(*code)
		return word.Zero, false
	}
	return w, true
}

// execute dispatches a decoded instruction. The opcode groupings mirror
// execute_instruction's switch exactly: arithmetic 00-03, memory 04-05,
// compare/move 06-08, conditional jumps 09-12, calls/return 13-15,
// register moves 16-19, stack 25-26, jump 27, DMA 28-33, I/O 34-36,
// system 40-45. Opcodes 20-24 and 37-39 have no case in the original and
// fall to its default arm; they do the same here.
func (c *CPU) execute(instr Instruction) {
	if instr.Opcode == -1 {
		c.interrupts.Trigger(interrupt.CodeInvalidInstruction)
		return
	}

	c.log.Debugf("EXECUTE: opcode=%d, mode=%d, value=%d, EA=%d",
		instr.Opcode, instr.Mode, instr.Value, instr.EffectiveAddress)

	switch instr.Opcode {
	case 0, 1, 2, 3:
		c.execArithmetic(instr)
	case 4:
		c.execLoad(instr)
	case 5:
		c.writeMemory(instr.EffectiveAddress, c.regs.AC)
	case 6, 7, 8:
		c.execCompareMove(instr)
	case 9, 10, 11, 12:
		c.execConditionalJump(instr)
	case 13:
		c.interrupts.Trigger(interrupt.CodeSyscall)
	case 14:
		c.execCall(instr)
	case 15:
		c.execReturn()
	case 16:
		c.regs.AC = c.regs.RB
	case 17:
		c.regs.RB = c.regs.AC
	case 18:
		c.regs.AC = c.regs.RL
	case 19:
		c.regs.RL = c.regs.AC
	case 25:
		c.execPush()
	case 26:
		c.execPop()
	case 27:
		c.regs.SetPC(instr.EffectiveAddress)
	case 28:
		c.dmaCtrl.SetMemoryAddress(instr.Value)
		c.dmaCtrl.SetIOOperation(dma.OpRead)
		c.dmaCtrl.StartTransfer(c.mem, c.disk, c.interrupts)
	case 29:
		c.dmaCtrl.SetMemoryAddress(instr.Value)
		c.dmaCtrl.SetIOOperation(dma.OpWrite)
		c.dmaCtrl.StartTransfer(c.mem, c.disk, c.interrupts)
	case 30:
		c.dmaCtrl.WaitCompletion()
	case 31:
		c.regs.AC = word.FromInt(int(c.dmaCtrl.Status()), c.log.Errorf)
	case 32:
		c.dmaCtrl.SetDiskLocation(instr.Value/10000, (instr.Value%10000)/100, instr.Value%100)
	case 33:
		c.dmaCtrl.SetTransferSize(instr.Value)
	case 34, 35, 36:
		c.log.Infof("I/O operation %d requested", instr.Opcode)
		c.interrupts.Trigger(interrupt.CodeIOCompletion)
	case 40:
		c.state = Halted
		c.log.Infof("CPU halted by HALT instruction")
	case 41:
		// nop
	case 42:
		c.regs.PSW.InterruptEnabled = true
	case 43:
		c.regs.PSW.InterruptEnabled = false
	case 44:
		c.regs.PSW.Mode = register.ModeUser
	case 45:
		c.regs.PSW.Mode = register.ModeKernel
	default:
		c.log.Warningf("unimplemented instruction: %d", instr.Opcode)
		c.interrupts.Trigger(interrupt.CodeInvalidInstruction)
	}
}

// execArithmetic handles opcodes 0-3 (sum/res/mult/divi). Division by
// zero silently zeroes AC with no interrupt, an asymmetry with overflow
// preserved verbatim from the original (spec.md §9).
func (c *CPU) execArithmetic(instr Instruction) {
	acValue := c.regs.AC.ToIntLogged(c.log.Errorf)
	operand, ok := c.readOperand(instr)
	if !ok {
		return
	}

	var result int
	switch instr.Opcode {
	case 0:
		result = acValue + operand
	case 1:
		result = acValue - operand
	case 2:
		result = acValue * operand
	case 3:
		if operand != 0 {
			result = acValue / operand
		} else {
			result = 0
		}
	}

	c.regs.AC = word.FromInt(result, c.log.Errorf)
	register.UpdateConditionCode(&c.regs.PSW, result)

	// The original detects overflow via native-int wraparound
	// (`result < ac_value && operand > 0`, etc.), which cannot happen
	// under Go's 64-bit int at these magnitudes. Detect it the way
	// word.FromInt itself does instead: a result whose magnitude
	// exceeds what a Word can hold is the real overflow, per spec.md
	// §9's worked example (AC=9999000, SUM 2000 -> cc=3, INT_OVERFLOW).
	magnitude := result
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > word.MaxMagnitude {
		c.regs.PSW.ConditionCode = 3
		c.interrupts.Trigger(interrupt.CodeOverflow)
	}
}

// execLoad handles opcode 4 (load): immediate loads the literal value,
// otherwise AC takes the raw memory word (not a decoded integer), as in
// the original's `cpu_registers.AC = read_memory(...)`.
func (c *CPU) execLoad(instr Instruction) {
	if instr.Mode == Immediate {
		c.regs.AC = word.FromInt(instr.Value, c.log.Errorf)
		return
	}
	w, ok := c.readMemory(instr.EffectiveAddress)
	if !ok {
		return
	}
	c.regs.AC = w
}

// execCompareMove handles opcodes 6-8 (cmp/tst/mov).
func (c *CPU) execCompareMove(instr Instruction) {
	acValue := c.regs.AC.ToIntLogged(c.log.Errorf)
	operand, ok := c.readOperand(instr)
	if !ok {
		return
	}

	switch instr.Opcode {
	case 6:
		register.UpdateConditionCode(&c.regs.PSW, acValue-operand)
	case 7:
		register.UpdateConditionCode(&c.regs.PSW, acValue&operand)
	case 8:
		c.regs.AC = word.FromInt(operand, c.log.Errorf)
	}
}

// execConditionalJump handles opcodes 9-12 (jeq/jgt/jlt/jov), testing
// the condition code left by the most recent arithmetic/compare.
func (c *CPU) execConditionalJump(instr Instruction) {
	condition := c.regs.PSW.ConditionCode
	var shouldJump bool
	switch instr.Opcode {
	case 9:
		shouldJump = condition == 0
	case 10:
		shouldJump = condition == 2
	case 11:
		shouldJump = condition == 1
	case 12:
		shouldJump = condition == 3
	}
	if shouldJump {
		c.regs.SetPC(instr.EffectiveAddress)
	}
}

// execCall handles opcode 14: push the return address (the already
// incremented PC) then jump, descending the stack exactly as `call` does
// in the original (SP decrements on push, independent of the `push`
// opcode's own stack discipline). The full PC register is pushed, not
// the 10-bit PSW.PCPsw mirror — the mirror exists only for fast
// predicates and would truncate any return address past 1023.
func (c *CPU) execCall(instr Instruction) {
	sp := c.regs.SP.ToIntLogged(c.log.Errorf)
	returnAddr := word.FromInt(c.regs.PCInt(), c.log.Errorf)
	if !c.writeMemory(sp, returnAddr) {
		return
	}
	c.regs.SP = word.FromInt(sp-1, c.log.Errorf)
	c.regs.SetPC(instr.EffectiveAddress)
}

// execReturn handles opcode 15: pop the return address pushed by call
// and resume there.
func (c *CPU) execReturn() {
	sp := c.regs.SP.ToIntLogged(c.log.Errorf) + 1
	c.regs.SP = word.FromInt(sp, c.log.Errorf)
	returnAddr, ok := c.readMemory(sp)
	if !ok {
		return
	}
	c.regs.SetPC(returnAddr.ToIntLogged(c.log.Errorf))
}

// execPush handles opcode 25: store AC at SP then decrement SP.
func (c *CPU) execPush() {
	sp := c.regs.SP.ToIntLogged(c.log.Errorf)
	if !c.writeMemory(sp, c.regs.AC) {
		return
	}
	c.regs.SP = word.FromInt(sp-1, c.log.Errorf)
}

// execPop handles opcode 26: increment SP then load AC from it.
func (c *CPU) execPop() {
	sp := c.regs.SP.ToIntLogged(c.log.Errorf) + 1
	c.regs.SP = word.FromInt(sp, c.log.Errorf)
	w, ok := c.readMemory(sp)
	if !ok {
		return
	}
	c.regs.AC = w
}

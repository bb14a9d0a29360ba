// Package register implements the CPU register file: AC, MAR, MDR, IR, RB,
// RL, RX, SP, PC and the packed PSW (program status word), grounded on
// original_source/REGISTERS/registers.c.
package register

import "github.com/jorgearias2404/virtual-machine/internal/word"

// Mode is the CPU's privilege level.
type Mode uint8

const (
	ModeUser Mode = iota
	ModeKernel
)

func (m Mode) String() string {
	if m == ModeKernel {
		return "KERNEL"
	}
	return "USER"
}

// PSW is the program status word: condition code, privilege mode,
// interrupt-enable flag, and a clamped 10-bit mirror of PC.
type PSW struct {
	ConditionCode    uint8
	Mode             Mode
	InterruptEnabled bool
	PCPsw            uint16
}

// Pack encodes the PSW into its 16-bit wire layout: bits 0-3 condition
// code, bit 4 mode, bit 5 interrupt-enabled, bits 6-15 the 10-bit PC
// mirror. This is observable only through introspection (the registers
// CLI command); the instruction set never consumes it directly.
func (p PSW) Pack() uint16 {
	var v uint16
	v |= uint16(p.ConditionCode) & 0xF
	if p.Mode == ModeKernel {
		v |= 1 << 4
	}
	if p.InterruptEnabled {
		v |= 1 << 5
	}
	v |= (p.PCPsw & 0x3FF) << 6
	return v
}

// Unpack decodes a 16-bit wire value back into a PSW.
func Unpack(v uint16) PSW {
	return PSW{
		ConditionCode:    uint8(v & 0xF),
		Mode:             Mode((v >> 4) & 0x1),
		InterruptEnabled: (v>>5)&0x1 == 1,
		PCPsw:            (v >> 6) & 0x3FF,
	}
}

// clampPC clips v into the PSW's 10-bit mirror range.
func clampPC(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 1023 {
		return 1023
	}
	return uint16(v)
}

// File is the CPU's complete register set.
type File struct {
	AC, MAR, MDR, IR, RB, RL, RX, SP, PC word.Word
	PSW                                  PSW
}

// Init resets the file to power-on-after-init_cpu state: all general
// registers zero except RL=1024, SP=1023; PSW zeroed with mode=KERNEL.
func (f *File) Init() {
	f.AC = word.Zero
	f.MAR = word.Zero
	f.MDR = word.Zero
	f.IR = word.Zero
	f.RB = word.Zero
	f.RL = word.FromInt(1024, nil)
	f.RX = word.Zero
	f.SP = word.FromInt(1023, nil)
	f.PC = word.Zero
	f.PSW = PSW{ConditionCode: 0, Mode: ModeKernel, InterruptEnabled: false, PCPsw: 0}
}

// SetPC updates both the full PC register and its clamped PSW mirror in
// one call, so no caller can advance PC without keeping the invariant
// PSW.PCPsw == clamp(PC, 0, 1023).
func (f *File) SetPC(v int) {
	f.PC = word.FromInt(v, nil)
	f.PSW.PCPsw = clampPC(v)
}

// PCInt returns the current PC as an int.
func (f *File) PCInt() int {
	v, _ := f.PC.ToInt()
	return v
}

// UpdateConditionCode sets cc to 0/1/2 by the sign of result. Overflow
// (cc=3) is set only by callers that detected an arithmetic overflow —
// this helper never produces it, matching update_condition_code in the
// original source.
func UpdateConditionCode(psw *PSW, result int) {
	switch {
	case result == 0:
		psw.ConditionCode = 0
	case result < 0:
		psw.ConditionCode = 1
	default:
		psw.ConditionCode = 2
	}
}

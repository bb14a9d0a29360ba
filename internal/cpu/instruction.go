package cpu

import "github.com/jorgearias2404/virtual-machine/internal/word"

// AddressingMode is the 1-digit addressing-mode field of an encoded
// instruction.
type AddressingMode int

const (
	Direct AddressingMode = iota
	Immediate
	Indexed
)

// Instruction is the decoded form of an 8-digit instruction word:
// "OO M VVVVV" — two-digit opcode, one-digit mode, five-digit value.
type Instruction struct {
	Opcode           int
	Mode             AddressingMode
	Value            int
	EffectiveAddress int
}

// decode parses an instruction word per spec.md §4.7. Any length or digit
// failure yields Opcode -1, which execute treats as INT_INVALID_INSTRUCTION.
func decode(ir word.Word, ac int) Instruction {
	s := ir.String()
	if len(s) != 8 {
		return Instruction{Opcode: -1}
	}
	opcode, ok1 := parseDigits(s[0:2])
	modeDigit, ok2 := parseDigits(s[2:3])
	value, ok3 := parseDigits(s[3:8])
	if !ok1 || !ok2 || !ok3 || modeDigit > 2 {
		return Instruction{Opcode: -1}
	}

	mode := AddressingMode(modeDigit)
	instr := Instruction{Opcode: opcode, Mode: mode, Value: value}
	instr.EffectiveAddress = effectiveAddress(mode, value, ac)
	return instr
}

func effectiveAddress(mode AddressingMode, value, ac int) int {
	switch mode {
	case Direct, Immediate:
		return value
	case Indexed:
		return ac + value
	default:
		return -1
	}
}

func parseDigits(s string) (int, bool) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

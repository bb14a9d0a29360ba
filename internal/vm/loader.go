package vm

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

// FileLoader reads a program as one 8-digit instruction word per
// non-blank line and writes it into memory starting at StartAddress
// (OS-reserved boundary by default), leaving the default RB=0/RL=1024
// window untouched. Short lines are zero-padded; this is the real file
// reader the original's load_program_file stubbed out in favor of a
// hard-coded demo (see DefaultLoader).
//
// StartAddress is a pointer so a nil value (the zero FileLoader) means
// "use the default" and a non-nil *0 means "load at physical address 0,
// on purpose" — an int field can't tell those two apart.
type FileLoader struct {
	Path         string
	StartAddress *int
}

// Load reads Path and writes each instruction word starting at
// StartAddress (defaulting to memory.OSReserved if unset).
func (fl FileLoader) Load(m *Machine) (int, error) {
	start := memory.OSReserved
	if fl.StartAddress != nil {
		start = *fl.StartAddress
	}

	f, err := os.Open(fl.Path)
	if err != nil {
		return 0, fmt.Errorf("opening program file: %w", err)
	}
	defer f.Close()

	addr := start
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line) > 8 {
			return 0, fmt.Errorf("instruction word too long: %q", line)
		}
		if addr >= memory.Size {
			return 0, fmt.Errorf("program exceeds memory size at address %d", addr)
		}

		var w word.Word
		copy(w[:], strings.Repeat("0", 8-len(line))+line)
		m.Mem.WritePhysical(addr, w)
		addr++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading program file: %w", err)
	}

	m.Log.Infof("loaded %d words from %s starting at address %d", addr-start, fl.Path, start)
	return start, nil
}

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jorgearias2404/virtual-machine/internal/cpu"
	"github.com/jorgearias2404/virtual-machine/internal/vm"
)

var debugCmd = &cobra.Command{
	Use:   "debug [file]",
	Short: "Load a program and single-step it interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()
		defer m.Shutdown()

		start, err := (vm.FileLoader{Path: args[0]}).Load(m)
		if err != nil {
			return err
		}
		m.Regs.SetPC(start)
		m.CPU.SetState(cpu.Running)

		fmt.Println("=== interactive debugger ===")
		fmt.Println("space/enter: step    q: quit")
		return stepLoop(m)
	},
}

// stepLoop puts stdin in raw mode so a single keypress advances the CPU
// one cycle, restoring the terminal on exit. Grounded on the teacher
// pack's raw-mode stdin handling in terminal_host.go.
func stepLoop(m *vm.Machine) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return stepLoopNonInteractive(m)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw terminal mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		printStepHeader(m)
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return nil
		}
		switch buf[0] {
		case 'q', 'Q', 3: // 3 = Ctrl-C
			return nil
		default:
			if !m.CPU.StepProgram() {
				fmt.Print("\r\nCPU stopped: ")
				pp.Println(m.Regs.PSW)
				return nil
			}
		}
	}
}

// stepLoopNonInteractive drives the debugger from a non-terminal stdin
// (pipes, redirected input in tests) by stepping once per line read.
func stepLoopNonInteractive(m *vm.Machine) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !m.CPU.StepProgram() {
			break
		}
		printStepHeader(m)
	}
	pp.Println(m.Regs)
	return nil
}

func printStepHeader(m *vm.Machine) {
	fmt.Printf("\r\nPC=%d AC=%s state=%v\r\n", m.Regs.PCInt(), m.Regs.AC.String(), m.CPU.State())
}

func init() {
	rootCmd.AddCommand(debugCmd)
}

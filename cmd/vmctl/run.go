package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorgearias2404/virtual-machine/internal/cpu"
	"github.com/jorgearias2404/virtual-machine/internal/vm"
)

var (
	runDefault  bool
	runCycleCap int
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Load a program and execute it in normal mode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()
		defer m.Shutdown()

		var loader vm.ProgramLoader
		switch {
		case runDefault:
			loader = vm.DefaultLoader{}
		case len(args) == 1:
			loader = vm.FileLoader{Path: args[0]}
		default:
			return fmt.Errorf("run requires a program file, or --default for the built-in demo")
		}

		start, err := loader.Load(m)
		if err != nil {
			return err
		}

		if runDefault {
			// DefaultLoader's program never halts on its own; see
			// vm.DefaultLoader's doc comment. Bound execution instead of
			// looping forever.
			fmt.Printf("running built-in demo at %d for at most %d cycles\n", start, runCycleCap)
			m.RunWithBudget(start, runCycleCap, 10*time.Millisecond)
		} else {
			fmt.Printf("running program at address %d...\n", start)
			m.CPU.RunProgram(start, 10*time.Millisecond)
		}

		if m.CPU.State() != cpu.Halted {
			fmt.Printf("execution stopped in state %v (no HALT reached)\n", m.CPU.State())
		} else {
			fmt.Println("execution finished")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDefault, "default", false, "run the built-in demo program instead of a file")
	runCmd.Flags().IntVar(&runCycleCap, "max-cycles", 1000, "cycle budget for --default, which never halts on its own")
	rootCmd.AddCommand(runCmd)
}

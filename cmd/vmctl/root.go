package main

import (
	"github.com/spf13/cobra"

	"github.com/jorgearias2404/virtual-machine/internal/vm"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
)

var logPath string

// rootCmd is the vmctl command tree's entry point.
var rootCmd = &cobra.Command{
	Use:   "vmctl",
	Short: "vmctl drives the virtual machine core",
	Long: `vmctl loads and runs programs against the virtual machine core:
its CPU, word-addressed memory, interrupt vector, DMA controller, and
CHS disk store.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "system.log", "path to the event log file")
}

// newMachine opens the configured log file and constructs a fresh
// Machine against it. The caller is responsible for closing the
// returned closer once done.
func newMachine() (*vm.Machine, func(), error) {
	logger, closer, err := vmlog.Open(logPath)
	if err != nil {
		return nil, nil, err
	}
	m := vm.New(logger)
	return m, func() { closer.Close() }, nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
)

var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "Dump the register file and PSW",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()
		pp.Println(m.Regs)
		return nil
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory [start] [end]",
	Short: "Dump a range of memory cells",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end := memory.OSReserved, memory.OSReserved+20
		if len(args) >= 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid start address: %w", err)
			}
			start = v
		}
		if len(args) == 2 {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid end address: %w", err)
			}
			end = v
		}

		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()

		cells := m.Mem.Dump(start, end)
		for i, w := range cells {
			fmt.Printf("%04d: %s\n", start+i, w.String())
		}
		return nil
	},
}

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Report disk geometry and head position",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()
		fmt.Printf("geometry: %d tracks x %d cylinders x %d sectors per cylinder\n",
			disk.Tracks, disk.Cylinders, disk.SectorsPerCylinder)
		pp.Println(m.Disk.Head())
		return nil
	},
}

var diskWriteCmd = &cobra.Command{
	Use:   "write [track] [cylinder] [sector] [data]",
	Short: "Write raw data into one disk sector",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		track, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track: %w", err)
		}
		cylinder, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid cylinder: %w", err)
		}
		sector, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid sector: %w", err)
		}

		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()

		m.Disk.WriteSectorRaw(track, cylinder, sector, []byte(args[3]))
		return nil
	},
}

var diskFormatCmd = &cobra.Command{
	Use:   "format",
	Short: "Reset every disk sector to the zero word",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closer, err := newMachine()
		if err != nil {
			return err
		}
		defer closer()
		m.Disk.Format()
		fmt.Println("disk formatted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registersCmd)
	rootCmd.AddCommand(memoryCmd)
	diskCmd.AddCommand(diskWriteCmd)
	diskCmd.AddCommand(diskFormatCmd)
	rootCmd.AddCommand(diskCmd)
}

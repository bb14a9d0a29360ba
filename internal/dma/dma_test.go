package dma_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/dma"
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/register"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

func newHarness() (*dma.Controller, *memory.Unit, *disk.Disk, *interrupt.Controller, *register.File) {
	var regs register.File
	regs.Init()
	mem := memory.New(&regs, vmlog.Discard)
	dsk := disk.New(vmlog.Discard)
	interrupts := interrupt.New(&regs, vmlog.Discard)
	return dma.New(vmlog.Discard), mem, dsk, interrupts, &regs
}

func TestDMAReadRoundTrip(t *testing.T) {
	dma.WordSleep = 0
	c, mem, dsk, interrupts, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	c.SetMemoryAddress(600)
	c.SetDiskLocation(1, 2, 3)
	c.SetTransferSize(4)
	c.SetIOOperation(dma.OpRead)

	c.StartTransfer(mem, dsk, interrupts)
	c.WaitCompletion()

	assert.Equal(t, dma.Idle, c.State())
	assert.Equal(t, dma.StatusOK, c.Status())

	v := mem.ReadPhysical(600)
	assert.Equal(t, "T01C02S003"[:8], v.String())
}

func TestDMABusyRejectsSecondStart(t *testing.T) {
	dma.WordSleep = 5 * time.Millisecond
	c, mem, dsk, interrupts, regs := newHarness()
	regs.PSW.InterruptEnabled = true
	c.SetTransferSize(20)

	c.StartTransfer(mem, dsk, interrupts)
	c.StartTransfer(mem, dsk, interrupts) // should warn and no-op
	c.WaitCompletion()

	assert.Equal(t, dma.Idle, c.State())
}

func TestDMAOutOfBoundsSetsError(t *testing.T) {
	dma.WordSleep = 0
	c, mem, dsk, interrupts, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	c.SetMemoryAddress(memory.Size - 1)
	c.SetTransferSize(5)

	c.StartTransfer(mem, dsk, interrupts)
	c.WaitCompletion()

	assert.Equal(t, dma.Error, c.State())
	assert.Equal(t, dma.StatusErr, c.Status())
}

func TestDMAWriteTransfersMemoryToDisk(t *testing.T) {
	dma.WordSleep = 0
	c, mem, dsk, interrupts, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	mem.WritePhysical(500, wordFromString("12345678"))
	c.SetMemoryAddress(500)
	c.SetDiskLocation(0, 0, 0)
	c.SetTransferSize(1)
	c.SetIOOperation(dma.OpWrite)

	c.StartTransfer(mem, dsk, interrupts)
	c.WaitCompletion()

	assert.Equal(t, "12345678", dsk.ReadSector(0, 0, 0).String())
}

func TestDMAWriteTransferCrossingSectorBoundarySetsError(t *testing.T) {
	dma.WordSleep = 0
	c, mem, dsk, interrupts, regs := newHarness()
	regs.PSW.InterruptEnabled = true

	mem.WritePhysical(500, wordFromString("11111111"))
	mem.WritePhysical(501, wordFromString("22222222"))
	c.SetMemoryAddress(500)
	c.SetDiskLocation(0, 0, disk.SectorsPerCylinder-1)
	c.SetTransferSize(2) // second word's sector index runs past SectorsPerCylinder
	c.SetIOOperation(dma.OpWrite)

	c.StartTransfer(mem, dsk, interrupts)
	c.WaitCompletion()

	assert.Equal(t, dma.Error, c.State())
	assert.Equal(t, dma.StatusErr, c.Status())
	assert.Equal(t, "11111111", dsk.ReadSector(0, 0, disk.SectorsPerCylinder-1).String())
}

func wordFromString(s string) word.Word {
	var w word.Word
	copy(w[:], s)
	return w
}

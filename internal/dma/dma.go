// Package dma implements the background memory<->disk transfer engine,
// grounded on original_source/DMA/dma.c. Unlike the C original's detached
// pthread, the worker here is joinable: Shutdown blocks until any
// in-flight transfer has finished, per spec.md §9's "DMA thread lifecycle"
// design note.
package dma

import (
	"fmt"
	"sync"
	"time"

	"github.com/jorgearias2404/virtual-machine/internal/disk"
	"github.com/jorgearias2404/virtual-machine/internal/interrupt"
	"github.com/jorgearias2404/virtual-machine/internal/memory"
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

// State is the controller's transfer state machine: Idle -> (Reading |
// Writing) -> Idle | Error, and never any other transition.
type State int

const (
	Idle State = iota
	Reading
	Writing
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Reading:
		return "READING"
	case Writing:
		return "WRITING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Operation selects the transfer direction.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

// Status is the outcome of the last completed (or failed) transfer.
type Status int

const (
	StatusOK Status = iota
	StatusErr
)

// WordSleep is the cooperative per-word pacing delay the transfer worker
// sleeps between words. It is not a correctness requirement.
var WordSleep = time.Millisecond

// Controller owns the DMA configuration, transfer state, and the bus
// mutex. mu guards the configuration fields, state, status and done; it
// is the controller's "bus lock". The transfer worker takes it only
// around its state and status updates, not for the whole transfer, so
// it does not serialize memory/disk traffic: at most one worker runs
// because StartTransfer refuses to start unless state is Idle. The CPU
// does not acquire mu for its own memory access either.
type Controller struct {
	mu sync.Mutex

	memAddr    int
	track      int
	cyl        int
	sectorBase int
	op         Operation
	nWords     int
	state      State
	status     Status

	done chan struct{}
	wg   sync.WaitGroup

	log vmlog.Logger
}

// New returns a DMA controller with one default-sized (1-word) transfer
// configured and state Idle.
func New(log vmlog.Logger) *Controller {
	c := &Controller{nWords: 1, state: Idle, status: StatusOK, log: log}
	log.Infof("DMA initialized")
	return c
}

// SetMemoryAddress validates and stores the transfer's memory-side base
// address. Invalid values are logged and ignored.
func (c *Controller) SetMemoryAddress(addr int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr < 0 || addr >= memory.Size {
		c.log.Errorf("DMA: invalid memory address: %d", addr)
		return
	}
	c.memAddr = addr
	c.log.Debugf("DMA: memory address set to %d", addr)
}

// SetDiskLocation validates and stores the transfer's disk-side
// coordinates.
func (c *Controller) SetDiskLocation(track, cyl, sector int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if track < 0 || track >= disk.Tracks ||
		cyl < 0 || cyl >= disk.Cylinders ||
		sector < 0 || sector >= disk.SectorsPerCylinder {
		c.log.Errorf("DMA: invalid disk coordinates: T=%d, C=%d, S=%d", track, cyl, sector)
		return
	}
	c.track, c.cyl, c.sectorBase = track, cyl, sector
	c.log.Debugf("DMA: disk location set to T=%d, C=%d, S=%d", track, cyl, sector)
}

// SetIOOperation selects read or write direction.
func (c *Controller) SetIOOperation(op Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.op = op
	c.log.Debugf("DMA: operation set to %v", op)
}

// SetTransferSize validates and stores the word count for the next
// transfer.
func (c *Controller) SetTransferSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size <= 0 {
		c.log.Errorf("DMA: invalid transfer size: %d", size)
		return
	}
	c.nWords = size
	c.log.Debugf("DMA: transfer size set to %d", size)
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the outcome of the last completed transfer.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// StartTransfer spawns the background worker if the controller is Idle;
// otherwise it warns and returns without starting anything, matching
// dma_start_transfer's busy check. At most one worker is ever alive,
// satisfying the DMA-exclusivity law in spec.md §8.
func (c *Controller) StartTransfer(mem *memory.Unit, dsk *disk.Disk, interrupts *interrupt.Controller) {
	c.mu.Lock()
	if c.state != Idle {
		c.log.Warningf("DMA: transfer already in progress (state: %v)", c.state)
		c.mu.Unlock()
		return
	}
	if c.memAddr < 0 || c.memAddr >= memory.Size {
		c.log.Errorf("DMA: invalid memory address for transfer")
		c.status = StatusErr
		c.state = Error
		c.mu.Unlock()
		return
	}

	memAddr, track, cyl, sectorBase, op, nWords := c.memAddr, c.track, c.cyl, c.sectorBase, c.op, c.nWords
	c.done = make(chan struct{})
	c.wg.Add(1)
	// Set state away from Idle here, before unlocking, so a caller that
	// calls WaitCompletion immediately after StartTransfer can't observe
	// the stale Idle state and return before the worker goroutine has
	// even been scheduled.
	if op == OpRead {
		c.state = Reading
	} else {
		c.state = Writing
	}
	c.mu.Unlock()

	go c.transfer(mem, dsk, interrupts, memAddr, track, cyl, sectorBase, op, nWords)
	c.log.Infof("DMA: transfer started (async)")
}

func (c *Controller) transfer(mem *memory.Unit, dsk *disk.Disk, interrupts *interrupt.Controller,
	memAddr, track, cyl, sectorBase int, op Operation, nWords int) {
	// Capture this transfer's channel now: once state returns to Idle a
	// new StartTransfer may replace c.done before the deferred close runs.
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	defer c.wg.Done()
	defer close(done)

	c.log.Infof("DMA: starting transfer %s", directionLabel(op))

	failed := false
	for i := 0; i < nWords; i++ {
		if memAddr+i >= memory.Size {
			c.log.Errorf("DMA: memory address out of bounds")
			c.mu.Lock()
			c.state = Error
			c.status = StatusErr
			c.mu.Unlock()
			failed = true
			break
		}
		if sectorBase+i >= disk.SectorsPerCylinder {
			c.log.Errorf("DMA: disk sector out of bounds")
			c.mu.Lock()
			c.state = Error
			c.status = StatusErr
			c.mu.Unlock()
			failed = true
			break
		}

		if op == OpRead {
			payload := syntheticSector(track, cyl, sectorBase+i)
			mem.WritePhysical(memAddr+i, payload)
			c.log.Debugf("DMA: transferred sector %d to memory[%d] = %s", i, memAddr+i, payload.String())
		} else {
			w := mem.ReadPhysical(memAddr + i)
			dsk.WriteSector(track, cyl, sectorBase+i, w)
			c.log.Debugf("DMA: transferred memory[%d] = %s to disk sector %d", memAddr+i, w.String(), i)
		}

		time.Sleep(WordSleep)
	}

	c.mu.Lock()
	if !failed {
		c.state = Idle
		c.status = StatusOK
		c.log.Infof("DMA: transfer completed successfully")
	} else {
		c.log.Errorf("DMA: transfer failed")
	}
	c.mu.Unlock()

	interrupts.Trigger(interrupt.CodeIOCompletion)
}

func directionLabel(op Operation) string {
	if op == OpRead {
		return "read (disk->memory)"
	}
	return "write (memory->disk)"
}

// syntheticSector produces the 8-byte payload "T{tt}C{cc}S{sss}" the
// original's dma_disk_read helper synthesizes, truncated/padded to 8
// bytes. spec.md §4.6 permits either this synthetic path or a real
// disk.ReadSector call; this implementation matches the original's
// choice of the synthetic path on the read side.
func syntheticSector(track, cyl, sector int) word.Word {
	s := fmt.Sprintf("T%02dC%02dS%03d", track%100, cyl%100, sector%1000)
	var w word.Word
	copy(w[:], s)
	return w
}

// WaitCompletion blocks until the in-flight transfer finishes, unless the
// controller is already Idle or Error.
func (c *Controller) WaitCompletion() {
	c.mu.Lock()
	if c.state == Idle || c.state == Error {
		c.mu.Unlock()
		return
	}
	done := c.done
	c.mu.Unlock()

	<-done
	c.log.Debugf("DMA: transfer finished (synchronous wait)")
}

// Shutdown joins any outstanding worker. The original C source detached
// its pthread and could never do this cleanly; spec.md §9 calls for a
// joinable handle instead.
func (c *Controller) Shutdown() {
	c.wg.Wait()
}

// Package disk implements the cylinder/head/sector disk store, grounded
// on original_source/DISK/disk.c. There is no head-motion simulation: the
// head position is tracked only for introspection (the `disk` CLI
// command), updated by an explicit Seek the core never calls on its own.
package disk

import (
	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
	"github.com/jorgearias2404/virtual-machine/internal/word"
)

const (
	Tracks             = 10
	Cylinders          = 10
	SectorsPerCylinder = 100
)

// Head is the current track/cylinder/sector position, updated only by
// Seek.
type Head struct {
	Track, Cylinder, Sector int
}

// Disk is the 4-D sector store.
type Disk struct {
	sectors [Tracks][Cylinders][SectorsPerCylinder]word.Word
	head    Head
	log     vmlog.Logger
}

// New returns a disk with every sector initialized to the zero word.
func New(log vmlog.Logger) *Disk {
	d := &Disk{log: log}
	for t := range d.sectors {
		for c := range d.sectors[t] {
			for s := range d.sectors[t][c] {
				d.sectors[t][c][s] = word.Zero
			}
		}
	}
	log.Infof("disk initialized: %d tracks, %d cylinders, %d sectors per cylinder", Tracks, Cylinders, SectorsPerCylinder)
	return d
}

func validCoords(t, c, s int) bool {
	return t >= 0 && t < Tracks && c >= 0 && c < Cylinders && s >= 0 && s < SectorsPerCylinder
}

// ReadSector returns the sector at (track, cylinder, sector), or the
// ERROR sentinel if the coordinates are out of range.
func (d *Disk) ReadSector(track, cylinder, sector int) word.Word {
	if !validCoords(track, cylinder, sector) {
		d.log.Errorf("invalid disk coordinates: T=%d, C=%d, S=%d", track, cylinder, sector)
		return word.SentinelError
	}
	w := d.sectors[track][cylinder][sector]
	d.log.Debugf("disk read: T=%d, C=%d, S=%d -> %s", track, cylinder, sector, w.String())
	return w
}

// WriteSector writes data into the given sector, routing through
// WriteSectorRaw so every disk write — DMA's included — shares the one
// coordinate-check/length-warning path.
func (d *Disk) WriteSector(track, cylinder, sector int, data word.Word) {
	d.WriteSectorRaw(track, cylinder, sector, data[:])
}

// WriteSectorRaw writes a raw byte payload, warning (but not rejecting) if
// it isn't exactly 8 bytes — the original's strlen(data) != SECTOR_SIZE-1
// check in write_sector. Out-of-range coordinates are logged and the call
// is a no-op. Short payloads are zero-padded on the right; long ones are
// truncated, matching copy's behavior into the fixed 8-byte cell.
func (d *Disk) WriteSectorRaw(track, cylinder, sector int, data []byte) {
	if !validCoords(track, cylinder, sector) {
		d.log.Errorf("invalid disk coordinates: T=%d, C=%d, S=%d", track, cylinder, sector)
		return
	}
	if len(data) != 8 {
		d.log.Warningf("wrong-sized data for sector write: %q", data)
	}
	var w word.Word // true zero bytes, not word.Zero's "00000000" digits
	copy(w[:], data)
	d.sectors[track][cylinder][sector] = w
	d.log.Debugf("disk write: T=%d, C=%d, S=%d <- %s", track, cylinder, sector, w.String())
}

// Head returns the current head position.
func (d *Disk) Head() Head {
	return d.head
}

// Seek repositions the head. The core never calls this on its own; it is
// present for the `disk` CLI command's geometry/position report.
func (d *Disk) Seek(track, cylinder, sector int) {
	d.head = Head{Track: track, Cylinder: cylinder, Sector: sector}
}

// Format resets every sector to the zero word.
func (d *Disk) Format() {
	for t := range d.sectors {
		for c := range d.sectors[t] {
			for s := range d.sectors[t][c] {
				d.sectors[t][c][s] = word.Zero
			}
		}
	}
	d.log.Infof("disk formatted")
}

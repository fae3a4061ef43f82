// Package fsinfo implements the §6 "FS-info collaborator": batched
// persistence of the FAT32 FSINFO sector's free-cluster count and
// next-free hint. FAT12/16 volumes have no FSINFO sector at all, and a
// read-only mount must never schedule a write; this package does not check
// for either case. Such hosts leave the Coordinator out (a fat.Volume built
// without fat.WithFSInfo uses a no-op coordinator of its own).
package fsinfo

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/diskfs/go-fatfs/backend"
)

const (
	sectorSize   = 512
	leadSig      = 0x41615252
	structSig    = 0x61417272
	trailSig     = 0xAA550000
	freeCountOff = 488
	nextFreeOff  = 492
)

// Coordinator marks the FSINFO sector dirty and flushes it on demand. It
// satisfies fat.FSInfoCoordinator via its MarkDirty method.
type Coordinator struct {
	store      backend.WritableFile
	sectorByte int64

	mu       sync.Mutex
	dirty    bool
	freeHint func() (freeClusters int64, nextFree uint32)
}

// New returns a Coordinator that, once MarkDirty has been called at least
// once, will write the FSINFO sector at byte offset sectorByte on the next
// Flush. freeHint supplies the current free-cluster count and next-free
// hint at flush time.
func New(store backend.WritableFile, sectorByte int64, freeHint func() (int64, uint32)) *Coordinator {
	return &Coordinator{store: store, sectorByte: sectorByte, freeHint: freeHint}
}

// MarkDirty implements fat.FSInfoCoordinator: it records that the FSINFO
// sector needs rewriting, batched until the caller invokes Flush (spec.md
// §4.6's "batched to after unlocking the volume's FAT lock").
func (c *Coordinator) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}

// Flush writes the FSINFO sector if MarkDirty has been called since the
// last Flush, and is a no-op otherwise.
func (c *Coordinator) Flush() error {
	c.mu.Lock()
	dirty := c.dirty
	c.dirty = false
	c.mu.Unlock()
	if !dirty {
		return nil
	}

	free, next := c.freeHint()

	buf := make([]byte, sectorSize)
	binary.LittleEndian.PutUint32(buf[0:4], leadSig)
	binary.LittleEndian.PutUint32(buf[484:488], structSig)
	binary.LittleEndian.PutUint32(buf[freeCountOff:freeCountOff+4], uint32(free))
	binary.LittleEndian.PutUint32(buf[nextFreeOff:nextFreeOff+4], next)
	binary.LittleEndian.PutUint32(buf[508:512], trailSig)

	if _, err := c.store.WriteAt(buf, c.sectorByte); err != nil {
		return fmt.Errorf("fsinfo: writing sector: %w", err)
	}
	return nil
}

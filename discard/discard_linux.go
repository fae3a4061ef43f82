//go:build linux

package discard

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// BlockDevice issues discards via the BLKDISCARD ioctl against an open
// block device file, the Linux analogue of fat_free_clusters's call into
// the block layer's discard path. BlockSize converts the block-number
// units the fat package works in into the byte ranges BLKDISCARD expects.
type BlockDevice struct {
	File      *os.File
	BlockSize uint64
}

// IssueDiscard implements Issuer. BLKDISCARD takes a pointer to a
// [2]uint64{start, length} range in bytes.
func (d BlockDevice) IssueDiscard(firstBlock uint64, blockCount uint64) error {
	rng := [2]uint64{firstBlock * d.BlockSize, blockCount * d.BlockSize}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.File.Fd(), unix.BLKDISCARD, uintptr(unsafe.Pointer(&rng)))
	if errno != 0 {
		return fmt.Errorf("discard: BLKDISCARD %d+%d: %w", firstBlock, blockCount, errno)
	}
	return nil
}

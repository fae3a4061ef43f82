package fat_test

import (
	"errors"
	"testing"

	"github.com/diskfs/go-fatfs/fat"
)

func TestMirrorReplicatesToSecondaryCopies(t *testing.T) {
	vol, cache := newTestVolume(fat.Variant16, 3, 200)
	inode := fat.Inode{Name: "t"}

	if err := vol.WriteEntry(10, 0x55, inode); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	primary, _ := cache.Load(0)
	for copyIdx := 1; copyIdx < 3; copyIdx++ {
		mirrorBlock := uint64(8 * copyIdx) // FATBlocks=8 in newTestVolume
		mirror, _ := cache.Load(mirrorBlock)
		if mirror.Data()[20] != primary.Data()[20] || mirror.Data()[21] != primary.Data()[21] {
			t.Errorf("mirror copy %d not replicated at entry 10's bytes", copyIdx)
		}
	}
}

func TestMirrorErrorReportsPartialProgress(t *testing.T) {
	vol, cache := newTestVolume(fat.Variant16, 3, 200)
	inode := fat.Inode{Name: "t"}

	cache.syncErr = errors.New("simulated write failure")

	err := vol.WriteEntry(10, 0x55, inode)
	if err == nil {
		t.Fatal("WriteEntry: expected mirror error, got nil")
	}
	var mirrErr *fat.MirrorError
	if !errors.As(err, &mirrErr) {
		t.Fatalf("WriteEntry: error was not a *fat.MirrorError: %v", err)
	}
	if mirrErr.FailedCopy != 1 {
		t.Errorf("MirrorError.FailedCopy: actual %d instead of expected %d", mirrErr.FailedCopy, 1)
	}
}

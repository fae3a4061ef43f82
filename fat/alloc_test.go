package fat_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/diskfs/go-fatfs/fat"
)

func TestAllocateClustersChains(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 100)
	inode := fat.Inode{Name: "t"}

	clusters, err := vol.AllocateClusters(3, inode)
	if err != nil {
		t.Fatalf("AllocateClusters: %v", err)
	}
	if len(clusters) != 3 {
		t.Fatalf("AllocateClusters: actual %d clusters instead of expected %d", len(clusters), 3)
	}

	for i, c := range clusters[:len(clusters)-1] {
		val, err := vol.ReadEntry(c)
		if err != nil {
			t.Fatalf("ReadEntry(%d): %v", c, err)
		}
		if val != clusters[i+1] {
			t.Errorf("entry %d: actual next %d instead of expected %d", c, val, clusters[i+1])
		}
	}
	last := clusters[len(clusters)-1]
	val, err := vol.ReadEntry(last)
	if err != nil {
		t.Fatalf("ReadEntry(%d): %v", last, err)
	}
	if val != fat.EOF {
		t.Errorf("last entry %d: actual %#x instead of expected EOF", last, val)
	}
}

func TestAllocateThenFreeRoundTrip(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 100)
	inode := fat.Inode{Name: "t"}

	clusters, err := vol.AllocateClusters(4, inode)
	if err != nil {
		t.Fatalf("AllocateClusters: %v", err)
	}

	if err := vol.FreeChain(clusters[0], inode); err != nil {
		t.Fatalf("FreeChain: %v", err)
	}
	for _, c := range clusters {
		val, err := vol.ReadEntry(c)
		if err != nil {
			t.Fatalf("ReadEntry(%d): %v", c, err)
		}
		if val != fat.Free {
			t.Errorf("entry %d: actual %#x instead of expected Free after FreeChain", c, val)
		}
	}
}

func TestAllocateExhaustion(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 10)
	inode := fat.Inode{Name: "t"}

	// total allocatable entries: FatStartEnt(2)..MaxCluster(10) exclusive => 8
	if _, err := vol.AllocateClusters(8, inode); err != nil {
		t.Fatalf("AllocateClusters(8): %v", err)
	}
	if _, err := vol.AllocateClusters(1, inode); err == nil {
		t.Error("AllocateClusters(1) on exhausted volume: expected error, got nil")
	}
}

func TestAllocateWrapsAtPrevFreeHint(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 20)
	inode := fat.Inode{Name: "t"}

	first, err := vol.AllocateClusters(5, inode)
	if err != nil {
		t.Fatalf("AllocateClusters: %v", err)
	}
	if err := vol.FreeChain(first[0], inode); err != nil {
		t.Fatalf("FreeChain: %v", err)
	}

	// allocate every entry above the freed chain (8..19) to push prevFree
	// to MaxCluster-1, forcing the next allocation to wrap.
	top, err := vol.AllocateClusters(12, inode)
	if err != nil {
		t.Fatalf("AllocateClusters(12): %v", err)
	}
	if len(top) != 12 {
		t.Fatalf("AllocateClusters(12): actual %d instead of expected %d", len(top), 12)
	}

	next, err := vol.AllocateClusters(2, inode)
	if err != nil {
		t.Fatalf("AllocateClusters(2) after wrap: %v", err)
	}
	if len(next) != 2 {
		t.Fatalf("AllocateClusters(2): actual %d instead of expected %d", len(next), 2)
	}
	if next[0] != fat.FatStartEnt {
		t.Errorf("AllocateClusters(2) after wrap: actual first cluster %d instead of expected %d", next[0], fat.FatStartEnt)
	}
}

func TestFreeAlreadyFreeEntryIsCorruption(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 100)
	inode := fat.Inode{Name: "t"}

	if err := vol.FreeChain(5, inode); err == nil {
		t.Error("FreeChain on an already-free entry: expected error, got nil")
	}
}

func TestCountFreeClustersCachesResult(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 20)
	inode := fat.Inode{Name: "t"}

	free, err := vol.CountFreeClusters()
	if err != nil {
		t.Fatalf("CountFreeClusters: %v", err)
	}
	want := int64(20 - fat.FatStartEnt)
	if free != want {
		t.Errorf("CountFreeClusters: actual %d instead of expected %d", free, want)
	}

	if _, err := vol.AllocateClusters(3, inode); err != nil {
		t.Fatalf("AllocateClusters: %v", err)
	}
	// the cached count, maintained incrementally by AllocateClusters, must
	// already reflect the allocation without rescanning.
	free2, err := vol.CountFreeClusters()
	if err != nil {
		t.Fatalf("CountFreeClusters (cached): %v", err)
	}
	if free2 != free-3 {
		t.Errorf("CountFreeClusters after allocate: actual %d instead of expected %d", free2, free-3)
	}
}

func TestMarkRangeBad(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 100, fat.WithBadRangeMarking())
	inode := fat.Inode{Name: "t"}

	// allocate one cluster so that entry is not FREE; MarkRangeBad must
	// skip it while still marking every other free entry in the range.
	allocated, err := vol.AllocateClusters(1, inode)
	if err != nil {
		t.Fatalf("AllocateClusters: %v", err)
	}
	if allocated[0] != fat.FatStartEnt+1 {
		t.Fatalf("AllocateClusters: actual first cluster %d instead of expected %d", allocated[0], fat.FatStartEnt+1)
	}

	marked, err := vol.MarkRangeBad(2, inode)
	if err != nil {
		t.Fatalf("MarkRangeBad: %v", err)
	}
	want := int(100 - fat.FatStartEnt - 1) // every entry from 2 except the one already allocated
	if marked != want {
		t.Errorf("MarkRangeBad: actual %d marked instead of expected %d", marked, want)
	}

	val, err := vol.ReadEntry(allocated[0])
	if err != nil {
		t.Fatalf("ReadEntry(%d): %v", allocated[0], err)
	}
	if val != fat.EOF {
		t.Errorf("ReadEntry(%d): actual %#x instead of expected EOF (untouched by MarkRangeBad)", allocated[0], val)
	}

	for _, e := range []uint32{4, 5} {
		val, err := vol.ReadEntry(e)
		if err != nil {
			t.Fatalf("ReadEntry(%d): %v", e, err)
		}
		// BAD normalizes to EOF on read-back, per the codec's get().
		if val != fat.EOF {
			t.Errorf("ReadEntry(%d) after mark-bad: actual %#x instead of expected EOF", e, val)
		}
	}
}

func TestMarkRangeBadRequiresOption(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 100)
	inode := fat.Inode{Name: "t"}

	if _, err := vol.MarkRangeBad(2, inode); err == nil {
		t.Error("MarkRangeBad without WithBadRangeMarking: expected error, got nil")
	}
}

func TestAllocateContiguous(t *testing.T) {
	vol, _ := newTestVolume(fat.Variant16, 1, 50)
	inode := fat.Inode{Name: "t"}

	clusters, err := vol.AllocateContiguous(5, inode)
	if err != nil {
		t.Fatalf("AllocateContiguous: %v", err)
	}
	if len(clusters) != 5 {
		t.Fatalf("AllocateContiguous: actual %d instead of expected %d", len(clusters), 5)
	}

	want := make([]uint32, 5)
	for i := range want {
		want[i] = clusters[0] + uint32(i)
	}
	if diff := cmp.Diff(want, clusters); diff != "" {
		t.Errorf("AllocateContiguous: clusters not contiguous (-want +got):\n%s", diff)
	}
}

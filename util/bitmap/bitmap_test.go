package bitmap_test

import (
	"testing"

	"github.com/diskfs/go-fatfs/util/bitmap"
)

func TestFreeRun(t *testing.T) {
	bm := bitmap.NewBits(32)
	for _, i := range []int{0, 1, 5, 6, 7, 8, 20} {
		if err := bm.Set(i); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	// free runs: 2-4 (len 3), 9-19 (len 11), 21-31 (len 11)

	pos, ok := bm.FreeRun(3, 0)
	if !ok || pos != 2 {
		t.Errorf("FreeRun(3, 0): actual (%d, %t) instead of expected (2, true)", pos, ok)
	}

	pos, ok = bm.FreeRun(10, 0)
	if !ok || pos != 9 {
		t.Errorf("FreeRun(10, 0): actual (%d, %t) instead of expected (9, true)", pos, ok)
	}

	_, ok = bm.FreeRun(12, 0)
	if ok {
		t.Error("FreeRun(12, 0): expected no run found, got one")
	}

	pos, ok = bm.FreeRun(5, 10)
	if !ok || pos != 10 {
		t.Errorf("FreeRun(5, 10): actual (%d, %t) instead of expected (10, true)", pos, ok)
	}
}

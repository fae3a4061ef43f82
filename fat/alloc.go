package fat

import (
	"fmt"

	"github.com/diskfs/go-fatfs/util/bitmap"
)

// dirtySet accumulates buffers touched across a multi-entry allocate or
// free operation, deduplicating by block number, so that each dirtied FAT
// block is synced and mirrored exactly once regardless of how many
// entries inside it were touched. Buffers are adopted by move: a cursor
// that hands its buffers to the set gives up its own pin rather than
// incrementing a shared refcount (spec.md's design note on dirty-set
// accumulation).
type dirtySet struct {
	seen  map[uint64]bool
	order []uint64
	bufs  map[uint64]Buffer
	cache BlockCache
}

func newDirtySet(cache BlockCache) *dirtySet {
	return &dirtySet{seen: make(map[uint64]bool), bufs: make(map[uint64]Buffer), cache: cache}
}

// adopt takes ownership of cur's pinned buffers. Blocks not yet in the set
// are kept; blocks already present are released immediately, since the
// set already holds a pin on them.
func (d *dirtySet) adopt(cur *Cursor) {
	for _, b := range cur.take() {
		if d.seen[b.BlockNo()] {
			d.cache.Release(b)
			continue
		}
		d.seen[b.BlockNo()] = true
		d.order = append(d.order, b.BlockNo())
		d.bufs[b.BlockNo()] = b
	}
}

func (d *dirtySet) buffers() []Buffer {
	out := make([]Buffer, 0, len(d.order))
	for _, blockNo := range d.order {
		out = append(out, d.bufs[blockNo])
	}
	return out
}

func (d *dirtySet) len() int { return len(d.order) }

// maxBufPerFlush bounds how many distinct FAT blocks FreeChain accumulates
// before flushing, mirroring fat_free_clusters's MAX_BUF_PER_PAGE batching
// so a very long chain doesn't pin the whole FAT in memory at once.
const maxBufPerFlush = 16

// AllocateClusters is C4's allocate operation (spec.md §4.4): under the
// volume's FAT lock, walk forward from the next-free hint (wrapping at
// MaxCluster back to FatStartEnt), claim up to n FREE entries, chain them
// together, flush the touched FAT blocks, and mirror. On any failure after
// partial progress the partial chain is rolled back via FreeChain.
func (v *Volume) AllocateClusters(n int, inode Inode) (clusters []uint32, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: allocate count must be positive", ErrInvalid)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.freeValid && v.freeClusters >= 0 && v.freeClusters < int64(n) {
		return nil, ErrNoSpace
	}

	set := newDirtySet(v.cache)
	cur := newCursor(v)
	defer cur.Release()

	var prevEnt uint32
	havePrev := false
	found := make([]uint32, 0, n)

	start := v.prevFree + 1
	walked := uint32(0)
	total := v.params.MaxCluster - FatStartEnt

	for walked < total && len(found) < n {
		e := start + walked
		if e >= v.params.MaxCluster {
			e = FatStartEnt + (e - v.params.MaxCluster)
		}
		walked++

		if err := cur.seek(e); err != nil {
			v.releaseRollback(set, found, inode)
			return nil, err
		}
		val, err := cur.Get()
		if err != nil {
			v.releaseRollback(set, found, inode)
			return nil, err
		}
		if val != Free {
			continue
		}

		if err := cur.Put(EOF); err != nil {
			v.releaseRollback(set, found, inode)
			return nil, err
		}

		if havePrev {
			if err := v.chainPrev(prevEnt, e, set); err != nil {
				v.releaseRollback(set, found, inode)
				return nil, err
			}
		}

		found = append(found, e)
		set.adopt(cur)
		prevEnt = e
		havePrev = true
		v.prevFree = e
		if v.freeValid {
			v.freeClusters--
		}
	}

	if len(found) < n {
		v.freeClusters = 0
		v.freeValid = true
		v.releaseRollback(set, found, inode)
		return nil, ErrNoSpace
	}

	v.fsinfo.MarkDirty()
	if err := v.flush(set.buffers(), inode); err != nil {
		return nil, err
	}
	return found, nil
}

// chainPrev writes entry e into the previous cluster's slot without
// disturbing cur's binding, using a scratch cursor.
func (v *Volume) chainPrev(prevEnt uint32, e uint32, set *dirtySet) error {
	scratch := newCursor(v)
	defer scratch.Release()
	if err := scratch.seek(prevEnt); err != nil {
		return err
	}
	if err := scratch.Put(e); err != nil {
		return err
	}
	set.adopt(scratch)
	return nil
}

// releaseRollback flushes whatever partial progress was made and frees
// the partially built chain, mirroring fat_alloc_clusters's error path
// (spec.md §4.4 edge case on mid-walk failure).
func (v *Volume) releaseRollback(set *dirtySet, found []uint32, inode Inode) {
	_ = v.flush(set.buffers(), inode)
	if len(found) > 0 {
		_ = v.freeChainLocked(found[0], inode)
	}
}

// FreeChain is C4's free operation (spec.md §4.4): walk the chain from
// start to EOF, marking each entry FREE, batching flushes every
// maxBufPerFlush blocks. The free-cluster counter is only incremented when
// it is already valid (fat_free_clusters never validates an unknown
// counter just because it happened to free some entries); fsinfo is still
// marked dirty on any free, since the on-disk next-free hint benefits even
// when the in-memory count stays unknown. Encountering an already-FREE
// entry mid-chain is reported as corruption rather than silently stopping.
func (v *Volume) FreeChain(start uint32, inode Inode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.freeChainLocked(start, inode)
}

func (v *Volume) freeChainLocked(start uint32, inode Inode) error {
	set := newDirtySet(v.cache)
	cur := newCursor(v)
	defer cur.Release()

	e := start
	dirtyFSInfo := false
	var runStart uint32
	var runLen uint64
	haveRun := false

	flushRun := func() {
		// runStart/runLen are cluster-entry indices, not block numbers; a
		// real mount would translate through its cluster-to-block geometry
		// before issuing discard. Left untranslated here since discard is
		// best-effort and external to this package (no such geometry is
		// available on Volume), but a caller wiring a real DiscardIssuer
		// must do that translation itself or expect misplaced TRIMs.
		if haveRun && runLen > 0 {
			_ = v.discard.IssueDiscard(uint64(runStart), runLen)
		}
		haveRun = false
		runLen = 0
	}

	for {
		if err := cur.seek(e); err != nil {
			flushRun()
			_ = v.flush(set.buffers(), inode)
			return err
		}
		val, err := cur.Get()
		if err != nil {
			flushRun()
			_ = v.flush(set.buffers(), inode)
			return err
		}
		if val == Free {
			flushRun()
			_ = v.flush(set.buffers(), inode)
			v.reporter.Report(SeverityError, "fat: free of already-free entry %d mid-chain", e)
			return fmt.Errorf("%w: entry %d already free", ErrCorrupt, e)
		}

		if err := cur.Put(Free); err != nil {
			flushRun()
			_ = v.flush(set.buffers(), inode)
			return err
		}
		set.adopt(cur)

		if haveRun && e == runStart+uint32(runLen) {
			runLen++
		} else {
			flushRun()
			runStart, runLen, haveRun = e, 1, true
		}

		if v.freeValid {
			v.freeClusters++
		}
		dirtyFSInfo = true

		if set.len() >= maxBufPerFlush {
			if err := v.flush(set.buffers(), inode); err != nil {
				return err
			}
			set = newDirtySet(v.cache)
		}

		if val == EOF {
			break
		}
		e = val
	}

	flushRun()
	if dirtyFSInfo {
		v.fsinfo.MarkDirty()
	}
	return v.flush(set.buffers(), inode)
}

// CountFreeClusters is C4's counter-init operation (spec.md §4.4): if the
// cached count is already valid, return it immediately; otherwise scan the
// whole table once, populating the cache, and mark FSINFO dirty
// unconditionally (matching fat_count_free_clusters, which re-persists the
// freshly computed count even though it didn't change on disk).
func (v *Volume) CountFreeClusters() (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.freeValid {
		return v.freeClusters, nil
	}

	var free int64
	if err := v.scanTable(func(_ uint32, val uint32) error {
		if val == Free {
			free++
		}
		return nil
	}); err != nil {
		return 0, err
	}

	v.freeClusters = free
	v.freeValid = true
	v.fsinfo.MarkDirty()
	return free, nil
}

// MarkRangeBad scans entries [from, MaxCluster) and writes the variant's
// BAD marker to every FREE entry found, decrementing the free-cluster
// counter per entry marked (when the counter is already valid), mirroring
// fat_ent_update_badclusters_after: only FREE entries are touched (an
// already-allocated or already-bad entry in the range is left alone), and
// the walk never wraps. MarkRangeBad is refused unless the volume was
// constructed with WithBadRangeMarking, matching the original driver's
// build-time toggle for this hook. Flushes batch every maxBufPerFlush
// blocks, same as FreeChain; the batch (and final) sync is conditioned on
// the inode requiring synchronous writes and at least one entry having
// been marked so far, but mirror always runs on every flush, including the
// final one even when nothing in it is dirty (a no-op mirror in that
// case) — the same sync/mirror asymmetry the source exhibits.
func (v *Volume) MarkRangeBad(from uint32, inode Inode) (int, error) {
	if !v.badRangeMarking {
		return 0, fmt.Errorf("%w: bad-range marking not enabled for this volume", ErrInvalid)
	}
	if !v.validEntry(from) {
		return 0, fmt.Errorf("%w: entry %d out of range", ErrInvalid, from)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	set := newDirtySet(v.cache)
	cur := newCursor(v)
	defer cur.Release()

	markedCount := 0
	flush := func() error {
		bufs := set.buffers()
		if markedCount > 0 && inode.Sync {
			if err := v.cache.Sync(bufs); err != nil {
				return fmt.Errorf("%w: syncing FAT buffers: %v", ErrIOError, err)
			}
		}
		if err := v.mirror(bufs); err != nil {
			return err
		}
		for _, b := range bufs {
			v.cache.Release(b)
		}
		return nil
	}

	for e := from; e < v.params.MaxCluster; e++ {
		if err := cur.seek(e); err != nil {
			_ = flush()
			return markedCount, err
		}
		val, err := cur.Get()
		if err != nil {
			_ = flush()
			return markedCount, err
		}
		if val != Free {
			continue
		}

		if err := cur.Put(v.codec.badMarker()); err != nil {
			_ = flush()
			return markedCount, err
		}
		set.adopt(cur)
		markedCount++
		if v.freeValid {
			v.freeClusters--
		}

		if set.len() >= maxBufPerFlush {
			if err := flush(); err != nil {
				return markedCount, err
			}
			set = newDirtySet(v.cache)
		}
	}

	if err := flush(); err != nil {
		return markedCount, err
	}
	if markedCount > 0 {
		v.fsinfo.MarkDirty()
	}
	return markedCount, nil
}

// findFreeRun scans the whole table once into a bitmap (bit set = not
// free, including the reserved entries and the padding bits past
// MaxCluster), then picks the first contiguous run of at least n free
// entries at or after the next-free hint, wrapping once back to
// FatStartEnt if none is found after the hint. Building the bitmap is
// still an O(table) scan, but locating a first-fit run within it is a
// cheap FreeList() pass rather than a second entry-by-entry walk, and the
// same bitmap could later back a cached free-space map kept warm across
// calls.
func (v *Volume) findFreeRun(n int) (uint32, error) {
	bm := bitmap.NewBits(int(v.params.MaxCluster))
	for e := uint32(0); e < FatStartEnt; e++ {
		_ = bm.Set(int(e))
	}
	for e := int(v.params.MaxCluster); e < (int(v.params.MaxCluster)+7)/8*8; e++ {
		_ = bm.Set(e)
	}
	if err := v.scanTable(func(e uint32, val uint32) error {
		if val != Free {
			return bm.Set(int(e))
		}
		return nil
	}); err != nil {
		return 0, err
	}

	if pos, ok := bm.FreeRun(n, int(v.prevFree+1)); ok {
		return uint32(pos), nil
	}
	if pos, ok := bm.FreeRun(n, int(FatStartEnt)); ok {
		return uint32(pos), nil
	}
	return 0, ErrNoSpace
}

// AllocateContiguous allocates a single run of n physically consecutive
// FREE entries starting at or after the next-free hint, or returns
// ErrNoSpace if no such run exists within one pass of the table. It
// complements AllocateClusters for callers (e.g. a defragmentation tool)
// that need locality guarantees AllocateClusters's first-free walk does not
// provide; unlike AllocateClusters it does not wrap past MaxCluster mid-run,
// since a wrapped run would not be contiguous in entry-index space.
func (v *Volume) AllocateContiguous(n int, inode Inode) ([]uint32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: allocate count must be positive", ErrInvalid)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.freeValid && v.freeClusters >= 0 && v.freeClusters < int64(n) {
		return nil, ErrNoSpace
	}

	runStart, err := v.findFreeRun(n)
	if err != nil {
		return nil, err
	}

	set := newDirtySet(v.cache)
	cur := newCursor(v)
	defer cur.Release()

	clusters := make([]uint32, n)
	for i := 0; i < n; i++ {
		e := runStart + uint32(i)
		if err := cur.seek(e); err != nil {
			return nil, err
		}
		next := EOF
		if i < n-1 {
			next = e + 1
		}
		if err := cur.Put(next); err != nil {
			return nil, err
		}
		set.adopt(cur)
		clusters[i] = e
		if v.freeValid {
			v.freeClusters--
		}
	}

	v.prevFree = clusters[n-1]
	v.fsinfo.MarkDirty()
	if err := v.flush(set.buffers(), inode); err != nil {
		return nil, err
	}
	return clusters, nil
}

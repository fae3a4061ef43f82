package fat

// C3: table I/O. The engine never addresses the FAT by absolute block
// number on its own behalf — every operation goes through a Cursor, which
// in turn calls BlockCache.Load/Get. This file holds the one piece of
// table-level (as opposed to single-entry) I/O policy: the readahead
// window used when a scan is about to walk the whole table, grounded on
// original_source fat_count_free_clusters's 128KB windowed readahead.

const readaheadWindowBytes = 128 * 1024

// readaheadBlocks returns how many blocks make up one readahead window for
// a volume with the given block size, clamped to at least one block.
func readaheadBlocks(blockSize int) int {
	n := readaheadWindowBytes / blockSize
	if n < 1 {
		n = 1
	}
	return n
}

// scanTable walks every valid entry from FatStartEnt to MaxCluster,
// issuing a readahead hint at the start of each window and invoking visit
// for every entry's value. It is the shared core of CountFreeClusters and
// findFreeRun.
func (v *Volume) scanTable(visit func(entry uint32, val uint32) error) error {
	blocksPerWindow := readaheadBlocks(v.blockSize)

	cur := newCursor(v)
	defer cur.Release()

	var lastBlock uint64 = ^uint64(0)
	for e := FatStartEnt; e < v.params.MaxCluster; e++ {
		blockNo, _ := v.codec.locate(e)
		if blockNo != lastBlock && blockNo%uint64(blocksPerWindow) == 0 {
			v.cache.Readahead(blockNo, blocksPerWindow)
		}
		lastBlock = blockNo

		if err := cur.seek(e); err != nil {
			return err
		}
		val, err := cur.Get()
		if err != nil {
			return err
		}
		if err := visit(e, val); err != nil {
			return err
		}
	}
	return nil
}

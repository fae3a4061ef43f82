package fat

// mirror replicates every dirtied primary-FAT buffer in bufs to each
// secondary FAT copy 1..NumFATs-1, short-circuiting on the first copy
// that fails (spec.md §4.5, grounded on original_source fat_mirror_bhs).
// A partial failure — some copies written, one failed — is reported via
// MirrorError rather than a bare error, resolving spec.md's "Open
// Question" on partial-mirror-failure reporting.
func (v *Volume) mirror(bufs []Buffer) error {
	if v.params.NumFATs <= 1 || len(bufs) == 0 {
		return nil
	}

	var succeeded []int
	for copyIdx := 1; copyIdx < v.params.NumFATs; copyIdx++ {
		if err := v.mirrorOneCopy(copyIdx, bufs); err != nil {
			return &MirrorError{Succeeded: succeeded, FailedCopy: copyIdx, Err: err}
		}
		succeeded = append(succeeded, copyIdx)
	}
	return nil
}

func (v *Volume) mirrorOneCopy(copyIdx int, bufs []Buffer) error {
	backupFAT := v.params.FATBlocks * uint64(copyIdx)
	var dirtied []Buffer
	for _, primary := range bufs {
		offset := primary.BlockNo() - v.params.FirstFATBlock
		destBlock := v.params.FirstFATBlock + backupFAT + offset

		dest, err := v.cache.Get(destBlock)
		if err != nil {
			v.reporter.Report(SeverityError, "fat: mirror copy %d: failed to get block %d: %v", copyIdx, destBlock, err)
			return err
		}
		copy(dest.Data(), primary.Data())
		v.cache.SetUptodate(dest)
		v.cache.MarkDirty(dest, fatOwner)
		dirtied = append(dirtied, dest)
	}

	err := v.cache.Sync(dirtied)
	for _, d := range dirtied {
		v.cache.Release(d)
	}
	if err != nil {
		v.reporter.Report(SeverityError, "fat: mirror copy %d: sync failed: %v", copyIdx, err)
		return err
	}
	return nil
}

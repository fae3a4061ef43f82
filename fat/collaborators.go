package fat

// Buffer is one pinned, in-memory copy of a disk block. It is the minimal
// surface the codec and allocator need; the fat package has no opinion on
// how a Buffer is backed, only that blockcache.Buffer (and anything else
// a host wants to wire in) satisfies it.
type Buffer interface {
	BlockNo() uint64
	Data() []byte
}

// BlockCache is the §6 "Block cache collaborator": load(), get(),
// release(), mark_dirty(), sync(), readahead(), set_uptodate(). The core
// never implements this itself — it is supplied by the host (here,
// package blockcache) and is explicitly out of scope for the engine
// (spec.md §1).
type BlockCache interface {
	// Load pins and returns the buffer for blockNo, reading through to
	// storage if this is the first time the block has been seen.
	Load(blockNo uint64) (Buffer, error)
	// Get pins and returns a buffer for blockNo without necessarily
	// reading it from storage; used to obtain a fresh destination buffer
	// for the mirror writer.
	Get(blockNo uint64) (Buffer, error)
	// Release drops one pin.
	Release(buf Buffer)
	// MarkDirty marks buf as modified against the given owner tag.
	MarkDirty(buf Buffer, owner string)
	// Sync flushes every dirty buffer in bufs to stable storage.
	Sync(bufs []Buffer) error
	// Readahead hints that count blocks starting at blockNo will likely
	// be needed soon.
	Readahead(blockNo uint64, count int)
	// SetUptodate marks buf as not requiring a disk read before use.
	SetUptodate(buf Buffer)
}

// DiscardIssuer is the §6 "Discard collaborator": best-effort TRIM/discard
// issuance. Errors are ignored by the allocator per spec.md §4.4 step 3.
type DiscardIssuer interface {
	IssueDiscard(firstBlock uint64, blockCount uint64) error
}

// noopDiscard is used when the caller does not configure a DiscardIssuer.
type noopDiscard struct{}

func (noopDiscard) IssueDiscard(uint64, uint64) error { return nil }

// FSInfoCoordinator is the §6 "FS-info collaborator": marking the FSINFO
// free-cluster/next-free hint dirty. Neither this package nor package
// fsinfo checks the variant or a read-only mount; a Volume built without
// WithFSInfo (as a FAT12/16 or read-only host would build it) uses a no-op
// coordinator.
type FSInfoCoordinator interface {
	MarkDirty()
}

// noopFSInfo is used when the caller does not configure an FSInfoCoordinator.
type noopFSInfo struct{}

func (noopFSInfo) MarkDirty() {}

// ErrorReporter is the §6 "Error reporter": a rate-limited message sink
// keyed by severity and format string.
type ErrorReporter interface {
	Report(severity Severity, format string, args ...any)
}

// Severity classifies a reported message.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// noopReporter is used when the caller does not configure an ErrorReporter.
type noopReporter struct{}

func (noopReporter) Report(Severity, string, ...any) {}

// Inode stands in for the directory/inode layer's handle to the FAT table
// itself (spec.md treats the directory/inode layer as an external
// collaborator). It carries just enough state for the engine to decide
// whether a mutation must be synced before mirroring.
type Inode struct {
	// Name identifies the inode for MarkDirty/diagnostic purposes.
	Name string
	// Sync, when true, means every mutation through this inode must be
	// flushed to storage synchronously before mirroring (the "wait_flag"
	// / inode_needs_sync() condition in spec.md §4.4/§6).
	Sync bool
}

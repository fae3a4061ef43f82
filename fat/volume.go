package fat

import (
	"fmt"
	"sync"
)

// VolumeParams describes the on-disk geometry the engine needs to locate
// and interpret FAT entries, per spec.md §3's data model.
type VolumeParams struct {
	// Variant selects the on-disk entry encoding.
	Variant Variant
	// BlockSize is the size, in bytes, of one block-cache unit.
	BlockSize int
	// FirstFATBlock is the block number of the first FAT copy's first
	// block.
	FirstFATBlock uint64
	// FATBlocks is the length, in blocks, of a single FAT copy.
	FATBlocks uint64
	// NumFATs is the number of FAT copies on the volume (the primary plus
	// its mirrors); spec.md §4.5 calls this N.
	NumFATs int
	// MaxCluster is one past the highest valid entry index (exclusive
	// upper bound used by the allocator's wraparound walk).
	MaxCluster uint32
	// ReadOnly records that the volume is mounted read-only. The engine
	// does not consult it: mutating calls are not refused and FSINFO
	// marking is not suppressed when it is set.
	ReadOnly bool
}

// Option configures optional Volume collaborators.
type Option func(*Volume)

// WithDiscard wires a DiscardIssuer collaborator (spec.md §6); without it,
// discard issuance is a no-op.
func WithDiscard(d DiscardIssuer) Option { return func(v *Volume) { v.discard = d } }

// WithFSInfo wires an FSInfoCoordinator collaborator; without it, FSINFO
// dirtying is a no-op (appropriate for FAT12/16).
func WithFSInfo(f FSInfoCoordinator) Option { return func(v *Volume) { v.fsinfo = f } }

// WithReporter wires an ErrorReporter collaborator; without it, reports
// are discarded.
func WithReporter(r ErrorReporter) Option { return func(v *Volume) { v.reporter = r } }

// WithBadRangeMarking enables MarkRangeBad. It mirrors the original
// driver's build-time toggle for its after-mark-bad hook: without this
// option, MarkRangeBad is refused rather than silently available.
func WithBadRangeMarking() Option { return func(v *Volume) { v.badRangeMarking = true } }

// Volume is the C3/C6 "table manager" and lock owner of spec.md §4.3/§5:
// one Volume per mounted filesystem, holding the single sleepable mutex
// that serializes allocate/free/mark-bad/counter-init, plus the optional
// free-cluster counter and next-free hint.
type Volume struct {
	params VolumeParams
	codec  entryCodec
	cache  BlockCache

	discard  DiscardIssuer
	fsinfo   FSInfoCoordinator
	reporter ErrorReporter

	badRangeMarking bool

	mu sync.Mutex // the volume's FAT lock, spec.md §5

	freeClusters int64 // -1 means "unknown"
	freeValid    bool
	prevFree     uint32

	blockSize int
}

// NewVolume constructs a Volume over the given block cache, selecting the
// entry codec once at construction time per spec.md §9 ("dispatch table
// chosen once at mount").
func NewVolume(params VolumeParams, cache BlockCache, opts ...Option) (*Volume, error) {
	codec, err := newCodec(params.Variant, params.BlockSize, params.FirstFATBlock)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: nil block cache", ErrInvalid)
	}

	v := &Volume{
		params:       params,
		codec:        codec,
		cache:        cache,
		discard:      noopDiscard{},
		fsinfo:       noopFSInfo{},
		reporter:     noopReporter{},
		blockSize:    params.BlockSize,
		freeClusters: -1,
		prevFree:     FatStartEnt,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *Volume) validEntry(e uint32) bool {
	return e >= FatStartEnt && e < v.params.MaxCluster
}

// ReadEntry returns the logical value of entry e (C1/C2 get, spec.md
// §4.1/§4.2), normalizing any on-disk BAD marker to EOF.
func (v *Volume) ReadEntry(e uint32) (uint32, error) {
	cur := newCursor(v)
	defer cur.Release()
	if err := cur.seek(e); err != nil {
		return 0, err
	}
	return cur.Get()
}

// WriteEntry writes val to entry e and mirrors the change to every
// secondary FAT copy (C1/C2 put plus C5 mirror, spec.md §4.1/§4.5).
func (v *Volume) WriteEntry(e uint32, val uint32, inode Inode) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := newCursor(v)
	defer cur.Release()
	if err := cur.seek(e); err != nil {
		return err
	}
	if err := cur.Put(val); err != nil {
		return err
	}

	bufs := cur.take()
	return v.flush(bufs, inode)
}

// flush optionally syncs then always mirrors the given buffers, releasing
// them afterward, matching fat_ent_write's "maybe sync, then always
// mirror" order (spec.md §4.5, grounded on original_source fat_ent_write).
func (v *Volume) flush(bufs []Buffer, inode Inode) error {
	defer func() {
		for _, b := range bufs {
			v.cache.Release(b)
		}
	}()

	if inode.Sync {
		if err := v.cache.Sync(bufs); err != nil {
			return fmt.Errorf("%w: syncing FAT buffers: %v", ErrIOError, err)
		}
	}
	return v.mirror(bufs)
}

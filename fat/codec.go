package fat

import "fmt"

// Sentinel entry values, in the engine's internal logical representation.
// Codecs translate between these and each variant's on-disk width/markers
// (spec.md §3 "Entry value").
const (
	// FatStartEnt is the first valid, non-reserved entry index.
	FatStartEnt uint32 = 2

	// Free marks an entry as unallocated.
	Free uint32 = 0

	// EOF is the logical end-of-chain marker the engine and its callers
	// use regardless of variant; each codec's put() rewrites it to the
	// variant's canonical on-disk EOF constant, and each codec's get()
	// normalizes any on-disk value at or above the variant's BAD
	// threshold back to this value.
	EOF uint32 = 0xFFFFFFFF
)

// entryCodec is the C1 "entry codec" contract from spec.md §4.1: locate,
// bind, get, put, advance (here folded into Cursor.advance, which every
// variant shares), straddles, and release (shared by all variants as
// Cursor.Release). Three variants satisfy this with no inheritance, a flat
// dispatch table chosen once at mount per spec.md §9.
type entryCodec interface {
	// locate maps a logical entry index to the block number and byte
	// offset within that block.
	locate(e uint32) (blockNo uint64, offset int)
	// straddles reports whether the entry at offset needs a second,
	// adjacent block pinned (true only for FAT12 entries landing on the
	// last byte of a block).
	straddles(offset, blockSize int) bool
	// bind decodes pointers into the cursor's already-pinned buffer(s).
	bind(cur *Cursor, offset int)
	// get reads the entry value the cursor is bound to.
	get(cur *Cursor) (uint32, error)
	// put writes v to the entry the cursor is bound to.
	put(cur *Cursor, v uint32) error
	// badMarker returns the variant's reserved "bad cluster" value.
	badMarker() uint32
	// width returns the entry width in bytes (for FAT12, the logical
	// width used by batch-size/window calculations; physically 1.5).
	width() int
}

// Variant identifies which on-disk FAT entry encoding a volume uses.
type Variant int

const (
	Variant12 Variant = 12
	Variant16 Variant = 16
	Variant32 Variant = 32
)

func newCodec(variant Variant, blockSize int, firstFATBlock uint64) (entryCodec, error) {
	switch variant {
	case Variant12:
		return fat12Codec{blockSize: blockSize, firstFATBlock: firstFATBlock}, nil
	case Variant16:
		return fat16Codec{blockSize: blockSize, firstFATBlock: firstFATBlock}, nil
	case Variant32:
		return fat32Codec{blockSize: blockSize, firstFATBlock: firstFATBlock}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported FAT variant %d", ErrInvalid, variant)
	}
}

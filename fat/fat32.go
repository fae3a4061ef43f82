package fat

import "encoding/binary"

// BAD/EOF constants for the 32-bit variant, per spec.md §3. Only the low
// 28 bits of each word are the value; the high 4 bits are reserved and
// must be preserved verbatim across writes (invariant 5).
const (
	badThreshold32 uint32 = 0x0FFFFFF7
	badMarker32    uint32 = 0x0FFFFFF7
	eofOnDisk32    uint32 = 0x0FFFFFF8
	valueMask32    uint32 = 0x0FFFFFFF
	reservedMask32 uint32 = 0xF0000000
)

// fat32Codec implements entryCodec for 4-byte little-endian entries.
type fat32Codec struct {
	blockSize     int
	firstFATBlock uint64
}

func (c fat32Codec) width() int { return 4 }

func (c fat32Codec) locate(e uint32) (uint64, int) {
	bytes := uint64(e) << 2
	return c.firstFATBlock + bytes/uint64(c.blockSize), int(bytes % uint64(c.blockSize))
}

func (c fat32Codec) straddles(int, int) bool { return false }

func (c fat32Codec) bind(cur *Cursor, offset int) {
	cur.off0 = offset
}

func (c fat32Codec) get(cur *Cursor) (uint32, error) {
	b := cur.bhs[0].Data()
	raw := binary.LittleEndian.Uint32(b[cur.off0 : cur.off0+4])
	v := raw & valueMask32
	if v >= badThreshold32 {
		v = EOF
	}
	return v, nil
}

func (c fat32Codec) put(cur *Cursor, v uint32) error {
	if v == EOF {
		v = eofOnDisk32
	}
	b := cur.bhs[0].Data()
	existing := binary.LittleEndian.Uint32(b[cur.off0 : cur.off0+4])
	updated := (v & valueMask32) | (existing & reservedMask32)
	binary.LittleEndian.PutUint32(b[cur.off0:cur.off0+4], updated)
	cur.vol.cache.MarkDirty(cur.bhs[0], fatOwner)
	return nil
}

func (c fat32Codec) badMarker() uint32 { return badMarker32 }

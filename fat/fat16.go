package fat

import "encoding/binary"

// BAD/EOF constants for the 16-bit variant, per spec.md §3.
const (
	badThreshold16 uint32 = 0xFFF7
	badMarker16    uint32 = 0xFFF7
	eofOnDisk16    uint32 = 0xFFF8
)

// fat16Codec implements entryCodec for 2-byte little-endian entries.
type fat16Codec struct {
	blockSize     int
	firstFATBlock uint64
}

func (c fat16Codec) width() int { return 2 }

func (c fat16Codec) locate(e uint32) (uint64, int) {
	bytes := uint64(e) << 1
	return c.firstFATBlock + bytes/uint64(c.blockSize), int(bytes % uint64(c.blockSize))
}

func (c fat16Codec) straddles(int, int) bool { return false }

func (c fat16Codec) bind(cur *Cursor, offset int) {
	cur.off0 = offset
}

func (c fat16Codec) get(cur *Cursor) (uint32, error) {
	b := cur.bhs[0].Data()
	v := uint32(binary.LittleEndian.Uint16(b[cur.off0 : cur.off0+2]))
	if v >= badThreshold16 {
		v = EOF
	}
	return v, nil
}

func (c fat16Codec) put(cur *Cursor, v uint32) error {
	if v == EOF {
		v = eofOnDisk16
	}
	b := cur.bhs[0].Data()
	binary.LittleEndian.PutUint16(b[cur.off0:cur.off0+2], uint16(v))
	cur.vol.cache.MarkDirty(cur.bhs[0], fatOwner)
	return nil
}

func (c fat16Codec) badMarker() uint32 { return badMarker16 }

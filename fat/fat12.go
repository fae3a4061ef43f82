package fat

import "sync"

// BAD/EOF constants for the 12-bit variant, per spec.md §3.
const (
	badThreshold12 uint32 = 0x0FF7
	badMarker12    uint32 = 0x0FF7
	eofOnDisk12    uint32 = 0x0FF8
)

// fat12Lock is the "FAT12 codec lock" of spec.md §5: a single, short,
// process-wide spinlock-equivalent guarding the 2-byte read/modify in
// get/put against a concurrent writer of the neighbor entry sharing a
// byte. spec.md §9 notes that a single global lock is sufficient because
// FAT12 volumes are rare and writes are bounded, and suggests sharding by
// volume if contention ever matters; that sharding is not implemented
// here.
var fat12Lock sync.Mutex

// fat12Codec implements entryCodec for 12-bit packed entries. Two
// consecutive entries share 3 bytes; for even e the low 8 bits live in
// byte floor(3e/2) and the high 4 bits in the low nibble of the next
// byte, for odd e the low 4 bits live in the high nibble of byte
// floor(3e/2) and the high 8 bits in the next byte (spec.md §3).
type fat12Codec struct {
	blockSize     int
	firstFATBlock uint64
}

func (c fat12Codec) width() int { return 2 } // logical entry stride for batch/window sizing; physical width is 1.5 bytes

func (c fat12Codec) locate(e uint32) (uint64, int) {
	bytes := uint64(e) + uint64(e)/2
	return c.firstFATBlock + bytes/uint64(c.blockSize), int(bytes % uint64(c.blockSize))
}

// straddles reports whether the entry's second byte falls in the next
// block, i.e. the entry starts on the last byte of this block.
func (c fat12Codec) straddles(offset, blockSize int) bool {
	return offset == blockSize-1
}

func (c fat12Codec) bind(cur *Cursor, offset int) {
	cur.off0 = offset
	if cur.nBhs == 2 {
		cur.off1 = 0
	} else {
		cur.off1 = offset + 1
	}
}

func (c fat12Codec) secondByte(cur *Cursor) []byte {
	if cur.nBhs == 2 {
		return cur.bhs[1].Data()
	}
	return cur.bhs[0].Data()
}

func (c fat12Codec) get(cur *Cursor) (uint32, error) {
	fat12Lock.Lock()
	b0 := cur.bhs[0].Data()[cur.off0]
	b1 := c.secondByte(cur)[cur.off1]
	fat12Lock.Unlock()

	var raw uint32
	if cur.entry&1 == 0 {
		raw = uint32(b0) | uint32(b1)<<8
	} else {
		raw = uint32(b0)>>4 | uint32(b1)<<4
	}
	v := raw & 0x0FFF
	if v >= badThreshold12 {
		v = EOF
	}
	return v, nil
}

func (c fat12Codec) put(cur *Cursor, v uint32) error {
	if v == EOF {
		v = eofOnDisk12
	}

	fat12Lock.Lock()
	d0 := cur.bhs[0].Data()
	d1 := c.secondByte(cur)
	if cur.entry&1 == 0 {
		d0[cur.off0] = byte(v & 0xFF)
		d1[cur.off1] = (d1[cur.off1] & 0xF0) | byte((v>>8)&0x0F)
	} else {
		d0[cur.off0] = (d0[cur.off0] & 0x0F) | byte((v&0x0F)<<4)
		d1[cur.off1] = byte(v >> 4)
	}
	fat12Lock.Unlock()

	cur.vol.cache.MarkDirty(cur.bhs[0], fatOwner)
	if cur.nBhs == 2 {
		cur.vol.cache.MarkDirty(cur.bhs[1], fatOwner)
	}
	return nil
}

func (c fat12Codec) badMarker() uint32 { return badMarker12 }

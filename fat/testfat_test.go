package fat_test

import (
	"github.com/diskfs/go-fatfs/fat"
)

// memBuffer is a minimal fat.Buffer backed by a plain byte slice, used by
// memCache below.
type memBuffer struct {
	blockNo uint64
	data    []byte
}

func (b *memBuffer) BlockNo() uint64 { return b.blockNo }
func (b *memBuffer) Data() []byte    { return b.data }

// memCache is a trivial, non-reference-counted fat.BlockCache over an
// in-memory byte array, standing in for package blockcache in tests that
// only need to exercise the fat package's own logic.
type memCache struct {
	blockSize int
	blocks    map[uint64]*memBuffer
	syncErr   error
	syncCalls int
}

func newMemCache(blockSize int) *memCache {
	return &memCache{blockSize: blockSize, blocks: make(map[uint64]*memBuffer)}
}

func (c *memCache) blockFor(blockNo uint64) *memBuffer {
	b, ok := c.blocks[blockNo]
	if !ok {
		b = &memBuffer{blockNo: blockNo, data: make([]byte, c.blockSize)}
		c.blocks[blockNo] = b
	}
	return b
}

func (c *memCache) Load(blockNo uint64) (fat.Buffer, error) { return c.blockFor(blockNo), nil }
func (c *memCache) Get(blockNo uint64) (fat.Buffer, error)  { return c.blockFor(blockNo), nil }
func (c *memCache) Release(fat.Buffer)                      {}
func (c *memCache) MarkDirty(fat.Buffer, string)             {}
func (c *memCache) SetUptodate(fat.Buffer)                   {}
func (c *memCache) Readahead(uint64, int)                    {}

func (c *memCache) Sync(bufs []fat.Buffer) error {
	c.syncCalls++
	return c.syncErr
}

func newTestVolume(variant fat.Variant, numFATs int, maxCluster uint32, opts ...fat.Option) (*fat.Volume, *memCache) {
	cache := newMemCache(512)
	params := fat.VolumeParams{
		Variant:       variant,
		BlockSize:     512,
		FirstFATBlock: 0,
		FATBlocks:     8,
		NumFATs:       numFATs,
		MaxCluster:    maxCluster,
	}
	vol, err := fat.NewVolume(params, cache, opts...)
	if err != nil {
		panic(err)
	}
	return vol, cache
}

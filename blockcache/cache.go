// Package blockcache implements a small reference-counted block buffer
// cache over a backend.Storage. It plays the role of the "block-buffer
// cache" collaborator that the fat package treats as external: the fat
// package has no knowledge of this package's existence, only of the
// fat.BlockCache/fat.Buffer interfaces that *Cache and *Buffer satisfy.
package blockcache

import (
	"fmt"
	"sync"

	"github.com/diskfs/go-fatfs/backend"
	"github.com/diskfs/go-fatfs/fat"
)

// Buffer is one pinned block's worth of bytes, plus its dirty/uptodate
// state. Callers obtain buffers from Cache.Load/Get and must return them
// via Cache.Release. Buffer implements fat.Buffer.
type Buffer struct {
	blockNo  uint64
	data     []byte
	dirty    bool
	uptodate bool
	owner    string
}

// BlockNo returns the absolute block number this buffer backs.
func (b *Buffer) BlockNo() uint64 { return b.blockNo }

// Data returns the buffer's backing bytes. Mutations are visible to every
// other holder of this buffer and are persisted on the next Sync.
func (b *Buffer) Data() []byte { return b.data }

type slot struct {
	buf      *Buffer
	refCount int
}

// Cache is a reference-counted, non-evicting block buffer cache backed by
// a backend.Storage. It does not evict: once a block has been loaded, its
// bytes stay resident for the lifetime of the Cache, matching a typical
// host buffer cache's behavior closely enough for the allocator's
// dirty-set discipline to exercise real pin/release traffic. Cache
// implements fat.BlockCache.
type Cache struct {
	mu        sync.Mutex
	store     backend.Storage
	writable  backend.WritableFile
	blockSize int
	blocks    map[uint64]*slot
}

// New creates a Cache reading and writing blockSize-sized blocks through
// store. If store was not opened for writing, Sync returns an error the
// first time it has dirty buffers to flush.
func New(store backend.Storage, blockSize int) *Cache {
	writable, _ := store.Writable()
	return &Cache{
		store:     store,
		writable:  writable,
		blockSize: blockSize,
		blocks:    make(map[uint64]*slot),
	}
}

func asBuffer(b fat.Buffer) *Buffer {
	buf, _ := b.(*Buffer)
	return buf
}

// Load pins the block, reading it from storage the first time it is seen.
func (c *Cache) Load(blockNo uint64) (fat.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.blocks[blockNo]; ok {
		s.refCount++
		return s.buf, nil
	}

	data := make([]byte, c.blockSize)
	if _, err := c.store.ReadAt(data, int64(blockNo)*int64(c.blockSize)); err != nil {
		return nil, fmt.Errorf("reading block %d: %w", blockNo, err)
	}
	buf := &Buffer{blockNo: blockNo, data: data, uptodate: true}
	c.blocks[blockNo] = &slot{buf: buf, refCount: 1}
	return buf, nil
}

// Get pins the block without reading it from storage, allocating a fresh
// zeroed buffer if the block has never been seen. Used by the mirror
// writer (C5) to obtain a destination buffer it is about to overwrite
// wholesale with memcpy'd bytes, never with a disk read.
func (c *Cache) Get(blockNo uint64) (fat.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.blocks[blockNo]; ok {
		s.refCount++
		return s.buf, nil
	}
	buf := &Buffer{blockNo: blockNo, data: make([]byte, c.blockSize)}
	c.blocks[blockNo] = &slot{buf: buf, refCount: 1}
	return buf, nil
}

// Release drops one pin on buf. It is a no-op if buf is nil.
func (c *Cache) Release(b fat.Buffer) {
	if b == nil {
		return
	}
	buf := asBuffer(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.blocks[buf.blockNo]; ok && s.refCount > 0 {
		s.refCount--
	}
}

// MarkDirty marks buf as modified against the given owner tag (mirrors
// mark_buffer_dirty_inode's "owner" argument; here it is just a label used
// for diagnostics, since this cache has no real inode/writeback machinery).
func (c *Cache) MarkDirty(b fat.Buffer, owner string) {
	buf := asBuffer(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	buf.dirty = true
	buf.owner = owner
}

// SetUptodate marks buf as not requiring a read from storage before use.
func (c *Cache) SetUptodate(b fat.Buffer) {
	buf := asBuffer(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	buf.uptodate = true
}

// Sync writes every dirty buffer in bufs to storage and clears the dirty
// flag on success.
func (c *Cache) Sync(bufs []fat.Buffer) error {
	for _, fb := range bufs {
		b := asBuffer(fb)
		c.mu.Lock()
		dirty := b.dirty
		c.mu.Unlock()
		if !dirty {
			continue
		}
		if c.writable == nil {
			return fmt.Errorf("block cache: backing store is read-only, cannot sync block %d", b.blockNo)
		}
		if _, err := c.writable.WriteAt(b.Data(), int64(b.blockNo)*int64(c.blockSize)); err != nil {
			return fmt.Errorf("writing block %d: %w", b.blockNo, err)
		}
		c.mu.Lock()
		b.dirty = false
		c.mu.Unlock()
	}
	return nil
}

// Readahead is a best-effort hint: it pins and immediately releases the
// requested run of blocks, populating the cache without handing buffers
// back to the caller.
func (c *Cache) Readahead(blockNo uint64, count int) {
	for i := 0; i < count; i++ {
		b, err := c.Load(blockNo + uint64(i))
		if err != nil {
			return
		}
		c.Release(b)
	}
}

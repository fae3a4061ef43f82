package blockcache_test

import (
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/diskfs/go-fatfs/backend"
	"github.com/diskfs/go-fatfs/blockcache"
	"github.com/diskfs/go-fatfs/fat"
	"github.com/diskfs/go-fatfs/testhelper"
)

// stubStorage adapts a testhelper.FileImpl, which stubs only the
// Reader/Writer half of backend.File, up to a full backend.Storage so it
// can inject arbitrary I/O failures under Cache without a real file.
type stubStorage struct {
	*testhelper.FileImpl
}

func (s stubStorage) Sys() (*os.File, error) { return nil, backend.ErrNotSuitable }
func (s stubStorage) Writable() (backend.WritableFile, error) {
	return writableFileImpl{s.FileImpl}, nil
}

type writableFileImpl struct {
	*testhelper.FileImpl
}

// memStorage is a minimal backend.Storage over an in-memory byte slice.
type memStorage struct {
	data     []byte
	readOnly bool
}

func (m *memStorage) Stat() (fs.FileInfo, error)        { return nil, nil }
func (m *memStorage) Read(b []byte) (int, error)        { return m.ReadAt(b, 0) }
func (m *memStorage) Close() error                      { return nil }
func (m *memStorage) Seek(int64, int) (int64, error)    { return 0, fmt.Errorf("not supported") }
func (m *memStorage) Sys() (*os.File, error)             { return nil, backend.ErrNotSuitable }

func (m *memStorage) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memStorage) WriteAt(p []byte, off int64) (int, error) {
	n := copy(m.data[off:], p)
	return n, nil
}

func (m *memStorage) Writable() (backend.WritableFile, error) {
	if m.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return m, nil
}

func newMemStorage(size int, readOnly bool) *memStorage {
	return &memStorage{data: make([]byte, size), readOnly: readOnly}
}

func TestLoadReadsThroughOnce(t *testing.T) {
	store := newMemStorage(4096, false)
	store.data[512] = 0xAB
	cache := blockcache.New(store, 512)

	buf, err := cache.Load(1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.Data()[0] != 0xAB {
		t.Errorf("Load(1): actual %#x instead of expected %#x", buf.Data()[0], 0xAB)
	}
}

func TestMarkDirtyThenSyncWrites(t *testing.T) {
	store := newMemStorage(1024, false)
	cache := blockcache.New(store, 512)

	buf, err := cache.Load(0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	buf.Data()[0] = 0x7F
	cache.MarkDirty(buf, "test")

	if err := cache.Sync([]fat.Buffer{buf}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if store.data[0] != 0x7F {
		t.Errorf("Sync: actual %#x instead of expected %#x written to storage", store.data[0], 0x7F)
	}
}

func TestLoadPropagatesReadError(t *testing.T) {
	wantErr := fmt.Errorf("injected read failure")
	store := stubStorage{&testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			return 0, wantErr
		},
	}}
	cache := blockcache.New(store, 512)

	if _, err := cache.Load(0); err == nil {
		t.Error("Load: expected injected read error, got nil")
	}
}

func TestSyncOnReadOnlyStoreErrors(t *testing.T) {
	store := newMemStorage(1024, true)
	cache := blockcache.New(store, 512)

	buf, err := cache.Load(0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cache.MarkDirty(buf, "test")

	if err := cache.Sync([]fat.Buffer{buf}); err == nil {
		t.Error("Sync on read-only store: expected error, got nil")
	}
}

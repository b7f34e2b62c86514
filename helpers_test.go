package exthashmap

import (
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/gostonefire/exthashmap/hashfunc"
	"github.com/gostonefire/exthashmap/pagestore"
	"github.com/stretchr/testify/require"
)

// identityHash - Uses the first byte of a key as its 8 bit digest
var identityHash = hashfunc.Func{
	F: func(key []byte) uint64 {
		if len(key) == 0 {
			return 0
		}
		return uint64(key[0])
	},
	Bits: 8,
}

// smallConfig - B=2, W=8, G0=0 with digests equal to the first key byte
func smallConfig() Config {
	conf := DefaultConfig()
	conf.BucketCapacity = 2
	conf.LowWaterMark = 1
	conf.HashFunction = identityHash
	return conf
}

func newTestMap(t *testing.T, conf Config) *ExtHashMap {
	m, _, err := NewExtHashMap(conf)
	require.NoError(t, err, "creates hash map")
	return m
}

func intKey(i int) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(i))
}

func intValue(i int) []byte {
	return []byte(fmt.Sprintf("value-%d", i))
}

// memStore - A pagestore.PageStore held in memory that can be told to fail
type memStore struct {
	mu        sync.Mutex
	dir       *pagestore.DirectoryImage
	pages     map[uint64]pagestore.PageImage
	buckets   map[uint64]pagestore.BucketImage
	failAfter int
	writes    int
}

var _ pagestore.PageStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		pages:     make(map[uint64]pagestore.PageImage),
		buckets:   make(map[uint64]pagestore.BucketImage),
		failAfter: -1,
	}
}

// failWritesAfter - Makes every write after the next n fail, a negative n disables failures
func (S *memStore) failWritesAfter(n int) {
	S.mu.Lock()
	defer S.mu.Unlock()
	S.failAfter = n
	S.writes = 0
}

func (S *memStore) write() error {
	if S.failAfter >= 0 {
		if S.writes >= S.failAfter {
			return fmt.Errorf("injected write failure")
		}
		S.writes++
	}
	return nil
}

func (S *memStore) LoadDirectory() (image pagestore.DirectoryImage, err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	if S.dir == nil {
		err = fmt.Errorf("no directory")
		return
	}
	image = *S.dir
	image.Pages = append([]uint64(nil), S.dir.Pages...)
	return
}

func (S *memStore) StoreDirectory(image pagestore.DirectoryImage) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	if err = S.write(); err != nil {
		return
	}
	image.Pages = append([]uint64(nil), image.Pages...)
	S.dir = &image
	return
}

func (S *memStore) LoadPage(id uint64) (image pagestore.PageImage, err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	image, ok := S.pages[id]
	if !ok {
		err = fmt.Errorf("no page %d", id)
	}
	return
}

func (S *memStore) StorePage(id uint64, image pagestore.PageImage) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	if err = S.write(); err != nil {
		return
	}
	image.Buckets = append([]uint64(nil), image.Buckets...)
	S.pages[id] = image
	return
}

func (S *memStore) DeletePage(id uint64) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	delete(S.pages, id)
	return
}

func (S *memStore) LoadBucket(id uint64) (image pagestore.BucketImage, err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	image, ok := S.buckets[id]
	if !ok {
		err = fmt.Errorf("no bucket %d", id)
	}
	return
}

func (S *memStore) StoreBucket(id uint64, image pagestore.BucketImage) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	if err = S.write(); err != nil {
		return
	}
	image.Entries = append([]pagestore.Entry(nil), image.Entries...)
	S.buckets[id] = image
	return
}

func (S *memStore) DeleteBucket(id uint64) (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	delete(S.buckets, id)
	return
}

func (S *memStore) Close() (err error) {
	return
}

func (S *memStore) Remove() (err error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	S.dir = nil
	S.pages = make(map[uint64]pagestore.PageImage)
	S.buckets = make(map[uint64]pagestore.BucketImage)
	return
}

func (S *memStore) records() (pages, buckets int) {
	S.mu.Lock()
	defer S.mu.Unlock()
	return len(S.pages), len(S.buckets)
}

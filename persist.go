package exthashmap

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/bucket"
	"github.com/gostonefire/exthashmap/internal/directory"
	"github.com/gostonefire/exthashmap/internal/page"
	"go.uber.org/zap"
)

// change - A structural change staged on copies. Nothing reachable from the map is modified until commit.
//
// New buckets and pages always get fresh identifiers. The change is made durable by replacing a single commit
// record: the directory if it was touched, otherwise the one page that was replaced under its own identifier.
type change struct {
	m              *ExtHashMap
	buckets        map[uint64]*bucket.Bucket
	pages          map[uint64]*page.Page
	dir            *directory.Directory
	commitPage     uint64
	createdBuckets []uint64
	createdPages   []uint64
	freedBuckets   []uint64
	freedPages     []uint64
	nextID         uint64
}

// newChange - Returns a pointer to an empty change
func (M *ExtHashMap) newChange() *change {
	return &change{
		m:       M,
		buckets: make(map[uint64]*bucket.Bucket),
		pages:   make(map[uint64]*page.Page),
		nextID:  M.nextID,
	}
}

// addBucket - Stages b under a fresh identifier and returns it
func (C *change) addBucket(b *bucket.Bucket) (id uint64) {
	id = C.nextID
	C.nextID++
	C.buckets[id] = b
	C.createdBuckets = append(C.createdBuckets, id)

	return
}

// addPage - Stages p under a fresh identifier and returns it
func (C *change) addPage(p *page.Page) (id uint64) {
	id = C.nextID
	C.nextID++
	C.pages[id] = p
	C.createdPages = append(C.createdPages, id)

	return
}

// replacePage - Stages p to replace the page with identifier id, making that page the commit record
func (C *change) replacePage(id uint64, p *page.Page) {
	C.pages[id] = p
	C.commitPage = id
}

// freeBucket - Marks the bucket with identifier id as superseded
func (C *change) freeBucket(id uint64) {
	C.freedBuckets = append(C.freedBuckets, id)
}

// freePage - Marks the page with identifier id as superseded
func (C *change) freePage(id uint64) {
	C.freedPages = append(C.freedPages, id)
}

// directory - Returns the staged copy of the directory, making the directory the commit record
func (C *change) directory() *directory.Directory {
	if C.dir == nil {
		C.dir = C.m.dir.Clone()
	}
	return C.dir
}

// bucketDepth - Returns the local depth of a staged or existing bucket
func (C *change) bucketDepth(id uint64) uint {
	if b, ok := C.buckets[id]; ok {
		return b.LocalDepth()
	}
	return C.m.buckets[id].LocalDepth()
}

// pageDepth - Returns the directory depth of a staged or existing page
func (C *change) pageDepth(id uint64) uint {
	if p, ok := C.pages[id]; ok {
		return p.DirectoryDepth()
	}
	return C.m.pages[id].DirectoryDepth()
}

// commit - Makes the change durable, if there is a page store, and installs it. On failure nothing is installed
// and a PersistenceFailure is returned.
func (M *ExtHashMap) commit(C *change) (err error) {
	if M.store != nil {
		if err = M.persist(C); err != nil {
			M.discard(C)
			err = PersistenceFailure{msg: "structural change aborted", err: err}
			return
		}
	}

	for id, b := range C.buckets {
		M.buckets[id] = b
	}
	for id, p := range C.pages {
		M.pages[id] = p
	}
	if C.dir != nil {
		M.dir = C.dir
	}
	for _, id := range C.freedBuckets {
		delete(M.buckets, id)
	}
	for _, id := range C.freedPages {
		delete(M.pages, id)
	}
	M.nextID = C.nextID
	M.modCount++

	if M.store != nil {
		M.release(C)
	}

	return
}

// persist - Stores created records and then the commit record
func (M *ExtHashMap) persist(C *change) (err error) {
	for _, id := range C.createdBuckets {
		if err = M.store.StoreBucket(id, C.buckets[id].Image()); err != nil {
			return
		}
	}
	for _, id := range C.createdPages {
		if err = M.store.StorePage(id, C.pages[id].Image()); err != nil {
			return
		}
	}

	switch {
	case C.dir != nil:
		err = M.store.StoreDirectory(M.directoryImage(C.dir, C.nextID))
	case C.commitPage != 0:
		err = M.store.StorePage(C.commitPage, C.pages[C.commitPage].Image())
	default:
		err = fmt.Errorf("change has no commit record")
	}

	return
}

// discard - Deletes whatever an aborted change may have stored, errors are ignored since the records are unreachable
func (M *ExtHashMap) discard(C *change) {
	for _, id := range C.createdBuckets {
		_ = M.store.DeleteBucket(id)
	}
	for _, id := range C.createdPages {
		_ = M.store.DeletePage(id)
	}
}

// release - Deletes superseded records after a commit. A failure leaves an unreachable record behind and is logged.
func (M *ExtHashMap) release(C *change) {
	for _, id := range C.freedBuckets {
		if err := M.store.DeleteBucket(id); err != nil {
			M.logger.Warn("unable to delete superseded bucket", zap.Uint64("bucket", id), zap.Error(err))
		}
	}
	for _, id := range C.freedPages {
		if err := M.store.DeletePage(id); err != nil {
			M.logger.Warn("unable to delete superseded page", zap.Uint64("page", id), zap.Error(err))
		}
	}
}

// writable - Returns b itself if the map is held in memory only, otherwise a copy to modify until it is persisted
func (M *ExtHashMap) writable(b *bucket.Bucket) *bucket.Bucket {
	if M.store == nil {
		return b
	}
	return b.Clone()
}

// replaceBucket - Persists b under the identifier of the bucket it replaces and installs it
func (M *ExtHashMap) replaceBucket(id uint64, b *bucket.Bucket) (err error) {
	if M.store != nil {
		if err = M.store.StoreBucket(id, b.Image()); err != nil {
			err = PersistenceFailure{msg: fmt.Sprintf("unable to store bucket %d", id), err: err}
			return
		}
	}

	M.buckets[id] = b
	M.modCount++

	return
}

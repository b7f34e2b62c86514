package exthashmap

import (
	"github.com/gostonefire/exthashmap/internal/utils"
)

// Records - Is used to iterate over all records one by one. Records are visited page by page in directory order
// and bucket by bucket in page order. Any modification of the hash map after the iterator was created makes Next
// return an error of type ConcurrentModification.
type Records struct {
	m         *ExtHashMap
	modCount  uint64
	bucketIds []uint64
	bucket    int
	entry     int
}

// Iter - Returns a pointer to a new Records iterator positioned before the first record
func (M *ExtHashMap) Iter() *Records {
	M.mu.RLock()
	defer M.mu.RUnlock()

	var bucketIds []uint64
	for _, pageId := range M.dir.Distinct(M.pageDepth) {
		bucketIds = append(bucketIds, M.pages[pageId].Distinct(M.bucketDepth)...)
	}

	return &Records{m: M, modCount: M.modCount, bucketIds: bucketIds}
}

// HasNext - Returns true if there are more records to be fetched from a call to Next.
// It also returns true once the hash map has been modified, so that Next can report it.
func (R *Records) HasNext() bool {
	R.m.mu.RLock()
	defer R.m.mu.RUnlock()

	if R.modCount != R.m.modCount {
		return true
	}

	return R.advance()
}

// Next - Returns the next record.
//
// It returns:
//   - key and value are copies of the next record
//   - err is of type ConcurrentModification if the map changed, or NoRecordFound if there are no more records
func (R *Records) Next() (key, value []byte, err error) {
	R.m.mu.RLock()
	defer R.m.mu.RUnlock()

	if R.modCount != R.m.modCount {
		err = ConcurrentModification{}
		return
	}
	if !R.advance() {
		err = NoRecordFound{}
		return
	}

	e := R.m.buckets[R.bucketIds[R.bucket]].Entries()[R.entry]
	key, value = utils.CopyBytes(e.Key), utils.CopyBytes(e.Value)
	R.entry++

	return
}

// advance - Moves past exhausted buckets, returns true if positioned on a record
func (R *Records) advance() bool {
	for ; R.bucket < len(R.bucketIds); R.bucket++ {
		if R.entry < R.m.buckets[R.bucketIds[R.bucket]].Len() {
			return true
		}
		R.entry = 0
	}

	return false
}

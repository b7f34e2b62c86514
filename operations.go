package exthashmap

import (
	"github.com/gostonefire/exthashmap/internal/utils"
)

// Insert - Adds a record. If the key is already present the configured DuplicateKeyPolicy decides whether an
// error of type DuplicateKey is returned or the value is overwritten.
//   - key is the identifier of a record, any length including zero
//   - value is the data stored along with the key
//
// It returns:
//   - err is either of type DuplicateKey, DigestExhausted, PersistenceFailure or nil if the record was stored
func (M *ExtHashMap) Insert(key, value []byte) (err error) {
	M.mu.Lock()
	defer M.mu.Unlock()

	err = M.insert(key, value)

	return
}

// Get - Gets the value of the record identified by key.
//
// It returns:
//   - value is a copy of the stored value if found, if not found an error of type NoRecordFound is returned.
//   - err is either of type NoRecordFound or nil
func (M *ExtHashMap) Get(key []byte) (value []byte, err error) {
	M.mu.RLock()
	defer M.mu.RUnlock()

	digest := M.digestOf(key)
	v, ok := M.locate(digest).bucket.Get(key, digest)
	if !ok {
		err = NoRecordFound{}
		return
	}

	value = utils.CopyBytes(v)

	return
}

// Contains - Returns true if a record with key exists
func (M *ExtHashMap) Contains(key []byte) bool {
	M.mu.RLock()
	defer M.mu.RUnlock()

	digest := M.digestOf(key)

	return M.locate(digest).bucket.Find(key, digest) >= 0
}

// Remove - Returns the value of the record identified by key and removes the record from the hash map.
// With shrinking enabled buckets, pages and the directory are merged afterwards where possible.
// If such a merge can not be stored the record is still removed, and both value and a PersistenceFailure are
// returned.
//
// It returns:
//   - value is the value of the removed record
//   - err is either of type NoRecordFound, PersistenceFailure or nil
func (M *ExtHashMap) Remove(key []byte) (value []byte, err error) {
	M.mu.Lock()
	defer M.mu.Unlock()

	digest := M.digestOf(key)
	loc := M.locate(digest)
	i := loc.bucket.Find(key, digest)
	if i < 0 {
		err = NoRecordFound{}
		return
	}

	b := M.writable(loc.bucket)
	entry := b.RemoveAt(i)
	if err = M.replaceBucket(loc.bucketId, b); err != nil {
		return
	}
	loc.page.AddCount(-1)
	M.count--
	value = entry.Value

	if M.settings.shrinkEnabled && b.Len() <= M.settings.lowWaterMark {
		if err = M.shrink(digest); err != nil {
			err = PersistenceFailure{msg: "record removed but merging afterwards failed", err: err}
		}
	}

	return
}

// Len - Returns the number of records in the hash map
func (M *ExtHashMap) Len() int {
	M.mu.RLock()
	defer M.mu.RUnlock()

	return M.count
}

// IsEmpty - Returns true if the hash map holds no records
func (M *ExtHashMap) IsEmpty() bool {
	return M.Len() == 0
}

// Stat - Walks through every page and bucket and produces a HashMapStat struct with information.
//   - includeDistribution set to true will include a slice with the number of records per bucket, false will set HashMapStat.BucketDistribution to nil.
func (M *ExtHashMap) Stat(includeDistribution bool) (hashMapStat *HashMapStat, err error) {
	M.mu.RLock()
	defer M.mu.RUnlock()

	hms := HashMapStat{
		Records:     int64(M.count),
		GlobalDepth: M.dir.GlobalDepth(),
	}

	for _, pageId := range M.dir.Distinct(M.pageDepth) {
		p := M.pages[pageId]
		hms.Pages++
		hms.MaxPageLocalDepth = max(hms.MaxPageLocalDepth, p.LocalDepth())

		for _, bucketId := range p.Distinct(M.bucketDepth) {
			b := M.buckets[bucketId]
			hms.Buckets++
			hms.MaxBucketLocalDepth = max(hms.MaxBucketLocalDepth, b.LocalDepth())
			if includeDistribution {
				hms.BucketDistribution = append(hms.BucketDistribution, int64(b.Len()))
			}
		}
	}

	if hms.Buckets > 0 {
		hms.AverageBucketFillFactor = float64(hms.Records) / float64(hms.Buckets*int64(M.settings.bucketCapacity))
	}

	hashMapStat = &hms

	return
}

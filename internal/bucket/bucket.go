// Package bucket implements the leaf container of the extendible hash index.
//
// A bucket holds at most capacity entries. Its local depth is the number of low order digest bits that all of
// its entries share, that common bit pattern is the bucket's signature within its page.
package bucket

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/utils"
	"github.com/gostonefire/exthashmap/pagestore"
)

// Bucket - Fixed capacity list of entries with a local depth
type Bucket struct {
	entries    []pagestore.Entry
	capacity   int
	localDepth uint
}

// New - Returns a pointer to a new empty bucket
func New(capacity int, localDepth uint) *Bucket {
	return &Bucket{
		entries:    make([]pagestore.Entry, 0, capacity),
		capacity:   capacity,
		localDepth: localDepth,
	}
}

// FromImage - Returns a pointer to a bucket restored from its persisted image.
// It fails if the image holds more entries than capacity permits.
func FromImage(capacity int, image pagestore.BucketImage) (bucket *Bucket, err error) {
	if len(image.Entries) > capacity {
		err = fmt.Errorf("bucket image holds %d entries, capacity is %d", len(image.Entries), capacity)
		return
	}

	bucket = New(capacity, image.LocalDepth)
	bucket.entries = append(bucket.entries, image.Entries...)

	return
}

// Image - Returns the persistable image of the bucket
func (B *Bucket) Image() pagestore.BucketImage {
	entries := make([]pagestore.Entry, len(B.entries))
	_ = copy(entries, B.entries)

	return pagestore.BucketImage{LocalDepth: B.localDepth, Entries: entries}
}

// Clone - Returns a copy of the bucket that can be modified without affecting the original.
// Keys and values are shared since they are never modified in place.
func (B *Bucket) Clone() *Bucket {
	c := New(B.capacity, B.localDepth)
	c.entries = append(c.entries, B.entries...)
	return c
}

// Len - Returns number of entries in the bucket
func (B *Bucket) Len() int {
	return len(B.entries)
}

// Capacity - Returns max number of entries
func (B *Bucket) Capacity() int {
	return B.capacity
}

// LocalDepth - Returns the number of low order digest bits identifying the bucket
func (B *Bucket) LocalDepth() uint {
	return B.localDepth
}

// IsFull - Returns true if no more entries can be added
func (B *Bucket) IsFull() bool {
	return len(B.entries) >= B.capacity
}

// IsEmpty - Returns true if the bucket holds no entries
func (B *Bucket) IsEmpty() bool {
	return len(B.entries) == 0
}

// Entries - Returns the entries of the bucket. The returned slice must not be modified.
func (B *Bucket) Entries() []pagestore.Entry {
	return B.entries
}

// Find - Returns the index of the entry with matching key, or -1 if there is none
func (B *Bucket) Find(key []byte, digest uint64) int {
	for i := range B.entries {
		if B.entries[i].Digest == digest && utils.IsEqual(B.entries[i].Key, key) {
			return i
		}
	}

	return -1
}

// Get - Returns the value of the entry with matching key
func (B *Bucket) Get(key []byte, digest uint64) (value []byte, ok bool) {
	i := B.Find(key, digest)
	if i < 0 {
		return
	}

	return B.entries[i].Value, true
}

// Put - Appends entry to the bucket. It returns false if the bucket is full.
// The caller is responsible for the key not already being present.
func (B *Bucket) Put(entry pagestore.Entry) bool {
	if B.IsFull() {
		return false
	}
	B.entries = append(B.entries, entry)

	return true
}

// Update - Replaces the value of entry number i
func (B *Bucket) Update(i int, value []byte) {
	B.entries[i].Value = value
}

// RemoveAt - Removes entry number i and returns it. Order of remaining entries is not preserved.
func (B *Bucket) RemoveAt(i int) (entry pagestore.Entry) {
	entry = B.entries[i]
	last := len(B.entries) - 1
	B.entries[i] = B.entries[last]
	B.entries[last] = pagestore.Entry{}
	B.entries = B.entries[:last]

	return
}

// SameDigest - Returns true if every entry in the bucket has exactly the given digest.
// An overflowing bucket for which this holds can never be resolved by splitting.
func (B *Bucket) SameDigest(digest uint64) bool {
	for i := range B.entries {
		if B.entries[i].Digest != digest {
			return false
		}
	}

	return true
}

// DiffersAt - Returns true if the entries, together with the extra digest, do not all agree on digest bit number bit
func (B *Bucket) DiffersAt(bit uint, digest uint64) bool {
	want := utils.BitAt(digest, bit)
	for i := range B.entries {
		if utils.BitAt(B.entries[i].Digest, bit) != want {
			return true
		}
	}

	return false
}

// Partition - Distributes the entries over two new buckets by digest bit number bit, keeping the local depth.
// Entries with the bit cleared go to zero, the others to one.
func (B *Bucket) Partition(bit uint) (zero, one *Bucket) {
	zero = New(B.capacity, B.localDepth)
	one = New(B.capacity, B.localDepth)
	for _, e := range B.entries {
		if utils.BitAt(e.Digest, bit) == 0 {
			zero.entries = append(zero.entries, e)
		} else {
			one.entries = append(one.entries, e)
		}
	}

	return
}

// Split - Splits the bucket on its next unused low order bit. Both returned buckets have a local depth one
// higher than the original, zero holds entries with that bit cleared and one those with it set.
func (B *Bucket) Split() (zero, one *Bucket) {
	zero, one = B.Partition(B.localDepth)
	zero.localDepth++
	one.localDepth++

	return
}

// Merge - Combines the bucket with its buddy into a new bucket with a local depth one lower.
// It fails if depths differ, if there is no lower depth to merge to, or if the entries would not fit.
func (B *Bucket) Merge(buddy *Bucket) (merged *Bucket, err error) {
	if B.localDepth != buddy.localDepth {
		err = fmt.Errorf("buckets of unequal local depth (%d, %d) are not buddies", B.localDepth, buddy.localDepth)
		return
	}
	if B.localDepth == 0 {
		err = fmt.Errorf("bucket at local depth 0 has no buddy")
		return
	}
	if len(B.entries)+len(buddy.entries) > B.capacity {
		err = fmt.Errorf("merged bucket would hold %d entries, capacity is %d", len(B.entries)+len(buddy.entries), B.capacity)
		return
	}

	merged = New(B.capacity, B.localDepth-1)
	merged.entries = append(merged.entries, B.entries...)
	merged.entries = append(merged.entries, buddy.entries...)

	return
}

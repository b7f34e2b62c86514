// Package page implements the middle level of the extendible hash index: an array of bucket identifiers
// indexed by the low order bits of a digest.
package page

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/utils"
	"github.com/gostonefire/exthashmap/pagestore"
)

// Page - Array of 2^localDepth bucket references
//   - localDepth is the number of low order digest bits used to index buckets (L_p)
//   - directoryDepth is the number of high order digest bits shared by every directory slot referencing the page (D_pg)
//   - count is the number of entries held by all buckets of the page
type Page struct {
	buckets        []uint64
	localDepth     uint
	directoryDepth uint
	count          int
}

// New - Returns a pointer to a new page with a single slot referencing bucketId
func New(bucketId uint64, directoryDepth uint) *Page {
	return &Page{
		buckets:        []uint64{bucketId},
		directoryDepth: directoryDepth,
	}
}

// FromImage - Returns a pointer to a page restored from its persisted image.
// The entry count is not part of the image and has to be set by the caller using AddCount.
func FromImage(image pagestore.PageImage) (page *Page, err error) {
	if image.LocalDepth > 63 || len(image.Buckets) != 1<<image.LocalDepth {
		err = fmt.Errorf("page image has %d slots, expected 2^%d", len(image.Buckets), image.LocalDepth)
		return
	}

	buckets := make([]uint64, len(image.Buckets))
	_ = copy(buckets, image.Buckets)
	page = &Page{
		buckets:        buckets,
		localDepth:     image.LocalDepth,
		directoryDepth: image.DirectoryDepth,
	}

	return
}

// Image - Returns the persistable image of the page
func (P *Page) Image() pagestore.PageImage {
	buckets := make([]uint64, len(P.buckets))
	_ = copy(buckets, P.buckets)

	return pagestore.PageImage{
		LocalDepth:     P.localDepth,
		DirectoryDepth: P.directoryDepth,
		Buckets:        buckets,
	}
}

// Clone - Returns a deep copy of the page
func (P *Page) Clone() *Page {
	buckets := make([]uint64, len(P.buckets))
	_ = copy(buckets, P.buckets)

	return &Page{
		buckets:        buckets,
		localDepth:     P.localDepth,
		directoryDepth: P.directoryDepth,
		count:          P.count,
	}
}

// SlotFor - Returns the slot index for digest, i.e. its localDepth lowest bits
func (P *Page) SlotFor(digest uint64) int {
	return int(utils.LowBits(digest, P.localDepth))
}

// BucketAt - Returns the bucket identifier in slot i.
// An index outside the page is a broken invariant and panics.
func (P *Page) BucketAt(i int) uint64 {
	if i < 0 || i >= len(P.buckets) {
		panic(fmt.Sprintf("page slot %d out of range [0,%d)", i, len(P.buckets)))
	}
	return P.buckets[i]
}

// Size - Returns number of slots, always 2^localDepth
func (P *Page) Size() int {
	return len(P.buckets)
}

// LocalDepth - Returns the number of low order bits used to index buckets
func (P *Page) LocalDepth() uint {
	return P.localDepth
}

// DirectoryDepth - Returns the number of high order bits identifying the page in the directory
func (P *Page) DirectoryDepth() uint {
	return P.directoryDepth
}

// SetDirectoryDepth - Sets the number of high order bits identifying the page in the directory
func (P *Page) SetDirectoryDepth(depth uint) {
	P.directoryDepth = depth
}

// Count - Returns number of entries in the buckets of the page
func (P *Page) Count() int {
	return P.count
}

// AddCount - Adjusts the entry count by delta
func (P *Page) AddCount(delta int) {
	P.count += delta
}

// Double - Doubles the slot array by one more low order bit. Slot i+2^L_p references the same bucket as
// slot i, so no bucket changes identity.
func (P *Page) Double() {
	P.buckets = append(P.buckets, P.buckets...)
	P.localDepth++
}

// CanHalve - Returns true if every referenced bucket has a local depth lower than the page's local depth
//   - depthOf returns the local depth of a bucket given its identifier
func (P *Page) CanHalve(depthOf func(bucketId uint64) uint) bool {
	if P.localDepth == 0 {
		return false
	}
	for _, id := range P.buckets {
		if depthOf(id) >= P.localDepth {
			return false
		}
	}

	return true
}

// Halve - Drops the highest low order bit of the slot array. It fails without changing anything if some
// bucket still needs that bit.
func (P *Page) Halve(depthOf func(bucketId uint64) uint) (err error) {
	if !P.CanHalve(depthOf) {
		err = fmt.Errorf("page at local depth %d can not be halved", P.localDepth)
		return
	}

	half := len(P.buckets) / 2
	buckets := make([]uint64, half)
	_ = copy(buckets, P.buckets[:half])
	P.buckets = buckets
	P.localDepth--

	return
}

// Repoint - Makes every slot whose depth lowest bits equal signature reference bucketId
func (P *Page) Repoint(signature uint64, depth uint, bucketId uint64) {
	step := 1 << depth
	for i := int(signature); i < len(P.buckets); i += step {
		P.buckets[i] = bucketId
	}
}

// Distinct - Returns every referenced bucket identifier exactly once, in slot order of first occurrence.
// A bucket with local depth L first occurs in the slot equal to its signature, which is below 2^L.
func (P *Page) Distinct(depthOf func(bucketId uint64) uint) (bucketIds []uint64) {
	for i, id := range P.buckets {
		if i < 1<<depthOf(id) {
			bucketIds = append(bucketIds, id)
		}
	}

	return
}

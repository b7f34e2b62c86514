// Package directory implements the top level of the extendible hash index: an array of page identifiers
// indexed by the high order bits of a digest.
package directory

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/utils"
)

// Directory - Array of 2^globalDepth page references over digests that are width bits wide
type Directory struct {
	pages       []uint64
	globalDepth uint
	width       uint
}

// New - Returns a pointer to a new directory over the given page references.
// The number of references must be a power of two not needing more than width bits.
func New(width uint, pageIds []uint64) (directory *Directory, err error) {
	n := len(pageIds)
	if n == 0 || n&(n-1) != 0 {
		err = fmt.Errorf("directory size %d is not a power of two", n)
		return
	}

	var globalDepth uint
	for 1<<globalDepth < n {
		globalDepth++
	}
	if globalDepth > width {
		err = fmt.Errorf("global depth %d exceeds digest width %d", globalDepth, width)
		return
	}

	pages := make([]uint64, n)
	_ = copy(pages, pageIds)
	directory = &Directory{pages: pages, globalDepth: globalDepth, width: width}

	return
}

// Clone - Returns a deep copy of the directory
func (D *Directory) Clone() *Directory {
	pages := make([]uint64, len(D.pages))
	_ = copy(pages, D.pages)

	return &Directory{pages: pages, globalDepth: D.globalDepth, width: D.width}
}

// Pages - Returns a copy of the page reference array
func (D *Directory) Pages() []uint64 {
	pages := make([]uint64, len(D.pages))
	_ = copy(pages, D.pages)
	return pages
}

// SlotFor - Returns the slot index for digest, i.e. its globalDepth highest bits
func (D *Directory) SlotFor(digest uint64) int {
	return int(utils.TopBits(digest, D.width, D.globalDepth))
}

// PageAt - Returns the page identifier in slot i.
// An index outside the directory is a broken invariant and panics.
func (D *Directory) PageAt(i int) uint64 {
	if i < 0 || i >= len(D.pages) {
		panic(fmt.Sprintf("directory slot %d out of range [0,%d)", i, len(D.pages)))
	}
	return D.pages[i]
}

// Size - Returns number of slots, always 2^globalDepth
func (D *Directory) Size() int {
	return len(D.pages)
}

// GlobalDepth - Returns the number of high order bits used to index pages
func (D *Directory) GlobalDepth() uint {
	return D.globalDepth
}

// Width - Returns the digest width
func (D *Directory) Width() uint {
	return D.width
}

// Double - Doubles the slot array by one more high order bit, old slot i becomes slots 2i and 2i+1 which both
// reference the same page. It fails if all digest bits are already in use.
func (D *Directory) Double() (err error) {
	if D.globalDepth >= D.width {
		err = fmt.Errorf("global depth %d already uses the whole digest width", D.globalDepth)
		return
	}

	pages := make([]uint64, 2*len(D.pages))
	for i, id := range D.pages {
		pages[2*i] = id
		pages[2*i+1] = id
	}
	D.pages = pages
	D.globalDepth++

	return
}

// CanHalve - Returns true if every referenced page has a directory depth lower than the global depth
//   - depthOf returns the directory depth of a page given its identifier
func (D *Directory) CanHalve(depthOf func(pageId uint64) uint) bool {
	if D.globalDepth == 0 {
		return false
	}
	for _, id := range D.pages {
		if depthOf(id) >= D.globalDepth {
			return false
		}
	}

	return true
}

// Halve - Drops the lowest of the high order bits. It fails without changing anything if some page still
// needs that bit.
func (D *Directory) Halve(depthOf func(pageId uint64) uint) (err error) {
	if !D.CanHalve(depthOf) {
		err = fmt.Errorf("directory at global depth %d can not be halved", D.globalDepth)
		return
	}

	pages := make([]uint64, len(D.pages)/2)
	for i := range pages {
		pages[i] = D.pages[2*i]
	}
	D.pages = pages
	D.globalDepth--

	return
}

// Range - Returns the slot range [start, end) of all slots whose depth highest bits equal prefix
func (D *Directory) Range(prefix uint64, depth uint) (start, end int) {
	shift := D.globalDepth - depth
	start = int(prefix << shift)
	end = int((prefix + 1) << shift)

	return
}

// SetRange - Makes every slot whose depth highest bits equal prefix reference pageId
func (D *Directory) SetRange(prefix uint64, depth uint, pageId uint64) {
	start, end := D.Range(prefix, depth)
	for i := start; i < end; i++ {
		D.pages[i] = pageId
	}
}

// Distinct - Returns every referenced page identifier exactly once, in slot order.
// A page with directory depth d occupies 2^(globalDepth-d) consecutive slots starting at a slot whose
// globalDepth-d lowest bits are zero.
func (D *Directory) Distinct(depthOf func(pageId uint64) uint) (pageIds []uint64) {
	for i, id := range D.pages {
		if utils.LowBits(uint64(i), D.globalDepth-depthOf(id)) == 0 {
			pageIds = append(pageIds, id)
		}
	}

	return
}

package exthashmap

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/utils"
)

// Verify - Walks the whole structure and checks that directory, pages and buckets are consistent with each other
// and with the digests of the stored keys. It returns an error describing the first inconsistency found.
func (M *ExtHashMap) Verify() (err error) {
	M.mu.RLock()
	defer M.mu.RUnlock()

	return M.verify()
}

// verify - Does the work of Verify without locking
func (M *ExtHashMap) verify() (err error) {
	width := M.settings.width
	g := M.dir.GlobalDepth()
	if g < M.settings.initialGlobalDepth || g > width {
		return fmt.Errorf("global depth %d outside [%d,%d]", g, M.settings.initialGlobalDepth, width)
	}
	if M.dir.Size() != 1<<g {
		return fmt.Errorf("directory has %d slots at global depth %d", M.dir.Size(), g)
	}

	owner := make(map[uint64]uint64)
	seen := make(map[string]struct{})
	total := 0

	for slot := 0; slot < M.dir.Size(); slot++ {
		pageId := M.dir.PageAt(slot)
		p, ok := M.pages[pageId]
		if !ok {
			return fmt.Errorf("directory slot %d references missing page %d", slot, pageId)
		}

		d := p.DirectoryDepth()
		if d > g {
			return fmt.Errorf("page %d has directory depth %d above global depth %d", pageId, d, g)
		}

		// Every page occupies one aligned run of 2^(g-d) slots
		start := slot &^ (1<<(g-d) - 1)
		if M.dir.PageAt(start) != pageId {
			return fmt.Errorf("page %d in slot %d is missing from slot %d", pageId, slot, start)
		}
		if slot != start {
			continue
		}
		for i := start; i < start+1<<(g-d); i++ {
			if M.dir.PageAt(i) != pageId {
				return fmt.Errorf("page %d does not cover slot %d", pageId, i)
			}
		}

		n, err := M.verifyPage(pageId, uint64(slot>>(g-d)), owner, seen)
		if err != nil {
			return err
		}
		if n != p.Count() {
			return fmt.Errorf("page %d counts %d entries, buckets hold %d", pageId, p.Count(), n)
		}
		total += n
	}

	if total != M.count {
		return fmt.Errorf("map counts %d entries, buckets hold %d", M.count, total)
	}

	return
}

// verifyPage - Checks one page and its buckets, returns the number of entries found
//   - prefix is the common high order bits of the directory slots referencing the page
//   - owner maps bucket identifiers to the page referencing them, buckets must not be shared between pages
//   - seen holds every key found so far, keys must be unique over the whole map
func (M *ExtHashMap) verifyPage(pageId, prefix uint64, owner map[uint64]uint64, seen map[string]struct{}) (n int, err error) {
	width := M.settings.width
	p := M.pages[pageId]
	lp, d := p.LocalDepth(), p.DirectoryDepth()
	if lp > width {
		err = fmt.Errorf("page %d has local depth %d above digest width %d", pageId, lp, width)
		return
	}
	if p.Size() != 1<<lp {
		err = fmt.Errorf("page %d has %d slots at local depth %d", pageId, p.Size(), lp)
		return
	}

	for slot := 0; slot < p.Size(); slot++ {
		bucketId := p.BucketAt(slot)
		b, ok := M.buckets[bucketId]
		if !ok {
			err = fmt.Errorf("page %d slot %d references missing bucket %d", pageId, slot, bucketId)
			return
		}

		lb := b.LocalDepth()
		if lb > lp {
			err = fmt.Errorf("bucket %d has local depth %d above page local depth %d", bucketId, lb, lp)
			return
		}

		signature := utils.LowBits(uint64(slot), lb)
		if p.BucketAt(int(signature)) != bucketId {
			err = fmt.Errorf("bucket %d in page %d slot %d is missing from slot %d", bucketId, pageId, slot, signature)
			return
		}
		if uint64(slot) != signature {
			continue
		}
		for i := slot; i < p.Size(); i += 1 << lb {
			if p.BucketAt(i) != bucketId {
				err = fmt.Errorf("bucket %d does not cover page %d slot %d", bucketId, pageId, i)
				return
			}
		}

		if other, ok := owner[bucketId]; ok && other != pageId {
			err = fmt.Errorf("bucket %d is referenced by pages %d and %d", bucketId, other, pageId)
			return
		}
		owner[bucketId] = pageId

		if b.Len() > M.settings.bucketCapacity {
			err = fmt.Errorf("bucket %d holds %d entries, capacity is %d", bucketId, b.Len(), M.settings.bucketCapacity)
			return
		}

		for _, e := range b.Entries() {
			switch {
			case e.Digest != M.digestOf(e.Key):
				err = fmt.Errorf("bucket %d holds key %x with stale digest %#x", bucketId, e.Key, e.Digest)
			case utils.LowBits(e.Digest, lb) != signature:
				err = fmt.Errorf("bucket %d holds digest %#x not matching signature %#x", bucketId, e.Digest, signature)
			case utils.TopBits(e.Digest, width, d) != prefix:
				err = fmt.Errorf("page %d holds digest %#x not matching prefix %#x", pageId, e.Digest, prefix)
			}
			if err != nil {
				return
			}

			if _, dup := seen[string(e.Key)]; dup {
				err = fmt.Errorf("key %x is stored more than once", e.Key)
				return
			}
			seen[string(e.Key)] = struct{}{}
			n++
		}
	}

	return
}

package exthashmap

import (
	"github.com/gostonefire/exthashmap/internal/bucket"
	"github.com/gostonefire/exthashmap/internal/page"
	"github.com/gostonefire/exthashmap/internal/utils"
	"go.uber.org/zap"
)

// shrink - Merges around digest for as long as something can be merged. Each merge is committed on its own,
// so a failing merge leaves the map valid with every merge before it in place.
func (M *ExtHashMap) shrink(digest uint64) (err error) {
	merged := true
	for merged {
		if merged, err = M.shrinkStep(digest); err != nil {
			M.logger.Warn("merge aborted", zap.Error(err))
			return
		}
	}

	return
}

// shrinkStep - Makes at most one merge: of the bucket with its buddy, of the page with its buddy page, or of the
// directory halves
func (M *ExtHashMap) shrinkStep(digest uint64) (merged bool, err error) {
	loc := M.locate(digest)

	if buddyId, ok := M.bucketBuddy(loc); ok {
		return true, M.mergeBuckets(loc, buddyId)
	}
	if buddyId, ok := M.pageBuddy(loc); ok {
		return true, M.mergePages(loc, buddyId)
	}
	if M.dir.GlobalDepth() > M.settings.initialGlobalDepth && M.dir.CanHalve(M.pageDepth) {
		return true, M.halveDirectory()
	}

	return
}

// bucketBuddy - Returns the buddy of the bucket at loc if the two can be merged
func (M *ExtHashMap) bucketBuddy(loc location) (buddyId uint64, ok bool) {
	b := loc.bucket
	lb := b.LocalDepth()
	if lb == 0 || b.Len() > M.settings.lowWaterMark {
		return
	}

	buddyId = loc.page.BucketAt(int(utils.LowBits(loc.digest, lb) ^ 1<<(lb-1)))
	buddy := M.buckets[buddyId]
	ok = buddy.LocalDepth() == lb && b.Len()+buddy.Len() <= M.settings.bucketCapacity

	return
}

// mergeBuckets - Replaces the bucket at loc and its buddy by one bucket a local depth lower and halves the page
// for as long as no bucket needs its highest bit. The page is the commit record.
func (M *ExtHashMap) mergeBuckets(loc location, buddyId uint64) (err error) {
	C := M.newChange()

	b, err := loc.bucket.Merge(M.buckets[buddyId])
	if err != nil {
		return
	}

	id := C.addBucket(b)
	p := loc.page.Clone()
	p.Repoint(utils.LowBits(loc.digest, b.LocalDepth()), b.LocalDepth(), id)
	for p.CanHalve(C.bucketDepth) {
		_ = p.Halve(C.bucketDepth)
	}

	C.replacePage(loc.pageId, p)
	C.freeBucket(loc.bucketId)
	C.freeBucket(buddyId)

	if err = M.commit(C); err != nil {
		return
	}

	M.logger.Debug("buckets merged",
		zap.Uint64("bucket", loc.bucketId),
		zap.Uint64("buddy", buddyId),
		zap.Uint64("merged", id),
		zap.Uint("localDepth", b.LocalDepth()),
		zap.Uint("pageLocalDepth", p.LocalDepth()),
	)

	return
}

// pageBuddy - Returns the buddy of the page at loc if the two can be merged. Pages never merge below the initial
// global depth.
func (M *ExtHashMap) pageBuddy(loc location) (buddyId uint64, ok bool) {
	depth := loc.page.DirectoryDepth()
	if depth <= M.settings.initialGlobalDepth {
		return
	}

	prefix := utils.TopBits(loc.digest, M.settings.width, depth)
	start, _ := M.dir.Range(prefix^1, depth)
	buddyId = M.dir.PageAt(start)
	buddy := M.pages[buddyId]
	ok = buddy.DirectoryDepth() == depth && loc.page.Count()+buddy.Count() <= M.settings.bucketCapacity

	return
}

// mergePages - Replaces the page at loc and its buddy by one page, a directory depth lower, holding every entry of
// both in a single bucket. The directory is halved for as long as no page needs its lowest bit. The directory is
// the commit record.
func (M *ExtHashMap) mergePages(loc location, buddyId uint64) (err error) {
	C := M.newChange()
	depth := loc.page.DirectoryDepth()

	b := bucket.New(M.settings.bucketCapacity, 0)
	for _, pageId := range []uint64{loc.pageId, buddyId} {
		p := M.pages[pageId]
		for _, bucketId := range p.Distinct(M.bucketDepth) {
			for _, e := range M.buckets[bucketId].Entries() {
				_ = b.Put(e)
			}
			C.freeBucket(bucketId)
		}
		C.freePage(pageId)
	}

	p := page.New(C.addBucket(b), depth-1)
	p.AddCount(b.Len())
	id := C.addPage(p)

	dir := C.directory()
	dir.SetRange(utils.TopBits(loc.digest, M.settings.width, depth-1), depth-1, id)
	for dir.GlobalDepth() > M.settings.initialGlobalDepth && dir.CanHalve(C.pageDepth) {
		_ = dir.Halve(C.pageDepth)
	}

	if err = M.commit(C); err != nil {
		return
	}

	M.logger.Debug("pages merged",
		zap.Uint64("page", loc.pageId),
		zap.Uint64("buddy", buddyId),
		zap.Uint64("merged", id),
		zap.Uint("directoryDepth", depth-1),
		zap.Uint("globalDepth", dir.GlobalDepth()),
	)

	return
}

// halveDirectory - Drops the lowest directory bit. The directory is the commit record.
func (M *ExtHashMap) halveDirectory() (err error) {
	C := M.newChange()
	dir := C.directory()
	if err = dir.Halve(C.pageDepth); err != nil {
		return
	}

	if err = M.commit(C); err != nil {
		return
	}

	M.logger.Debug("directory halved", zap.Uint("globalDepth", dir.GlobalDepth()))

	return
}

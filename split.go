package exthashmap

import (
	"fmt"

	"github.com/gostonefire/exthashmap/internal/page"
	"github.com/gostonefire/exthashmap/internal/utils"
	"github.com/gostonefire/exthashmap/pagestore"
	"go.uber.org/zap"
)

// insert - Adds or overwrites key, growing the structure until the target bucket has room.
// Every pass through grow increases a bucket, page or directory depth, so the loop is bounded.
func (M *ExtHashMap) insert(key, value []byte) (err error) {
	digest := M.digestOf(key)
	maxPasses := 3*int(M.settings.width) + 2

	for pass := 0; pass < maxPasses; pass++ {
		loc := M.locate(digest)

		if i := loc.bucket.Find(key, digest); i >= 0 {
			if M.settings.policy == RejectDuplicates {
				err = DuplicateKey{}
				return
			}
			b := M.writable(loc.bucket)
			b.Update(i, utils.CopyBytes(value))
			err = M.replaceBucket(loc.bucketId, b)
			return
		}

		if !loc.bucket.IsFull() {
			b := M.writable(loc.bucket)
			_ = b.Put(pagestore.Entry{Key: utils.CopyBytes(key), Value: utils.CopyBytes(value), Digest: digest})
			if err = M.replaceBucket(loc.bucketId, b); err != nil {
				return
			}
			loc.page.AddCount(1)
			M.count++
			return
		}

		if err = M.grow(loc); err != nil {
			return
		}
	}

	panic(fmt.Sprintf("insert did not find room after %d structural changes", maxPasses))
}

// grow - Makes one structural change that moves the full bucket at loc closer to having room for loc.digest
func (M *ExtHashMap) grow(loc location) (err error) {
	b := loc.bucket
	if b.SameDigest(loc.digest) {
		err = DigestExhausted{msg: fmt.Sprintf("all %d entries of the bucket share digest %#x", b.Len(), loc.digest)}
		return
	}

	width := M.settings.width
	lb, lp, dpg := b.LocalDepth(), loc.page.LocalDepth(), loc.page.DirectoryDepth()

	switch {
	case lb < lp:
		err = M.splitBucket(loc, false)
	case lp >= M.settings.maxPageDepth && dpg < width && b.DiffersAt(width-1-dpg, loc.digest):
		err = M.splitPage(loc)
	case lp < width:
		err = M.splitBucket(loc, true)
	default:
		err = DigestExhausted{msg: fmt.Sprintf("page uses all %d digest bits", width)}
	}

	return
}

// splitBucket - Replaces the bucket at loc by two buckets one local depth deeper, doubling the page first if
// the bucket already uses every page bit. The page is the commit record.
func (M *ExtHashMap) splitBucket(loc location, double bool) (err error) {
	C := M.newChange()

	p := loc.page.Clone()
	if double {
		p.Double()
	}

	lb := loc.bucket.LocalDepth()
	signature := utils.LowBits(loc.digest, lb)
	zero, one := loc.bucket.Split()
	zeroId, oneId := C.addBucket(zero), C.addBucket(one)
	p.Repoint(signature, lb+1, zeroId)
	p.Repoint(signature|1<<lb, lb+1, oneId)

	C.replacePage(loc.pageId, p)
	C.freeBucket(loc.bucketId)

	if err = M.commit(C); err != nil {
		return
	}

	if double {
		M.logger.Debug("page doubled", zap.Uint64("page", loc.pageId), zap.Uint("localDepth", p.LocalDepth()))
	}
	M.logger.Debug("bucket split",
		zap.Uint64("bucket", loc.bucketId),
		zap.Uint64("zero", zeroId),
		zap.Uint64("one", oneId),
		zap.Uint("localDepth", lb+1),
	)

	return
}

// splitPage - Replaces the page at loc by two pages one directory depth deeper, divided on the next high order
// digest bit. Every bucket of the page is divided on that bit as well, keeping its local depth. The directory
// doubles first if the page already uses every directory bit. The directory is the commit record.
func (M *ExtHashMap) splitPage(loc location) (err error) {
	C := M.newChange()
	old := loc.page
	depth := old.DirectoryDepth()
	bit := M.settings.width - 1 - depth

	dir := C.directory()
	doubled := depth == dir.GlobalDepth()
	if doubled {
		if err = dir.Double(); err != nil {
			return
		}
	}

	image := old.Image()
	image.DirectoryDepth = depth + 1
	halves := [2]*page.Page{}
	for i := range halves {
		if halves[i], err = page.FromImage(image); err != nil {
			return
		}
	}

	for slot := 0; slot < old.Size(); slot++ {
		id := old.BucketAt(slot)
		b := M.buckets[id]
		if slot >= 1<<b.LocalDepth() {
			continue
		}

		zero, one := b.Partition(bit)
		halves[0].Repoint(uint64(slot), b.LocalDepth(), C.addBucket(zero))
		halves[1].Repoint(uint64(slot), b.LocalDepth(), C.addBucket(one))
		halves[0].AddCount(zero.Len())
		halves[1].AddCount(one.Len())
		C.freeBucket(id)
	}

	prefix := utils.TopBits(loc.digest, M.settings.width, depth)
	zeroId, oneId := C.addPage(halves[0]), C.addPage(halves[1])
	dir.SetRange(prefix<<1, depth+1, zeroId)
	dir.SetRange(prefix<<1|1, depth+1, oneId)
	C.freePage(loc.pageId)

	if err = M.commit(C); err != nil {
		return
	}

	if doubled {
		M.logger.Debug("directory doubled", zap.Uint("globalDepth", dir.GlobalDepth()))
	}
	M.logger.Debug("page split",
		zap.Uint64("page", loc.pageId),
		zap.Uint64("zero", zeroId),
		zap.Uint64("one", oneId),
		zap.Uint("directoryDepth", depth+1),
	)

	return
}

package exthashmap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gostonefire/exthashmap/internal/bucket"
	"github.com/gostonefire/exthashmap/internal/directory"
	"github.com/gostonefire/exthashmap/internal/page"
	"github.com/gostonefire/exthashmap/internal/storage/file"
	"github.com/gostonefire/exthashmap/internal/utils"
	"github.com/gostonefire/exthashmap/pagestore"
	"go.uber.org/zap"
)

// HashMapInfo - Information structure containing the settings the hash map runs with
//   - BucketCapacity is the maximum number of entries per bucket
//   - DigestWidth is the number of digest bits in use
//   - InitialGlobalDepth is the directory depth the map was created with
//   - MaxPageDepth is the page local depth from which pages are split by high order bits
//   - LowWaterMark is the bucket length at or below which a merge is attempted
//   - HashAlgorithm is the internal hash function, or HashCustom
//   - Persistent tells whether the map writes through to a page store
type HashMapInfo struct {
	BucketCapacity     int
	DigestWidth        uint
	InitialGlobalDepth uint
	MaxPageDepth       uint
	LowWaterMark       int
	HashAlgorithm      HashAlgorithm
	Persistent         bool
}

// HashMapStat - Statistics on the overall usage and distribution over buckets
//   - Records is the total number of records stored
//   - Pages and Buckets are the number of distinct pages and buckets
//   - GlobalDepth is the current directory depth
//   - MaxPageLocalDepth and MaxBucketLocalDepth are the deepest page and bucket
//   - AverageBucketFillFactor is Records divided by the total capacity of all buckets
//   - BucketDistribution is the number of records in each bucket, in iteration order
type HashMapStat struct {
	Records                 int64
	Pages                   int64
	Buckets                 int64
	GlobalDepth             uint
	MaxPageLocalDepth       uint
	MaxBucketLocalDepth     uint
	AverageBucketFillFactor float64
	BucketDistribution      []int64
}

// ExtHashMap - The main implementation struct. It is safe for concurrent use, mutations are serialized by a
// single lock that readers share.
type ExtHashMap struct {
	mu       sync.RWMutex
	settings settings
	store    pagestore.PageStore
	logger   *zap.Logger
	dir      *directory.Directory
	pages    map[uint64]*page.Page
	buckets  map[uint64]*bucket.Bucket
	nextID   uint64
	count    int
	modCount uint64
}

// NewExtHashMap - Returns a new, empty hash map. If conf names a page store, or conf.Name is set in which case a
// file page store is created in that directory, the map writes through to it. Any existing file store with the
// same name is removed first.
//   - conf is the configuration, preferably obtained from DefaultConfig or LoadConfigFile and then adjusted
//
// It returns:
//   - extHashMap is a pointer to an ExtHashMap struct
//   - hashMapInfo is a HashMapInfo struct containing the settings in effect
//   - err is a normal go Error which should be nil if everything went ok
func NewExtHashMap(conf Config) (extHashMap *ExtHashMap, hashMapInfo HashMapInfo, err error) {
	hashFunction, used, err := resolveHashFunction(conf.HashFunction, conf.HashAlgorithm)
	if err != nil {
		return
	}

	s := settings{
		bucketCapacity:     conf.BucketCapacity,
		initialGlobalDepth: conf.InitialGlobalDepth,
		width:              conf.DigestWidth,
		maxPageDepth:       conf.MaxPageDepth,
		shrinkEnabled:      conf.ShrinkEnabled,
		lowWaterMark:       lowWaterMarkFor(conf.LowWaterMark, conf.BucketCapacity),
		policy:             conf.DuplicateKeyPolicy,
		hashAlgorithm:      used,
		hashFunction:       hashFunction,
	}
	if s.width == 0 {
		s.width = hashFunction.Width()
	}
	if err = s.validate(); err != nil {
		return
	}

	store := conf.PageStore
	if store == nil && conf.Name != "" {
		if store, err = file.Create(conf.Name, conf.Compression); err != nil {
			return
		}
	}

	m := newExtHashMap(s, store, conf.Logger)
	m.initialize()

	if store != nil {
		if err = m.persistAll(); err != nil {
			_ = store.Close()
			err = PersistenceFailure{msg: "unable to write initial hash map", err: err}
			return
		}
	}

	extHashMap = m
	hashMapInfo = m.Info()

	return
}

// NewFromExistingStore - Opens a hash map previously created with a page store. The store is conf.PageStore if set,
// otherwise the file store in directory conf.Name. If the map was created with a custom hash function the same
// function has to be supplied in conf.HashFunction, and if it was created with an internal one conf.HashFunction
// must be nil.
//
// It returns:
//   - extHashMap is a pointer to an ExtHashMap struct
//   - hashMapInfo is a HashMapInfo struct containing the settings in effect
//   - err is a normal go Error which should be nil if everything went ok
func NewFromExistingStore(conf Config) (extHashMap *ExtHashMap, hashMapInfo HashMapInfo, err error) {
	store := conf.PageStore
	if store == nil {
		if conf.Name == "" {
			err = fmt.Errorf("either a page store or a name is needed to open an existing hash map")
			return
		}
		if store, err = file.Open(conf.Name, conf.Compression); err != nil {
			return
		}
	}

	image, err := store.LoadDirectory()
	if err != nil {
		_ = store.Close()
		err = fmt.Errorf("unable to load directory: %w", err)
		return
	}

	alg := HashAlgorithm(image.HashAlgorithm)
	if alg == HashCustom && conf.HashFunction == nil {
		err = fmt.Errorf("hash map was created with a custom hash function, which must be supplied")
	} else if alg != HashCustom && conf.HashFunction != nil {
		err = fmt.Errorf("hash map was created with internal hash function %s, a custom one can not be used", alg)
	}
	if err != nil {
		_ = store.Close()
		return
	}

	hashFunction, used, err := resolveHashFunction(conf.HashFunction, alg)
	if err != nil {
		_ = store.Close()
		return
	}

	s := settings{
		bucketCapacity:     image.BucketCapacity,
		initialGlobalDepth: image.InitialGlobalDepth,
		width:              image.DigestWidth,
		maxPageDepth:       image.MaxPageDepth,
		shrinkEnabled:      conf.ShrinkEnabled,
		lowWaterMark:       lowWaterMarkFor(conf.LowWaterMark, image.BucketCapacity),
		policy:             conf.DuplicateKeyPolicy,
		hashAlgorithm:      used,
		hashFunction:       hashFunction,
	}
	if s.lowWaterMark >= s.bucketCapacity {
		s.lowWaterMark = s.bucketCapacity / 4
	}
	if err = s.validate(); err != nil {
		_ = store.Close()
		return
	}

	m := newExtHashMap(s, store, conf.Logger)
	if err = m.load(image); err != nil {
		_ = store.Close()
		err = fmt.Errorf("unable to load hash map: %w", err)
		return
	}

	extHashMap = m
	hashMapInfo = m.Info()

	return
}

// newExtHashMap - Returns a pointer to an ExtHashMap without any structure
func newExtHashMap(s settings, store pagestore.PageStore, logger *zap.Logger) *ExtHashMap {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ExtHashMap{
		settings: s,
		store:    store,
		logger:   logger,
		pages:    make(map[uint64]*page.Page),
		buckets:  make(map[uint64]*bucket.Bucket),
		nextID:   1,
	}
}

// initialize - Builds the initial structure, 2^G0 pages each with one empty bucket
func (M *ExtHashMap) initialize() {
	n := 1 << M.settings.initialGlobalDepth
	pageIds := make([]uint64, n)
	for i := range pageIds {
		bucketId := M.nextID
		M.nextID++
		M.buckets[bucketId] = bucket.New(M.settings.bucketCapacity, 0)

		pageIds[i] = M.nextID
		M.nextID++
		M.pages[pageIds[i]] = page.New(bucketId, M.settings.initialGlobalDepth)
	}

	dir, err := directory.New(M.settings.width, pageIds)
	if err != nil {
		panic(fmt.Sprintf("initial directory: %s", err))
	}
	M.dir = dir
}

// persistAll - Writes every bucket, page and finally the directory to the page store
func (M *ExtHashMap) persistAll() (err error) {
	for id, b := range M.buckets {
		if err = M.store.StoreBucket(id, b.Image()); err != nil {
			return
		}
	}
	for id, p := range M.pages {
		if err = M.store.StorePage(id, p.Image()); err != nil {
			return
		}
	}

	err = M.store.StoreDirectory(M.directoryImage(M.dir, M.nextID))

	return
}

// load - Restores the structure reachable from the directory image and checks it
func (M *ExtHashMap) load(image pagestore.DirectoryImage) (err error) {
	dir, err := directory.New(image.DigestWidth, image.Pages)
	if err != nil {
		return
	}
	if dir.GlobalDepth() != image.GlobalDepth {
		err = fmt.Errorf("directory holds %d slots but global depth is %d", dir.Size(), image.GlobalDepth)
		return
	}

	maxId := uint64(0)
	for _, pageId := range dir.Pages() {
		if _, ok := M.pages[pageId]; ok {
			continue
		}

		var pi pagestore.PageImage
		if pi, err = M.store.LoadPage(pageId); err != nil {
			return
		}
		var p *page.Page
		if p, err = page.FromImage(pi); err != nil {
			return
		}
		M.pages[pageId] = p
		maxId = max(maxId, pageId)

		for _, bucketId := range pi.Buckets {
			if _, ok := M.buckets[bucketId]; ok {
				continue
			}

			var bi pagestore.BucketImage
			if bi, err = M.store.LoadBucket(bucketId); err != nil {
				return
			}
			var b *bucket.Bucket
			if b, err = bucket.FromImage(M.settings.bucketCapacity, bi); err != nil {
				return
			}
			M.buckets[bucketId] = b
			maxId = max(maxId, bucketId)
		}
	}

	M.dir = dir
	for _, pageId := range dir.Distinct(M.pageDepth) {
		p := M.pages[pageId]
		for _, bucketId := range p.Distinct(M.bucketDepth) {
			n := M.buckets[bucketId].Len()
			p.AddCount(n)
			M.count += n
		}
	}

	// Bucket splits only rewrite the owning page, so the stored counter may lag behind identifiers in use
	M.nextID = max(image.NextID, maxId+1)

	err = M.verify()

	return
}

// directoryImage - Returns the persistable image of dir along with the settings that must survive a reopen
func (M *ExtHashMap) directoryImage(dir *directory.Directory, nextID uint64) pagestore.DirectoryImage {
	return pagestore.DirectoryImage{
		HashAlgorithm:      uint8(M.settings.hashAlgorithm),
		DigestWidth:        M.settings.width,
		BucketCapacity:     M.settings.bucketCapacity,
		InitialGlobalDepth: M.settings.initialGlobalDepth,
		MaxPageDepth:       M.settings.maxPageDepth,
		GlobalDepth:        dir.GlobalDepth(),
		NextID:             nextID,
		Pages:              dir.Pages(),
	}
}

// Info - Returns the settings the hash map runs with
func (M *ExtHashMap) Info() HashMapInfo {
	return HashMapInfo{
		BucketCapacity:     M.settings.bucketCapacity,
		DigestWidth:        M.settings.width,
		InitialGlobalDepth: M.settings.initialGlobalDepth,
		MaxPageDepth:       M.settings.maxPageDepth,
		LowWaterMark:       M.settings.lowWaterMark,
		HashAlgorithm:      M.settings.hashAlgorithm,
		Persistent:         M.store != nil,
	}
}

// Close - Closes the page store, if any. Use this preferably in a "defer" directly after NewExtHashMap or
// NewFromExistingStore. A persistent map can not be modified after Close.
func (M *ExtHashMap) Close() (err error) {
	M.mu.Lock()
	defer M.mu.Unlock()

	if M.store != nil {
		err = M.store.Close()
	}

	return
}

// RemoveFiles - Closes the page store and removes everything it has persisted.
// For a map held in memory only it does nothing.
func (M *ExtHashMap) RemoveFiles() (err error) {
	M.mu.Lock()
	defer M.mu.Unlock()

	if M.store == nil {
		return
	}

	err = errors.Join(M.store.Close(), M.store.Remove())

	return
}

// location - Where a digest leads through the directory and its page
type location struct {
	digest   uint64
	dirSlot  int
	pageId   uint64
	page     *page.Page
	pageSlot int
	bucketId uint64
	bucket   *bucket.Bucket
}

// digestOf - Returns the digest of key masked to the digest width
func (M *ExtHashMap) digestOf(key []byte) uint64 {
	return M.settings.hashFunction.Digest(key) & utils.Mask(M.settings.width)
}

// locate - Follows digest from the directory to its bucket
func (M *ExtHashMap) locate(digest uint64) (loc location) {
	loc.digest = digest
	loc.dirSlot = M.dir.SlotFor(digest)
	loc.pageId = M.dir.PageAt(loc.dirSlot)
	loc.page = M.pages[loc.pageId]
	loc.pageSlot = loc.page.SlotFor(digest)
	loc.bucketId = loc.page.BucketAt(loc.pageSlot)
	loc.bucket = M.buckets[loc.bucketId]

	return
}

// bucketDepth - Returns the local depth of the bucket with identifier id
func (M *ExtHashMap) bucketDepth(id uint64) uint {
	return M.buckets[id].LocalDepth()
}

// pageDepth - Returns the directory depth of the page with identifier id
func (M *ExtHashMap) pageDepth(id uint64) uint {
	return M.pages[id].DirectoryDepth()
}

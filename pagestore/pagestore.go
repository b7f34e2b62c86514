// Package pagestore defines the persistence collaborator of an extendible hash map.
//
// The hash map keeps its whole structure in memory and writes it through to a PageStore. Every record is
// addressed by a stable identifier: one directory record, one record per page and one per bucket. Structural
// changes are copy-on-write, new records are stored under fresh identifiers before a single commit record
// (a page or the directory) is replaced, so a PageStore only has to make each individual Store call atomic.
package pagestore

// Entry - One key/value pair together with its cached digest
type Entry struct {
	Key    []byte
	Value  []byte
	Digest uint64
}

// BucketImage - Persisted contents of a bucket
type BucketImage struct {
	LocalDepth uint
	Entries    []Entry
}

// PageImage - Persisted contents of a page, i.e. its bucket reference array
//   - LocalDepth is the number of low order digest bits the page uses to index buckets
//   - DirectoryDepth is the number of high order digest bits shared by all slots referencing the page
//   - Buckets holds 2^LocalDepth bucket identifiers
type PageImage struct {
	LocalDepth     uint
	DirectoryDepth uint
	Buckets        []uint64
}

// DirectoryImage - Persisted contents of the directory along with settings that must survive a reopen
type DirectoryImage struct {
	HashAlgorithm      uint8
	DigestWidth        uint
	BucketCapacity     int
	InitialGlobalDepth uint
	MaxPageDepth       uint
	GlobalDepth        uint
	NextID             uint64
	Pages              []uint64
}

// PageStore - Interface for any page store implementation
type PageStore interface {
	// LoadDirectory - Returns the stored directory, or an error if the store holds none
	LoadDirectory() (image DirectoryImage, err error)
	// StoreDirectory - Atomically replaces the directory record
	StoreDirectory(image DirectoryImage) (err error)
	// LoadPage - Returns the page stored under id
	LoadPage(id uint64) (image PageImage, err error)
	// StorePage - Atomically creates or replaces the page stored under id
	StorePage(id uint64, image PageImage) (err error)
	// DeletePage - Removes the page stored under id, removing a missing page is not an error
	DeletePage(id uint64) (err error)
	// LoadBucket - Returns the bucket stored under id
	LoadBucket(id uint64) (image BucketImage, err error)
	// StoreBucket - Atomically creates or replaces the bucket stored under id
	StoreBucket(id uint64, image BucketImage) (err error)
	// DeleteBucket - Removes the bucket stored under id, removing a missing bucket is not an error
	DeleteBucket(id uint64) (err error)
	// Close - Releases any resources held by the store
	Close() (err error)
	// Remove - Removes everything the store has persisted, the store should be closed first
	Remove() (err error)
}

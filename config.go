package exthashmap

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/gostonefire/exthashmap/hashfunc"
	"github.com/gostonefire/exthashmap/internal/hash"
	"github.com/gostonefire/exthashmap/pagestore"
	"go.uber.org/zap"
)

// HashAlgorithm - Identifies one of the internal hash functions
type HashAlgorithm uint8

// Internal hash functions. HashCustom is reported when a custom hashfunc.HashFunction is in use.
const (
	HashCustom HashAlgorithm = HashAlgorithm(hash.Custom)
	HashXXH64  HashAlgorithm = HashAlgorithm(hash.XXH64)
	HashCRC32  HashAlgorithm = HashAlgorithm(hash.CRC32)
	HashFNV1a  HashAlgorithm = HashAlgorithm(hash.FNV1a)
)

// String - Returns the name of the algorithm as used in configuration files
func (H HashAlgorithm) String() string {
	switch H {
	case HashCustom:
		return "custom"
	case HashXXH64:
		return "xxh64"
	case HashCRC32:
		return "crc32"
	case HashFNV1a:
		return "fnv1a"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(H))
	}
}

// DuplicateKeyPolicy - What Insert does with a key that is already present
type DuplicateKeyPolicy int

const (
	// RejectDuplicates - Insert fails with DuplicateKey
	RejectDuplicates DuplicateKeyPolicy = iota
	// OverwriteDuplicates - Insert replaces the value
	OverwriteDuplicates
)

// Config - Settings for creating or opening an ExtHashMap. Start from DefaultConfig, the zero value is not valid.
//   - Name is the directory used by the file page store, an empty Name and a nil PageStore gives a map held in memory only
//   - BucketCapacity is the maximum number of entries in a bucket (B)
//   - InitialGlobalDepth is the global depth the directory starts at and never shrinks below (G0)
//   - DigestWidth is the number of digest bits used (W), zero means the natural width of the hash function
//   - MaxPageDepth is the page local depth from which a page is split rather than doubled, when the split helps
//   - ShrinkEnabled turns on merging of buckets, pages and the directory after removals
//   - LowWaterMark is the bucket length at or below which a merge is attempted, DefaultLowWaterMark means a
//     quarter of BucketCapacity
//   - DuplicateKeyPolicy decides whether Insert rejects or overwrites an existing key
//   - HashAlgorithm selects an internal hash function, ignored if HashFunction is set
//   - HashFunction is an optional custom hash function
//   - PageStore is an optional page store, it takes precedence over Name
//   - Compression makes the file page store zstd compress records
//   - Logger receives debug output on structural changes, nil means no logging
//
// When opening an existing store BucketCapacity, InitialGlobalDepth, DigestWidth, MaxPageDepth and HashAlgorithm
// are taken from the store and ignored in Config.
type Config struct {
	Name               string
	BucketCapacity     int
	InitialGlobalDepth uint
	DigestWidth        uint
	MaxPageDepth       uint
	ShrinkEnabled      bool
	LowWaterMark       int
	DuplicateKeyPolicy DuplicateKeyPolicy
	HashAlgorithm      HashAlgorithm
	HashFunction       hashfunc.HashFunction
	PageStore          pagestore.PageStore
	Compression        bool
	Logger             *zap.Logger
}

// DefaultBucketCapacity - Bucket capacity given by DefaultConfig
const DefaultBucketCapacity = 16

// DefaultMaxPageDepth - Max page depth given by DefaultConfig
const DefaultMaxPageDepth = 8

// DefaultLowWaterMark - Low-water mark given by DefaultConfig, it follows BucketCapacity
const DefaultLowWaterMark = -1

// maxInitialGlobalDepth - Upper limit of InitialGlobalDepth, every initial page gets a bucket of its own
const maxInitialGlobalDepth = 20

// DefaultConfig - Returns a Config for an in memory map with default settings
func DefaultConfig() Config {
	return Config{
		BucketCapacity: DefaultBucketCapacity,
		MaxPageDepth:   DefaultMaxPageDepth,
		LowWaterMark:   DefaultLowWaterMark,
		HashAlgorithm:  HashXXH64,
	}
}

// fileConfig - TOML representation of Config
type fileConfig struct {
	Name               string `toml:"name"`
	BucketCapacity     int    `toml:"bucket_capacity"`
	InitialGlobalDepth uint   `toml:"initial_global_depth"`
	DigestWidth        uint   `toml:"digest_width"`
	MaxPageDepth       uint   `toml:"max_page_depth"`
	ShrinkEnabled      bool   `toml:"shrink_enabled"`
	LowWaterMark       int    `toml:"low_water_mark"`
	DuplicateKeyPolicy string `toml:"duplicate_key_policy"`
	HashAlgorithm      string `toml:"hash_algorithm"`
	Compression        bool   `toml:"compression"`
}

// LoadConfigFile - Reads a Config from a TOML file. Settings missing in the file keep their DefaultConfig value,
// so if bucket_capacity is given without low_water_mark the low-water mark follows the capacity.
// Unknown keys are reported as errors.
func LoadConfigFile(path string) (conf Config, err error) {
	conf = DefaultConfig()
	fc := fileConfig{
		BucketCapacity:     conf.BucketCapacity,
		MaxPageDepth:       conf.MaxPageDepth,
		LowWaterMark:       conf.LowWaterMark,
		DuplicateKeyPolicy: "reject",
		HashAlgorithm:      conf.HashAlgorithm.String(),
	}

	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		err = fmt.Errorf("unable to read config file %s: %w", path, err)
		return
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		err = fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
		return
	}

	conf.Name = fc.Name
	conf.BucketCapacity = fc.BucketCapacity
	conf.InitialGlobalDepth = fc.InitialGlobalDepth
	conf.DigestWidth = fc.DigestWidth
	conf.MaxPageDepth = fc.MaxPageDepth
	conf.ShrinkEnabled = fc.ShrinkEnabled
	conf.Compression = fc.Compression
	conf.LowWaterMark = fc.LowWaterMark

	switch fc.DuplicateKeyPolicy {
	case "reject":
		conf.DuplicateKeyPolicy = RejectDuplicates
	case "overwrite":
		conf.DuplicateKeyPolicy = OverwriteDuplicates
	default:
		err = fmt.Errorf("unknown duplicate_key_policy %q, use reject or overwrite", fc.DuplicateKeyPolicy)
		return
	}

	switch fc.HashAlgorithm {
	case HashXXH64.String():
		conf.HashAlgorithm = HashXXH64
	case HashCRC32.String():
		conf.HashAlgorithm = HashCRC32
	case HashFNV1a.String():
		conf.HashAlgorithm = HashFNV1a
	default:
		err = fmt.Errorf("unknown hash_algorithm %q, use xxh64, crc32 or fnv1a", fc.HashAlgorithm)
		return
	}

	return
}

// settings - Validated settings a map runs with
type settings struct {
	bucketCapacity     int
	initialGlobalDepth uint
	width              uint
	maxPageDepth       uint
	shrinkEnabled      bool
	lowWaterMark       int
	policy             DuplicateKeyPolicy
	hashAlgorithm      HashAlgorithm
	hashFunction       hashfunc.HashFunction
}

// resolveHashFunction - Returns the hash function to use given an optional custom one and an algorithm identifier
func resolveHashFunction(custom hashfunc.HashFunction, alg HashAlgorithm) (hashFunction hashfunc.HashFunction, used HashAlgorithm, err error) {
	if custom != nil {
		hashFunction, used = custom, HashCustom
		return
	}
	if alg == HashCustom {
		err = fmt.Errorf("a custom hash algorithm requires a HashFunction")
		return
	}

	hashFunction, err = hash.New(uint8(alg))
	used = alg

	return
}

// lowWaterMarkFor - Returns the low-water mark to use for bucketCapacity given a configured one
func lowWaterMarkFor(lowWaterMark, bucketCapacity int) int {
	if lowWaterMark == DefaultLowWaterMark {
		return bucketCapacity / 4
	}
	return lowWaterMark
}

// validate - Checks the settings and returns an error describing the first invalid one
func (S settings) validate() (err error) {
	natural := S.hashFunction.Width()
	switch {
	case natural == 0 || natural > 64:
		err = fmt.Errorf("hash function width must be between 1 and 64, got %d", natural)
	case S.width == 0 || S.width > natural:
		err = fmt.Errorf("digest width must be between 1 and %d, got %d", natural, S.width)
	case S.bucketCapacity <= 0:
		err = fmt.Errorf("bucket capacity must be a positive value higher than 0 (zero)")
	case S.initialGlobalDepth > S.width || S.initialGlobalDepth > maxInitialGlobalDepth:
		err = fmt.Errorf("initial global depth %d exceeds digest width or limit %d", S.initialGlobalDepth, maxInitialGlobalDepth)
	case S.lowWaterMark < 0 || S.lowWaterMark >= S.bucketCapacity:
		err = fmt.Errorf("low-water mark must be in [0,%d), got %d", S.bucketCapacity, S.lowWaterMark)
	case S.policy != RejectDuplicates && S.policy != OverwriteDuplicates:
		err = fmt.Errorf("unknown duplicate key policy %d", S.policy)
	}

	return
}

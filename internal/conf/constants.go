package conf

// RecordMagic - First bytes of every record file written by the file page store
const RecordMagic = "EXHM"

// FormatVersion - Version of the record file layout
const FormatVersion uint8 = 1

// RecordHeaderLength - Length of the header preceding the payload in each record file
const RecordHeaderLength int = 24

// MagicOffset - Header offset to the magic bytes - 4 bytes
const MagicOffset int = 0

// VersionOffset - Header offset to the format version - 1 byte
const VersionOffset int = 4

// KindOffset - Header offset to the record kind - 1 byte
const KindOffset int = 5

// FlagsOffset - Header offset to the record flags - 1 byte
const FlagsOffset int = 6

// PayloadLengthOffset - Header offset to the length of the payload as stored - 4 bytes
const PayloadLengthOffset int = 8

// RawLengthOffset - Header offset to the length of the payload before compression - 4 bytes
const RawLengthOffset int = 12

// ChecksumOffset - Header offset to the xxhash64 checksum of the stored payload - 8 bytes
const ChecksumOffset int = 16

// KindDirectory - Record kind of the directory record
const KindDirectory uint8 = 1

// KindPage - Record kind of a page record
const KindPage uint8 = 2

// KindBucket - Record kind of a bucket record
const KindBucket uint8 = 3

// FlagCompressed - Record flag telling that the payload is zstd compressed
const FlagCompressed uint8 = 1

// DirectoryFileName - Name of the directory record file within a store
const DirectoryFileName = "directory.bin"

// TempSuffix - Suffix of files being written before they are renamed into place
const TempSuffix = ".tmp"

// PageFilePattern - Glob matching page record files within a store
const PageFilePattern = "page-*.bin"

// BucketFilePattern - Glob matching bucket record files within a store
const BucketFilePattern = "bucket-*.bin"

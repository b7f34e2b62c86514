package hash

import "hash/crc32"

// CRC32HashAlgorithm - Digest function using crc32.ChecksumIEEE over the key, giving a 32 bit digest.
type CRC32HashAlgorithm struct{}

// NewCRC32HashAlgorithm - Returns a pointer to a new CRC32HashAlgorithm instance
func NewCRC32HashAlgorithm() *CRC32HashAlgorithm {
	return &CRC32HashAlgorithm{}
}

// Digest - Returns the IEEE crc32 of key
func (C *CRC32HashAlgorithm) Digest(key []byte) uint64 {
	return uint64(crc32.ChecksumIEEE(key))
}

// Width - Always 32
func (C *CRC32HashAlgorithm) Width() uint {
	return 32
}

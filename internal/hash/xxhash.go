package hash

import "github.com/cespare/xxhash/v2"

// XXH64HashAlgorithm - The default digest function, a 64 bit xxHash over the key.
// Its output is well spread in both the high and the low order bits which suits the two ended addressing.
type XXH64HashAlgorithm struct{}

// NewXXH64HashAlgorithm - Returns a pointer to a new XXH64HashAlgorithm instance
func NewXXH64HashAlgorithm() *XXH64HashAlgorithm {
	return &XXH64HashAlgorithm{}
}

// Digest - Returns the xxHash64 of key
func (X *XXH64HashAlgorithm) Digest(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// Width - Always 64
func (X *XXH64HashAlgorithm) Width() uint {
	return 64
}

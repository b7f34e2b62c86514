package hash

import (
	"fmt"

	"github.com/gostonefire/exthashmap/hashfunc"
)

// Algorithm identifiers. They are persisted in the directory record of a stored hash map, so existing
// values must never change.
const (
	Custom uint8 = 0
	XXH64  uint8 = 1
	CRC32  uint8 = 2
	FNV1a  uint8 = 3
)

// New - Returns the internal hash function identified by alg
func New(alg uint8) (hashFunction hashfunc.HashFunction, err error) {
	switch alg {
	case XXH64:
		hashFunction = NewXXH64HashAlgorithm()
	case CRC32:
		hashFunction = NewCRC32HashAlgorithm()
	case FNV1a:
		hashFunction = NewFNV1aHashAlgorithm()
	default:
		err = fmt.Errorf("unknown internal hash algorithm: %d", alg)
	}

	return
}

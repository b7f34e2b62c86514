package hash

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// FNV1aHashAlgorithm - Digest function computing a 64 bit FNV-1a over the key.
type FNV1aHashAlgorithm struct{}

// NewFNV1aHashAlgorithm - Returns a pointer to a new FNV1aHashAlgorithm instance
func NewFNV1aHashAlgorithm() *FNV1aHashAlgorithm {
	return &FNV1aHashAlgorithm{}
}

// Digest - Returns the 64 bit FNV-1a of key
func (F *FNV1aHashAlgorithm) Digest(key []byte) uint64 {
	h := fnvOffset64
	for _, b := range key {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

// Width - Always 64
func (F *FNV1aHashAlgorithm) Width() uint {
	return 64
}

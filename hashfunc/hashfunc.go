package hashfunc

// HashFunction - Interface that permits an implementation using the ExtHashMap to supply a custom digest
// function suited for its particular distribution of keys.
//
// The extendible hash index addresses pages by the high order bits of a digest and buckets by its low order
// bits, so a function spreading keys evenly over both ends of the digest gives shallow directories and pages.
// Correctness never depends on distribution, only performance does.
type HashFunction interface {
	// Digest - Given key it returns the digest. Only the lowest Width() bits are used, any bits above that
	// are ignored. The same key must always give the same digest for the lifetime of a hash map, and if the
	// hash map is persisted, for the lifetime of its store as well.
	Digest(key []byte) uint64

	// Width - Returns the number of meaningful bits in a digest, between 1 and 64 (inclusive).
	Width() uint
}

// Func - Adapter making an ordinary function with a fixed digest width a HashFunction
type Func struct {
	F    func(key []byte) uint64
	Bits uint
}

// Digest - Calls the wrapped function
func (F Func) Digest(key []byte) uint64 {
	return F.F(key)
}

// Width - Returns the configured digest width
func (F Func) Width() uint {
	return F.Bits
}

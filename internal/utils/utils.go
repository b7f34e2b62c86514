package utils

// IsEqual - Returns true if a and b are equal both in size and contents
func IsEqual(a, b []byte) bool {
	lenA := len(a)
	if lenA != len(b) {
		return false
	}

	for i := 0; i < lenA; i++ {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Mask - Returns a mask with the n lowest bits set. n of 64 or more gives all bits set.
func Mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<n - 1
}

// LowBits - Returns the n lowest bits of digest
func LowBits(digest uint64, n uint) uint64 {
	return digest & Mask(n)
}

// TopBits - Returns the n highest bits of a digest that is width bits wide.
// For n equal to zero it returns 0.
func TopBits(digest uint64, width, n uint) uint64 {
	if n == 0 {
		return 0
	}
	return (digest & Mask(width)) >> (width - n)
}

// BitAt - Returns bit number i (counted from the least significant bit) of digest, either 0 or 1
func BitAt(digest uint64, i uint) uint64 {
	if i >= 64 {
		return 0
	}
	return (digest >> i) & 1
}

// CopyBytes - Returns a copy of a so that the caller may keep it independent of the original backing array
func CopyBytes(a []byte) (b []byte) {
	if a == nil {
		return nil
	}
	b = make([]byte, len(a))
	_ = copy(b, a)

	return
}

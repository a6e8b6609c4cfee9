/*
Package bitint provides the power-of-2 helpers used to size analysis
windows and audio callbacks.

Transform sizes are validated with IsPowerOfTwo; callback sizes requested by
a user are rounded up with NextPowerOfTwo so that a whole number of hops fits
into each analysis window.

	bufferSize := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(bufferSize)     // true

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of 2 map to themselves: 8-1 = 0b0111 has length 3 and 1<<3 = 8,
while the length of 8 itself would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// sizes yield 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 for
// non-positive sizes.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2. A power of 2 has exactly one
// bit set, so clearing its lowest set bit with n&(n-1) leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of 2, or -1 if n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

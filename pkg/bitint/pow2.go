// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-2 helpers used when sizing real-time
audio buffers. Mask-indexed ring buffers require power-of-2 capacities,
so capacities requested in samples are rounded up here.

All operations are allocation-free, constant time, and safe to call
from any context.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Non-positive inputs return 1. Exact powers of 2 are preserved:
// the size-1 subtraction keeps bits.Len from pushing an exact power
// up to the next one.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// 32-bit platforms (where int is 32-bit)
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len32(uint32(size - 1))))
	}

	// 64-bit platforms
	return int(1 << (bits.Len64(uint64(size - 1))))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

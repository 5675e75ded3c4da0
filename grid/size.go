package grid

import "math/bits"

// MinAxis is the smallest edge a volume may have. Physics on smaller
// volumes is unreliable, so sizes are never rounded below it.
const MinAxis = 8

// RoundUpAxis returns the next power of two >= n, never below MinAxis.
func RoundUpAxis(n int) int {
	if n <= MinAxis {
		return MinAxis
	}
	return 1 << bits.Len(uint(n-1))
}

// RoundUpSize rounds every axis with RoundUpAxis. Invalid sizes are
// corrected, not rejected.
func RoundUpSize(size Vec3i) Vec3i {
	return Vec3i{RoundUpAxis(size.X), RoundUpAxis(size.Y), RoundUpAxis(size.Z)}
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// ValidVolumeSize reports whether every axis is a power of two >= MinAxis.
func ValidVolumeSize(size Vec3i) bool {
	for _, n := range []int{size.X, size.Y, size.Z} {
		if n < MinAxis || !IsPow2(n) {
			return false
		}
	}
	return true
}

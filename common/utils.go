package common

// Coalesce returns the first value that is not the zero value of T, or the zero value.
//
// Parameters:
//   - values: the candidates, in order of preference
//
// Returns:
//   - T: the first non-zero candidate
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds n up to the next multiple of alignment, which must be positive.
//
// Parameters:
//   - n: the value to align
//   - alignment: the alignment
//
// Returns:
//   - T: the smallest multiple of alignment not below n
func AlignUp[T ~int | ~uint32 | ~uint64](n, alignment T) T {
	return (n + alignment - 1) / alignment * alignment
}

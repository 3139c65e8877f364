package mathutil

import (
	"golang.org/x/exp/constraints"
)

func Clamp[T constraints.Ordered](v, low, high T) T {
	switch {
	case v < low:
		return low
	case v > high:
		return high
	default:
		return v
	}
}

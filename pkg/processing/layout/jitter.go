package layout

import "math"

// Jitter returns a pseudo random offset in [-amplitude, amplitude] for an
// outlier point. The value depends only on the index, the same index always
// yields the same offset.
func Jitter(index int, amplitude float64) float64 {
	// splitmix64 finalizer
	z := uint64(index) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return (float64(z)/float64(math.MaxUint64)*2 - 1) * amplitude
}

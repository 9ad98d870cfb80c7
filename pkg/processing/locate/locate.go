// Package locate finds samples by track distance.
package locate

import (
	"sort"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
)

// Nearest returns the index of the sample closest to the given distance.
// Among samples with equal absolute difference the lowest index wins, so
// for duplicate distances the first sample of the run is returned. The
// second return value is false when the lap is nil or has no samples.
//
// The samples must be sorted by distance (see normalize), the lookup is
// O(log n).
func Nearest(lap *model.LapTelemetry, distance float64) (int, bool) {
	if lap == nil {
		return 0, false
	}
	samples := lap.Samples
	n := len(samples)
	if n == 0 {
		return 0, false
	}
	// first index with Distance >= distance
	idx := sort.Search(n, func(i int) bool {
		return samples[i].Distance >= distance
	})
	if idx == 0 {
		return 0, true
	}
	if idx == n {
		return firstOfRun(samples, samples[n-1].Distance), true
	}
	diffLower := distance - samples[idx-1].Distance
	diffUpper := samples[idx].Distance - distance
	if diffUpper < diffLower {
		return idx, true
	}
	return firstOfRun(samples, samples[idx-1].Distance), true
}

// firstOfRun returns the lowest index holding the given distance value.
func firstOfRun(samples []model.TelemetrySample, distance float64) int {
	return sort.Search(len(samples), func(i int) bool {
		return samples[i].Distance >= distance
	})
}

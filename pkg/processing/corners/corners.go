// Package corners detects corner (apex) markers in a lap's speed profile.
package corners

import "github.com/f1plots/f1dash-service-manager-go/pkg/model"

const (
	DefaultOuterWindow   = 20   // samples on each side used for the average
	DefaultInnerWindow   = 5    // samples on each side for the local min check
	DefaultThreshold     = 0.85 // candidate if speed < threshold * window avg
	DefaultMinSeparation = 200  // min distance between two markers
)

// Marker is a detected corner. Markers are numbered 1-based in detection
// order and are strictly ordered by distance. X/Y are zero when the
// underlying sample carries no position data.
//
//nolint:tagliatelle // client compatibility
type Marker struct {
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"`
}

type (
	Option interface {
		apply(*Detector)
	}
	optionFunc func(*Detector)
)

func (f optionFunc) apply(d *Detector) {
	f(d)
}

// WithOuterWindow sets the radius of the surrounding window used for the
// average speed.
func WithOuterWindow(samples int) Option {
	return optionFunc(func(d *Detector) { d.outerWindow = samples })
}

// WithInnerWindow sets the radius of the local minimum check.
func WithInnerWindow(samples int) Option {
	return optionFunc(func(d *Detector) { d.innerWindow = samples })
}

// WithThreshold sets the slow-down factor relative to the window average.
func WithThreshold(threshold float64) Option {
	return optionFunc(func(d *Detector) { d.threshold = threshold })
}

// WithMinSeparation sets the minimum distance between two markers.
func WithMinSeparation(distance float64) Option {
	return optionFunc(func(d *Detector) { d.minSeparation = distance })
}

type Detector struct {
	outerWindow   int
	innerWindow   int
	threshold     float64
	minSeparation float64
}

func NewDetector(opts ...Option) *Detector {
	ret := &Detector{
		outerWindow:   DefaultOuterWindow,
		innerWindow:   DefaultInnerWindow,
		threshold:     DefaultThreshold,
		minSeparation: DefaultMinSeparation,
	}
	for _, opt := range opts {
		opt.apply(ret)
	}
	return ret
}

// Detect scans the speed profile for local minima significantly below the
// surrounding average. The result is deterministic for identical input and
// parameters. Laps with fewer than 2*outerWindow+1 samples yield no
// markers. Complexity is O(n*outerWindow); detection is meant to run once
// per lap load, not per interactive query.
func (d *Detector) Detect(lap *model.LapTelemetry) []Marker {
	samples := lap.Samples
	n := len(samples)
	ret := []Marker{}
	if n < 2*d.outerWindow+1 {
		return ret
	}
	var lastMarker *Marker
	for i := d.outerWindow; i < n-d.outerWindow; i++ {
		if !d.isCandidate(samples, i) {
			continue
		}
		if !d.isLocalMinimum(samples, i) {
			continue
		}
		if lastMarker != nil &&
			samples[i].Distance-lastMarker.Distance < d.minSeparation {
			continue
		}
		marker := Marker{
			Index:    len(ret) + 1,
			Distance: samples[i].Distance,
			Speed:    samples[i].Speed,
		}
		if samples[i].HasPosition() {
			marker.X = *samples[i].X
			marker.Y = *samples[i].Y
		}
		ret = append(ret, marker)
		lastMarker = &ret[len(ret)-1]
	}
	return ret
}

// isCandidate checks the speed against the average of the 2*outerWindow
// surrounding samples (the candidate itself excluded).
func (d *Detector) isCandidate(samples []model.TelemetrySample, i int) bool {
	sum := 0.0
	for j := i - d.outerWindow; j <= i+d.outerWindow; j++ {
		if j == i {
			continue
		}
		sum += samples[j].Speed
	}
	avg := sum / float64(2*d.outerWindow)
	return samples[i].Speed < d.threshold*avg
}

// isLocalMinimum confirms that no sample within the inner window has a
// strictly lower speed.
func (d *Detector) isLocalMinimum(samples []model.TelemetrySample, i int) bool {
	lo := i - d.innerWindow
	if lo < 0 {
		lo = 0
	}
	hi := i + d.innerWindow
	if hi > len(samples)-1 {
		hi = len(samples) - 1
	}
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if samples[j].Speed < samples[i].Speed {
			return false
		}
	}
	return true
}

// Package delta estimates the time difference between laps at matching
// track distance.
package delta

import (
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/locate"
)

// DefaultCalibration converts a speed difference (km/h) into a time delta
// (seconds) when no timestamps are available. The value is a heuristic
// approximation carried over from the original tuning, not a physically
// derived factor. Results based on it are marked ProvenanceApproximate.
const DefaultCalibration = 0.01

type Provenance string

const (
	// ProvenanceExact marks deltas computed from recorded timestamps
	// (including the definitional zero of the reference lap itself).
	ProvenanceExact Provenance = "exact"
	// ProvenanceApproximate marks deltas derived from the speed
	// difference heuristic. Not timing-accurate.
	ProvenanceApproximate Provenance = "approximate"
)

// Sample is one delta value at a track distance. Derived and ephemeral,
// recomputed per query.
//
//nolint:tagliatelle // client compatibility
type Sample struct {
	Distance     float64    `json:"distance"`
	DeltaSeconds float64    `json:"deltaSeconds"`
	Provenance   Provenance `json:"provenance"`
}

type (
	Option interface {
		apply(*Estimator)
	}
	optionFunc func(*Estimator)
)

func (f optionFunc) apply(e *Estimator) {
	f(e)
}

// WithCalibration overrides the speed-to-time calibration constant.
func WithCalibration(calibration float64) Option {
	return optionFunc(func(e *Estimator) { e.calibration = calibration })
}

type Estimator struct {
	calibration float64
}

func NewEstimator(opts ...Option) *Estimator {
	ret := &Estimator{calibration: DefaultCalibration}
	for _, opt := range opts {
		opt.apply(ret)
	}
	return ret
}

// Estimate computes the delta of a single sample of targetLap against the
// reference lap. The delta is 0 (exact) when no reference is set, when the
// target lap is the reference lap or when the reference has no samples.
// Otherwise the reference sample nearest in distance is used: if both
// samples carry a time offset the delta is their difference, else the
// speed heuristic applies.
//
//nolint:whitespace // can't make the linters happy
func (e *Estimator) Estimate(
	target *model.TelemetrySample,
	targetLap *model.LapTelemetry,
	ref *model.LapTelemetry,
) Sample {
	ret := Sample{Distance: target.Distance, Provenance: ProvenanceExact}
	if ref == nil || targetLap == nil {
		return ret
	}
	if targetLap == ref || targetLap.Key() == ref.Key() {
		return ret
	}
	refIdx, ok := locate.Nearest(ref, target.Distance)
	if !ok {
		return ret
	}
	refSample := &ref.Samples[refIdx]
	if target.TimeOffsetMs != nil && refSample.TimeOffsetMs != nil {
		ret.DeltaSeconds = (*target.TimeOffsetMs - *refSample.TimeOffsetMs) / 1000.0
		return ret
	}
	ret.DeltaSeconds = (refSample.Speed - target.Speed) * e.calibration
	ret.Provenance = ProvenanceApproximate
	return ret
}

// Curve computes the delta for every sample of targetLap.
func (e *Estimator) Curve(targetLap, ref *model.LapTelemetry) []Sample {
	if targetLap == nil {
		return []Sample{}
	}
	ret := make([]Sample, 0, len(targetLap.Samples))
	for i := range targetLap.Samples {
		ret = append(ret, e.Estimate(&targetLap.Samples[i], targetLap, ref))
	}
	return ret
}

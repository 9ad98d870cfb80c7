// Package processing is the telemetry alignment and analysis engine. A
// Processor holds the normalized laps of one analysis session together
// with the reference lap used for delta computation and the memoized
// corner markers of the outline lap. All query results are a pure function
// of (loaded laps, reference lap, query parameters).
package processing

import (
	"errors"
	"sync"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/corners"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/delta"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/layout"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/locate"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/normalize"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/trackmap"
)

var ErrLapNotFound = errors.New("lap not found")

type Processor struct {
	mu          sync.RWMutex
	laps        []*model.LapTelemetry
	lapIndex    map[model.LapKey]*model.LapTelemetry
	refKey      model.LapKey
	hasRef      bool
	detector    *corners.Detector
	estimator   *delta.Estimator
	channels    []layout.ChannelSpec
	trackStatus model.TrackStatus

	cornerMemo      []corners.Marker
	cornerMemoValid bool
}

type ProcessorOption func(proc *Processor)

func WithDetector(detector *corners.Detector) ProcessorOption {
	return func(proc *Processor) {
		proc.detector = detector
	}
}

func WithEstimator(estimator *delta.Estimator) ProcessorOption {
	return func(proc *Processor) {
		proc.estimator = estimator
	}
}

func WithChannels(channels []layout.ChannelSpec) ProcessorOption {
	return func(proc *Processor) {
		proc.channels = channels
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		laps:        make([]*model.LapTelemetry, 0),
		lapIndex:    make(map[model.LapKey]*model.LapTelemetry),
		detector:    corners.NewDetector(),
		estimator:   delta.NewEstimator(),
		channels:    layout.DefaultChannels(),
		trackStatus: model.TrackGreen,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// LoadLap normalizes the raw samples and adds the lap to the session.
// Loading a lap key again replaces the previous telemetry. The first
// loaded lap becomes the outline lap (corner detection source) and the
// default reference lap. Corner markers are recomputed lazily when the
// outline lap changed.
//
//nolint:whitespace // can't make the linters happy
func (p *Processor) LoadLap(
	driverID string, lapNumber int, raw []model.TelemetrySample,
) *model.LapTelemetry {
	p.mu.Lock()
	defer p.mu.Unlock()

	lap := normalize.Normalize(driverID, lapNumber, raw)
	key := lap.Key()
	if existing, ok := p.lapIndex[key]; ok {
		for i := range p.laps {
			if p.laps[i] == existing {
				p.laps[i] = lap
				if i == 0 {
					p.cornerMemoValid = false
				}
				break
			}
		}
	} else {
		p.laps = append(p.laps, lap)
		if len(p.laps) == 1 {
			p.cornerMemoValid = false
			if !p.hasRef {
				p.refKey = key
				p.hasRef = true
			}
		}
	}
	p.lapIndex[key] = lap
	return lap
}

func (p *Processor) Laps() []*model.LapTelemetry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ret := make([]*model.LapTelemetry, len(p.laps))
	copy(ret, p.laps)
	return ret
}

func (p *Processor) Lap(key model.LapKey) (*model.LapTelemetry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if lap, ok := p.lapIndex[key]; ok {
		return lap, nil
	}
	return nil, ErrLapNotFound
}

// OutlineLap returns the lap used for corner detection and the track map
// outline (nil when no laps are loaded).
func (p *Processor) OutlineLap() *model.LapTelemetry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.outlineLapLocked()
}

func (p *Processor) outlineLapLocked() *model.LapTelemetry {
	if len(p.laps) == 0 {
		return nil
	}
	return p.laps[0]
}

// SetReferenceLap designates the lap all deltas are computed against.
// Previously computed delta samples are void after a change.
func (p *Processor) SetReferenceLap(key model.LapKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lapIndex[key]; !ok {
		return ErrLapNotFound
	}
	p.refKey = key
	p.hasRef = true
	return nil
}

// ClearReferenceLap removes the reference designation. All deltas are 0
// until a new reference is set.
func (p *Processor) ClearReferenceLap() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasRef = false
	p.refKey = ""
}

// ReferenceLap returns the current reference lap (nil when none is set).
func (p *Processor) ReferenceLap() *model.LapTelemetry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.referenceLapLocked()
}

func (p *Processor) referenceLapLocked() *model.LapTelemetry {
	if !p.hasRef {
		return nil
	}
	return p.lapIndex[p.refKey]
}

// Corners returns the corner markers of the outline lap. The markers are
// detected once per lap load and memoized, interactive queries get the
// cached value.
func (p *Processor) Corners() []corners.Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cornerMemoValid {
		outline := p.outlineLapLocked()
		if outline == nil {
			p.cornerMemo = []corners.Marker{}
		} else {
			p.cornerMemo = p.detector.Detect(outline)
		}
		p.cornerMemoValid = true
	}
	return p.cornerMemo
}

// Layout computes the channel bands for the given total height using the
// union of samples across all loaded laps.
func (p *Processor) Layout(totalHeight float64) []layout.Band {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return layout.Compute(p.channels, totalHeight, p.sampleUnionLocked())
}

func (p *Processor) sampleUnionLocked() []model.TelemetrySample {
	total := 0
	for _, lap := range p.laps {
		total += len(lap.Samples)
	}
	ret := make([]model.TelemetrySample, 0, total)
	for _, lap := range p.laps {
		ret = append(ret, lap.Samples...)
	}
	return ret
}

// NearestAt returns the sample of the given lap closest to distance.
func (p *Processor) NearestAt(key model.LapKey, distance float64) (
	*model.TelemetrySample, error,
) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lap, ok := p.lapIndex[key]
	if !ok {
		return nil, ErrLapNotFound
	}
	idx, ok := locate.Nearest(lap, distance)
	if !ok {
		return nil, nil
	}
	return &lap.Samples[idx], nil
}

// DeltaAt computes the delta of the given lap against the reference lap at
// the sample closest to distance.
func (p *Processor) DeltaAt(key model.LapKey, distance float64) (
	*delta.Sample, error,
) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lap, ok := p.lapIndex[key]
	if !ok {
		return nil, ErrLapNotFound
	}
	idx, ok := locate.Nearest(lap, distance)
	if !ok {
		return nil, nil
	}
	ret := p.estimator.Estimate(&lap.Samples[idx], lap, p.referenceLapLocked())
	return &ret, nil
}

// DeltaCurve computes the delta trace of the given lap against the
// reference lap.
func (p *Processor) DeltaCurve(key model.LapKey) ([]delta.Sample, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lap, ok := p.lapIndex[key]
	if !ok {
		return nil, ErrLapNotFound
	}
	return p.estimator.Curve(lap, p.referenceLapLocked()), nil
}

// Projection computes the track map projection for the union of positions
// across all loaded laps.
func (p *Processor) Projection(width, height float64) trackmap.Projection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return trackmap.NewProjection(trackmap.PointsFromLaps(p.laps...), width, height)
}

func (p *Processor) LapCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.laps)
}

// SetTrackStatus reduces the raw status string (combined statuses like
// "1245" are permitted) and stores the result.
func (p *Processor) SetTrackStatus(raw string) model.TrackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trackStatus = model.ParseTrackStatus(raw)
	return p.trackStatus
}

func (p *Processor) TrackStatus() model.TrackStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.trackStatus
}

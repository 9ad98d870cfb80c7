//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package processing

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/layout"
)

// timedSamples builds evenly spaced raw samples carrying time offsets
// shifted by shiftMs against the lap start.
func timedSamples(n int, spacing, shiftMs float64) []model.TelemetrySample {
	ret := make([]model.TelemetrySample, 0, n)
	for i := 0; i < n; i++ {
		ret = append(ret, model.TelemetrySample{
			Distance:     float64(i) * spacing,
			Speed:        200,
			TimeOffsetMs: lo.ToPtr(float64(i)*100 + shiftMs),
		})
	}
	return ret
}

// dipSamples builds a constant speed profile with a V-shaped braking zone
// centered at the given sample index.
func dipSamples(n int, spacing float64, center int) []model.TelemetrySample {
	ret := make([]model.TelemetrySample, 0, n)
	for i := 0; i < n; i++ {
		speed := 200.0
		dist := int(math.Abs(float64(i - center)))
		if dist < 6 {
			speed -= 25 * float64(6-dist)
		}
		ret = append(ret, model.TelemetrySample{Distance: float64(i) * spacing, Speed: speed})
	}
	return ret
}

func TestProcessor_LoadLap_FirstLapBecomesReference(t *testing.T) {
	p := NewProcessor()
	lap := p.LoadLap("VER", 5, timedSamples(10, 50, 0))

	assert.Equal(t, 1, p.LapCount())
	assert.Same(t, lap, p.OutlineLap())
	assert.Same(t, lap, p.ReferenceLap())

	p.LoadLap("HAM", 7, timedSamples(10, 50, 250))
	assert.Equal(t, 2, p.LapCount())
	// reference stays on the first lap
	assert.Same(t, lap, p.ReferenceLap())
}

func TestProcessor_LoadLap_ReplacesByKey(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(10, 50, 0))
	replacement := p.LoadLap("VER", 5, timedSamples(20, 25, 0))

	assert.Equal(t, 1, p.LapCount())
	got, err := p.Lap(model.NewLapKey("VER", 5))
	assert.NoError(t, err)
	assert.Same(t, replacement, got)
	assert.Len(t, got.Samples, 20)
	// reference resolves to the replacement
	assert.Same(t, replacement, p.ReferenceLap())
}

func TestProcessor_LoadLap_NormalizesSamples(t *testing.T) {
	p := NewProcessor()
	lap := p.LoadLap("VER", 1, []model.TelemetrySample{
		{Distance: 100, Speed: 200},
		{Distance: 0, Speed: 100},
		{Distance: 50, Speed: 150},
	})
	want := []float64{0, 50, 100}
	got := make([]float64, 0, len(lap.Samples))
	for i := range lap.Samples {
		got = append(got, lap.Samples[i].Distance)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("samples not sorted: %s", diff)
	}
}

func TestProcessor_Lap_NotFound(t *testing.T) {
	p := NewProcessor()
	_, err := p.Lap(model.NewLapKey("VER", 99))
	assert.True(t, errors.Is(err, ErrLapNotFound))
}

func TestProcessor_ReferenceLap(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(10, 50, 0))
	target := p.LoadLap("HAM", 7, timedSamples(10, 50, 250))

	err := p.SetReferenceLap(model.NewLapKey("HAM", 7))
	assert.NoError(t, err)
	assert.Same(t, target, p.ReferenceLap())

	err = p.SetReferenceLap(model.NewLapKey("RUS", 1))
	assert.True(t, errors.Is(err, ErrLapNotFound))
	// failed switch leaves the reference untouched
	assert.Same(t, target, p.ReferenceLap())

	p.ClearReferenceLap()
	assert.Nil(t, p.ReferenceLap())
}

func TestProcessor_Corners_OnOutlineLap(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, dipSamples(61, 10, 30))

	got := p.Corners()
	if len(got) != 1 {
		t.Fatalf("Corners() = %v, want one marker", got)
	}
	if got[0].Distance != 300 {
		t.Errorf("marker distance = %v, want 300", got[0].Distance)
	}
	// memoized result is handed out again
	assert.Equal(t, got, p.Corners())
}

func TestProcessor_Corners_RecomputedOnOutlineReload(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, dipSamples(61, 10, 30))
	assert.Len(t, p.Corners(), 1)

	// replacing the outline lap with a flat profile drops the marker
	p.LoadLap("VER", 5, timedSamples(61, 10, 0))
	assert.Empty(t, p.Corners())
}

func TestProcessor_Corners_NoLaps(t *testing.T) {
	p := NewProcessor()
	assert.Empty(t, p.Corners())
}

func TestProcessor_NearestAt(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, []model.TelemetrySample{
		{Distance: 0, Speed: 100},
		{Distance: 10, Speed: 150},
		{Distance: 20, Speed: 200},
		{Distance: 30, Speed: 250},
	})

	got, err := p.NearestAt(model.NewLapKey("VER", 5), 24)
	assert.NoError(t, err)
	assert.InDelta(t, 20.0, got.Distance, 1e-9)
	assert.InDelta(t, 200.0, got.Speed, 1e-9)

	_, err = p.NearestAt(model.NewLapKey("HAM", 1), 24)
	assert.True(t, errors.Is(err, ErrLapNotFound))
}

func TestProcessor_NearestAt_EmptyLap(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(10, 50, 0))
	p.LoadLap("HAM", 7, nil)

	got, err := p.NearestAt(model.NewLapKey("HAM", 7), 24)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestProcessor_DeltaAt(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(20, 50, 0))
	p.LoadLap("HAM", 7, timedSamples(20, 50, 250))
	key := model.NewLapKey("HAM", 7)

	got, err := p.DeltaAt(key, 500)
	assert.NoError(t, err)
	assert.InDelta(t, 0.25, got.DeltaSeconds, 1e-9)

	// without a reference the delta is 0
	p.ClearReferenceLap()
	got, err = p.DeltaAt(key, 500)
	assert.NoError(t, err)
	assert.Zero(t, got.DeltaSeconds)

	_, err = p.DeltaAt(model.NewLapKey("RUS", 1), 500)
	assert.True(t, errors.Is(err, ErrLapNotFound))
}

func TestProcessor_DeltaCurve(t *testing.T) {
	p := NewProcessor()
	ref := p.LoadLap("VER", 5, timedSamples(20, 50, 0))

	curve, err := p.DeltaCurve(ref.Key())
	assert.NoError(t, err)
	assert.Len(t, curve, 20)
	for _, s := range curve {
		assert.Zero(t, s.DeltaSeconds)
	}

	p.LoadLap("HAM", 7, timedSamples(20, 50, 250))
	curve, err = p.DeltaCurve(model.NewLapKey("HAM", 7))
	assert.NoError(t, err)
	for _, s := range curve {
		assert.InDelta(t, 0.25, s.DeltaSeconds, 1e-9)
	}
}

func TestProcessor_Layout(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(20, 50, 0))

	bands := p.Layout(600)
	assert.Len(t, bands, 6)
	heightSum := 0.0
	for _, b := range bands {
		heightSum += b.Height
	}
	assert.InDelta(t, 600.0, heightSum+5*layout.Padding, 1e-9)
}

func TestProcessor_Layout_CustomChannels(t *testing.T) {
	speed, _ := layout.ChannelByKey(layout.ChannelSpeed)
	gear, _ := layout.ChannelByKey(layout.ChannelGear)
	p := NewProcessor(WithChannels([]layout.ChannelSpec{speed, gear}))
	p.LoadLap("VER", 5, timedSamples(20, 50, 0))

	bands := p.Layout(300)
	assert.Len(t, bands, 2)
	assert.Equal(t, layout.ChannelSpeed, bands[0].Channel.Key)
	assert.Equal(t, layout.ChannelGear, bands[1].Channel.Key)
}

func TestProcessor_Projection(t *testing.T) {
	p := NewProcessor()
	p.LoadLap("VER", 5, timedSamples(10, 50, 0))
	// no positions in the samples
	assert.True(t, p.Projection(200, 200).IsIdentity())

	samples := timedSamples(10, 50, 0)
	for i := range samples {
		samples[i].X = lo.ToPtr(float64(i * 10))
		samples[i].Y = lo.ToPtr(float64(i * 5))
	}
	p.LoadLap("HAM", 7, samples)
	proj := p.Projection(200, 200)
	assert.False(t, proj.IsIdentity())
	assert.Greater(t, proj.Scale(), 0.0)
}

func TestProcessor_TrackStatus(t *testing.T) {
	p := NewProcessor()
	assert.Equal(t, model.TrackGreen, p.TrackStatus())

	// combined raw status, safety car wins over yellow
	assert.Equal(t, model.TrackSC, p.SetTrackStatus("124"))
	assert.Equal(t, model.TrackSC, p.TrackStatus())

	assert.Equal(t, model.TrackGreen, p.SetTrackStatus("1"))
}

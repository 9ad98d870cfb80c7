// Package layout computes the vertical arrangement of telemetry channels.
//
// Each active channel gets a horizontal band. The bands are stacked
// top-to-bottom in input order and separated by a fixed padding. The height
// of a band is derived from the channel weight, the value domain from the
// channel's domain policy applied to the union of samples across all loaded
// laps. There is no chart type hierarchy: one engine, parametrized by the
// channel descriptors.
package layout

import "github.com/f1plots/f1dash-service-manager-go/pkg/model"

// ChannelKey identifies a telemetry channel.
type ChannelKey string

const (
	ChannelSpeed    ChannelKey = "speed"
	ChannelDelta    ChannelKey = "delta"
	ChannelThrottle ChannelKey = "throttle"
	ChannelRpm      ChannelKey = "rpm"
	ChannelGear     ChannelKey = "gear"
	ChannelDrs      ChannelKey = "drs"
)

// Padding is the fixed vertical gap between adjacent bands
// (px-equivalent units).
const Padding = 10.0

// fallback domains used when no samples are loaded
const (
	defaultMaxSpeed = 360.0
	defaultMaxRpm   = 13000.0
)

type (
	// DomainPolicy computes the value domain [min,max] of a channel from
	// the union of samples across all loaded laps.
	DomainPolicy func(samples []model.TelemetrySample) [2]float64

	// ChannelSpec describes one renderable channel.
	ChannelSpec struct {
		Key          ChannelKey
		HeightWeight float64 // in (0,1]; sum over active channels <= 1
		Domain       DomainPolicy
	}

	// Band is the computed vertical slot of a channel. Bands are created
	// fresh per render pass and never mutated.
	Band struct {
		Channel     ChannelSpec
		YOffset     float64
		Height      float64
		ValueDomain [2]float64
	}
)

// Compute stacks one band per channel into totalHeight. Weights are taken
// relative to their sum, the padding sits between adjacent bands, so the
// band heights plus the gaps always fill totalHeight exactly. An empty
// channel list yields an empty band list.
//
//nolint:whitespace // can't make the linters happy
func Compute(
	channels []ChannelSpec, totalHeight float64, samples []model.TelemetrySample,
) []Band {
	if len(channels) == 0 {
		return []Band{}
	}
	weightSum := 0.0
	for i := range channels {
		weightSum += channels[i].HeightWeight
	}
	if weightSum <= 0 {
		return []Band{}
	}

	ret := make([]Band, 0, len(channels))
	yOffset := 0.0
	for i := range channels {
		slot := totalHeight * (channels[i].HeightWeight / weightSum)
		height := slot - Padding
		if i == len(channels)-1 {
			// no gap below the last band
			height = slot
		}
		domain := [2]float64{0, 1}
		if channels[i].Domain != nil {
			domain = channels[i].Domain(samples)
		}
		ret = append(ret, Band{
			Channel:     channels[i],
			YOffset:     yOffset,
			Height:      height,
			ValueDomain: domain,
		})
		yOffset += height + Padding
	}
	return ret
}

// DefaultChannels returns the standard channel set of the multi-channel
// telemetry view.
func DefaultChannels() []ChannelSpec {
	return []ChannelSpec{
		{Key: ChannelSpeed, HeightWeight: 0.30, Domain: SpeedDomain},
		{Key: ChannelDelta, HeightWeight: 0.15, Domain: DeltaDomain},
		{Key: ChannelThrottle, HeightWeight: 0.15, Domain: ThrottleDomain},
		{Key: ChannelRpm, HeightWeight: 0.20, Domain: RpmDomain},
		{Key: ChannelGear, HeightWeight: 0.10, Domain: GearDomain},
		{Key: ChannelDrs, HeightWeight: 0.10, Domain: DrsDomain},
	}
}

// ChannelByKey returns the default spec for a single channel.
func ChannelByKey(key ChannelKey) (ChannelSpec, bool) {
	for _, c := range DefaultChannels() {
		if c.Key == key {
			return c, true
		}
	}
	return ChannelSpec{}, false
}

// SpeedDomain is [0, maxSpeed*1.05]. Falls back to [0,360] when no samples
// are present.
func SpeedDomain(samples []model.TelemetrySample) [2]float64 {
	maxVal := 0.0
	for i := range samples {
		if samples[i].Speed > maxVal {
			maxVal = samples[i].Speed
		}
	}
	if maxVal <= 0 {
		return [2]float64{0, defaultMaxSpeed}
	}
	return [2]float64{0, maxVal * 1.05}
}

// DeltaDomain is fixed [-2,2] seconds. Values outside are clipped by the
// rendering layer.
func DeltaDomain(_ []model.TelemetrySample) [2]float64 {
	return [2]float64{-2, 2}
}

func ThrottleDomain(_ []model.TelemetrySample) [2]float64 {
	return [2]float64{0, 100}
}

// RpmDomain is [0, maxRpm*1.05]. Falls back to [0,13000] when no samples
// are present.
func RpmDomain(samples []model.TelemetrySample) [2]float64 {
	maxVal := 0
	for i := range samples {
		if samples[i].Rpm > maxVal {
			maxVal = samples[i].Rpm
		}
	}
	if maxVal <= 0 {
		return [2]float64{0, defaultMaxRpm}
	}
	return [2]float64{0, float64(maxVal) * 1.05}
}

func GearDomain(_ []model.TelemetrySample) [2]float64 {
	return [2]float64{0, 8}
}

func DrsDomain(_ []model.TelemetrySample) [2]float64 {
	return [2]float64{0, 1}
}

// ClipDelta clips a delta value to the delta channel domain.
func ClipDelta(v float64) float64 {
	switch {
	case v < -2:
		return -2
	case v > 2:
		return 2
	}
	return v
}

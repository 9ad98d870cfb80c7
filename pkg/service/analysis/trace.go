package analysis

import "github.com/f1plots/f1dash-service-manager-go/pkg/model"

//nolint:tagliatelle // client compatibility
type (
	// GearChange is one gear transition within a lap.
	GearChange struct {
		Distance float64 `json:"distance"`
		FromGear int     `json:"fromGear"`
		ToGear   int     `json:"toGear"`
		Speed    float64 `json:"speed"`
	}
	// SpeedTracePoint is the plotting extract of one telemetry sample.
	SpeedTracePoint struct {
		Distance float64 `json:"distance"`
		Speed    float64 `json:"speed"`
		Gear     int     `json:"gear"`
		Throttle float64 `json:"throttle"`
		Brake    bool    `json:"brake"`
		DrsOpen  bool    `json:"drsOpen"`
	}
)

// GearChanges walks the samples of a lap and emits one entry per gear
// transition.
func GearChanges(lap *model.LapTelemetry) []GearChange {
	ret := []GearChange{}
	if lap == nil || len(lap.Samples) == 0 {
		return ret
	}
	prevGear := lap.Samples[0].Gear
	for i := range lap.Samples[1:] {
		sample := &lap.Samples[i+1]
		if sample.Gear != prevGear {
			ret = append(ret, GearChange{
				Distance: sample.Distance,
				FromGear: prevGear,
				ToGear:   sample.Gear,
				Speed:    sample.Speed,
			})
			prevGear = sample.Gear
		}
	}
	return ret
}

// SpeedTrace extracts the plotting channels of a lap.
func SpeedTrace(lap *model.LapTelemetry) []SpeedTracePoint {
	ret := []SpeedTracePoint{}
	if lap == nil {
		return ret
	}
	for i := range lap.Samples {
		sample := &lap.Samples[i]
		ret = append(ret, SpeedTracePoint{
			Distance: sample.Distance,
			Speed:    sample.Speed,
			Gear:     sample.Gear,
			Throttle: sample.Throttle,
			Brake:    sample.Brake,
			DrsOpen:  sample.DrsOpen(),
		})
	}
	return ret
}

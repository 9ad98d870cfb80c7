// Package normalize prepares raw telemetry samples for analysis.
package normalize

import (
	"sort"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
)

// Normalize builds a LapTelemetry from raw samples. The samples are copied
// and sorted ascending by distance. The sort is stable, samples with equal
// distance keep their input order and are not collapsed. Samples with
// missing optional attributes (position, time offset) are kept as is.
// An empty input yields a lap with zero samples which all downstream
// consumers treat as "no data".
//
//nolint:whitespace // can't make the linters happy
func Normalize(
	driverID string, lapNumber int, samples []model.TelemetrySample,
) *model.LapTelemetry {
	ret := &model.LapTelemetry{
		DriverID:  driverID,
		LapNumber: lapNumber,
		Samples:   make([]model.TelemetrySample, len(samples)),
	}
	copy(ret.Samples, samples)
	sort.SliceStable(ret.Samples, func(i, j int) bool {
		return ret.Samples[i].Distance < ret.Samples[j].Distance
	})
	return ret
}

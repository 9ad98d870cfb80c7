//nolint:whitespace // can't make both editor and linter happy
package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
)

var meter = otel.Meter("analysis-service")

// fuel model: ~110kg at race start, ~0.03s/lap/kg, ~3.3s total effect
// over the race distance
const (
	totalFuelEffect    = 3.3
	fallbackFuelEffect = 0.059
	freshTireMaxLife   = 3
	freshTireMinLife   = 1
)

//nolint:tagliatelle // client compatibility
type (
	FastestLapInfo struct {
		Driver    string  `json:"driver"`
		LapNumber int     `json:"lapNumber"`
		Time      float64 `json:"time"` // seconds
		TyreLife  int     `json:"tyreLife"`
	}
	// CompoundStats holds the pace statistics of one tire compound.
	// All times are seconds.
	CompoundStats struct {
		Count                int            `json:"count"`
		Fastest              float64        `json:"fastest"`
		Average              float64        `json:"average"`
		Slowest              float64        `json:"slowest"`
		FastestFuelCorrected float64        `json:"fastestFuelCorrected"`
		AverageFuelCorrected float64        `json:"averageFuelCorrected"`
		FreshTirePace        float64        `json:"freshTirePace"`
		FastestLap           FastestLapInfo `json:"fastestLap"`
	}
	// DriverStats holds the pace statistics of one driver. All times are
	// seconds.
	DriverStats struct {
		LapCount int     `json:"lapCount"`
		Fastest  float64 `json:"fastest"`
		Average  float64 `json:"average"`
		Median   float64 `json:"median"`
	}
)

type AnalysisService struct {
	pool     *pgxpool.Pool
	recorder metric.Float64Histogram
}

func NewAnalysisService(pool *pgxpool.Pool) *AnalysisService {
	recorder, _ := meter.Float64Histogram("analysis_compute",
		metric.WithDescription("computation of lap analysis data"),
		metric.WithUnit("s"))
	return &AnalysisService{pool: pool, recorder: recorder}
}

// GetCompoundPerformance computes per-compound pace statistics over the
// valid laps of a session. Lap times are normalized to start-of-race fuel
// load: a lap at the end of the race is faster due to less fuel, the burned
// fuel benefit is added back. The fresh tire pace is the fuel-corrected
// baseline of the first laps on a tire set.
func (s *AnalysisService) GetCompoundPerformance(
	ctx context.Context, sessionID string,
) (map[string]*CompoundStats, error) {
	start := time.Now()
	defer func() {
		s.recorder.Record(ctx, time.Since(start).Seconds())
	}()

	dbLaps, err := laprepos.LoadValidForAnalysis(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	laps := make([]*model.Lap, 0, len(dbLaps))
	for _, item := range dbLaps {
		laps = append(laps, item.ToLap())
	}

	ret := make(map[string]*CompoundStats)
	if len(laps) == 0 {
		return ret, nil
	}

	totalLaps := 0
	for _, lap := range laps {
		if lap.LapNumber > totalLaps {
			totalLaps = lap.LapNumber
		}
	}
	fuelEffect := decimal.NewFromFloat(fallbackFuelEffect)
	if totalLaps > 0 {
		fuelEffect = decimal.NewFromFloat(totalFuelEffect).
			Div(decimal.NewFromInt(int64(totalLaps)))
	}

	for _, compound := range model.Compounds() {
		compoundLaps := make([]*model.Lap, 0, len(laps))
		for _, lap := range laps {
			if lap.Compound == compound {
				compoundLaps = append(compoundLaps, lap)
			}
		}
		if len(compoundLaps) == 0 {
			continue
		}
		ret[string(compound)] = compoundStats(compoundLaps, fuelEffect)
	}
	return ret, nil
}

func compoundStats(laps []*model.Lap, fuelEffect decimal.Decimal) *CompoundStats {
	count := decimal.NewFromInt(int64(len(laps)))

	fastest := laps[0]
	slowest := laps[0]
	rawSum := decimal.Zero
	correctedSum := decimal.Zero
	fastestCorrected := corrected(laps[0], fuelEffect)
	freshSum := decimal.Zero
	freshCount := 0

	for _, lap := range laps {
		if lap.LapTimeSeconds() < fastest.LapTimeSeconds() {
			fastest = lap
		}
		if lap.LapTimeSeconds() > slowest.LapTimeSeconds() {
			slowest = lap
		}
		rawSum = rawSum.Add(decimal.NewFromFloat(lap.LapTimeSeconds()))

		corr := corrected(lap, fuelEffect)
		correctedSum = correctedSum.Add(corr)
		if corr.LessThan(fastestCorrected) {
			fastestCorrected = corr
		}
		if lap.TyreLife >= freshTireMinLife && lap.TyreLife <= freshTireMaxLife {
			freshSum = freshSum.Add(corr)
			freshCount++
		}
	}

	freshTirePace := fastestCorrected
	if freshCount > 0 {
		freshTirePace = freshSum.Div(decimal.NewFromInt(int64(freshCount)))
	}

	return &CompoundStats{
		Count:                len(laps),
		Fastest:              fastest.LapTimeSeconds(),
		Average:              rawSum.Div(count).InexactFloat64(),
		Slowest:              slowest.LapTimeSeconds(),
		FastestFuelCorrected: fastestCorrected.InexactFloat64(),
		AverageFuelCorrected: correctedSum.Div(count).InexactFloat64(),
		FreshTirePace:        freshTirePace.InexactFloat64(),
		FastestLap: FastestLapInfo{
			Driver:    fastest.DriverID,
			LapNumber: fastest.LapNumber,
			Time:      fastest.LapTimeSeconds(),
			TyreLife:  fastest.TyreLife,
		},
	}
}

// corrected normalizes a lap time to start-of-race fuel load. Lap 1 burns
// the first lap of fuel, so lapNumber-1 laps of benefit are added back.
func corrected(lap *model.Lap, fuelEffect decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(lap.LapTimeSeconds()).
		Add(fuelEffect.Mul(decimal.NewFromInt(int64(lap.LapNumber - 1))))
}

// CompareDrivers computes the pace statistics of the given drivers over
// their valid laps. A driver without valid laps gets a nil entry.
func (s *AnalysisService) CompareDrivers(
	ctx context.Context, sessionID string, driverIDs []string,
) (map[string]*DriverStats, error) {
	start := time.Now()
	defer func() {
		s.recorder.Record(ctx, time.Since(start).Seconds())
	}()

	ret := make(map[string]*DriverStats)
	for _, driverID := range driverIDs {
		dbLaps, err := laprepos.LoadBySessionAndDriver(ctx, s.pool, sessionID, driverID)
		if err != nil {
			return nil, err
		}
		laps := make([]*model.Lap, 0, len(dbLaps))
		for _, item := range dbLaps {
			laps = append(laps, item.ToLap())
		}
		ret[driverID] = driverStats(laps)
	}
	return ret, nil
}

// GetLapDistribution returns the valid lap times per driver in seconds.
func (s *AnalysisService) GetLapDistribution(
	ctx context.Context, sessionID string,
) (map[string][]float64, error) {
	dbLaps, err := laprepos.LoadValidForAnalysis(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	ret := make(map[string][]float64)
	for _, item := range dbLaps {
		lap := item.ToLap()
		ret[lap.DriverID] = append(ret[lap.DriverID], lap.LapTimeSeconds())
	}
	return ret, nil
}

func driverStats(laps []*model.Lap) *DriverStats {
	times := make([]float64, 0, len(laps))
	for _, lap := range laps {
		if lap.IsValidForAnalysis() {
			times = append(times, lap.LapTimeSeconds())
		}
	}
	if len(times) == 0 {
		return nil
	}
	sort.Float64s(times)
	sum := 0.0
	for _, t := range times {
		sum += t
	}
	return &DriverStats{
		LapCount: len(times),
		Fastest:  times[0],
		Average:  sum / float64(len(times)),
		Median:   times[len(times)/2],
	}
}

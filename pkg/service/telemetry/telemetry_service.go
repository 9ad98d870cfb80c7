//nolint:whitespace // can't make both editor and linter happy
package telemetry

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/normalize"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
	telemetryrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/telemetry"
	analysissvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/analysis"
	utilsCache "github.com/f1plots/f1dash-service-manager-go/pkg/utils/cache"
)

type TelemetryService struct {
	pool     *pgxpool.Pool
	lapCache utilsCache.Cache[lapCacheKey, model.LapTelemetry]
}

func NewTelemetryService(pool *pgxpool.Pool) *TelemetryService {
	return &TelemetryService{pool: pool, lapCache: newLapTelemetryCache(pool)}
}

// SaveLapTelemetry normalizes and stores the samples of one lap.
func (s *TelemetryService) SaveLapTelemetry(
	ctx context.Context, sessionID string, arg *model.LapTelemetry,
) error {
	lap := normalize.Normalize(arg.DriverID, arg.LapNumber, arg.Samples)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		item := &model.DbTelemetry{
			SessionID: sessionID,
			DriverID:  lap.DriverID,
			LapNumber: lap.LapNumber,
			Samples:   lap.Samples,
		}
		if err := telemetryrepos.Upsert(ctx, tx.Conn(), item); err != nil {
			return err
		}
		log.Debug("Stored lap telemetry",
			log.String("session", sessionID),
			log.String("driver", lap.DriverID),
			log.Int("lap", lap.LapNumber),
			log.Int("samples", len(lap.Samples)))
		return nil
	})
	if err != nil {
		return err
	}
	s.lapCache.Invalidate(ctx,
		lapCacheKey{sessionID: sessionID, driverID: lap.DriverID, lapNumber: lap.LapNumber})
	return nil
}

// GetLapTelemetry returns the stored samples of a lap or nil when no
// telemetry exists. Loaded laps are served from the cache until a
// reingest invalidates them.
func (s *TelemetryService) GetLapTelemetry(
	ctx context.Context, sessionID, driverID string, lapNumber int,
) (*model.LapTelemetry, error) {
	key := lapCacheKey{sessionID: sessionID, driverID: driverID, lapNumber: lapNumber}
	item, err := s.lapCache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// GetFastestLapTelemetry returns the telemetry of the driver's fastest
// valid lap, nil when the driver has no valid lap or no stored telemetry.
func (s *TelemetryService) GetFastestLapTelemetry(
	ctx context.Context, sessionID, driverID string,
) (*model.LapTelemetry, error) {
	fastest, err := laprepos.LoadFastestLap(ctx, s.pool, sessionID, driverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s.GetLapTelemetry(ctx, sessionID, driverID, fastest.LapNumber)
}

func (s *TelemetryService) HasTelemetry(
	ctx context.Context, sessionID, driverID string, lapNumber int,
) (bool, error) {
	lap, err := s.GetLapTelemetry(ctx, sessionID, driverID, lapNumber)
	if err != nil {
		return false, err
	}
	return lap != nil, nil
}

// GetAvailableLaps lists the lap numbers with stored telemetry.
func (s *TelemetryService) GetAvailableLaps(
	ctx context.Context, sessionID, driverID string,
) ([]int, error) {
	return telemetryrepos.LoadLapNumbersByDriver(ctx, s.pool, sessionID, driverID)
}

// Frame is the full telemetry of one lap including the lap time when the
// lap itself is stored.
//
//nolint:tagliatelle // client compatibility
type Frame struct {
	SessionID   string                  `json:"sessionId"`
	DriverID    string                  `json:"driverId"`
	LapNumber   int                     `json:"lapNumber"`
	LapTimeMs   *float64                `json:"lapTimeMs"`
	PointCount  int                     `json:"pointCount"`
	MaxSpeed    float64                 `json:"maxSpeed"`
	TrackLength float64                 `json:"trackLength"`
	Points      []model.TelemetrySample `json:"points"`
}

// GetFrame returns the full frame of a lap, nil when no telemetry exists.
func (s *TelemetryService) GetFrame(
	ctx context.Context, sessionID, driverID string, lapNumber int,
) (*Frame, error) {
	lap, err := s.GetLapTelemetry(ctx, sessionID, driverID, lapNumber)
	if err != nil || lap == nil {
		return nil, err
	}
	ret := &Frame{
		SessionID:   sessionID,
		DriverID:    driverID,
		LapNumber:   lapNumber,
		PointCount:  len(lap.Samples),
		MaxSpeed:    lap.MaxSpeed(),
		TrackLength: lap.TrackLength(),
		Points:      lap.Samples,
	}
	if dbLap, err := laprepos.LoadByKey(
		ctx, s.pool, sessionID, driverID, lapNumber); err == nil {
		ret.LapTimeMs = dbLap.LapTimeMs
	}
	return ret, nil
}

// GetSpeedTrace returns the per-sample plotting channels of a lap, nil
// when the lap has no stored telemetry.
func (s *TelemetryService) GetSpeedTrace(
	ctx context.Context, sessionID, driverID string, lapNumber int,
) ([]analysissvc.SpeedTracePoint, error) {
	lap, err := s.GetLapTelemetry(ctx, sessionID, driverID, lapNumber)
	if err != nil || lap == nil {
		return nil, err
	}
	return analysissvc.SpeedTrace(lap), nil
}

// GetGearChanges extracts the gear shift points of a lap, nil when the lap
// has no stored telemetry.
func (s *TelemetryService) GetGearChanges(
	ctx context.Context, sessionID, driverID string, lapNumber int,
) ([]analysissvc.GearChange, error) {
	lap, err := s.GetLapTelemetry(ctx, sessionID, driverID, lapNumber)
	if err != nil || lap == nil {
		return nil, err
	}
	return analysissvc.GearChanges(lap), nil
}

// LapSelector addresses one lap in comparison requests.
//
//nolint:tagliatelle // client compatibility
type LapSelector struct {
	DriverID  string `json:"driverId"`
	LapNumber int    `json:"lapNumber"`
}

// LapComparison is the comparable extract of one lap.
//
//nolint:tagliatelle // client compatibility
type LapComparison struct {
	DriverID   string                  `json:"driverId"`
	LapNumber  int                     `json:"lapNumber"`
	LapTimeMs  *float64                `json:"lapTimeMs"`
	MaxSpeed   float64                 `json:"maxSpeed"`
	PointCount int                     `json:"pointCount"`
	Samples    []model.TelemetrySample `json:"samples"`
}

// CompareLaps collects the telemetry of the requested laps. Laps without
// stored telemetry are skipped.
func (s *TelemetryService) CompareLaps(
	ctx context.Context, sessionID string, selectors []LapSelector,
) ([]*LapComparison, error) {
	ret := make([]*LapComparison, 0, len(selectors))
	for _, sel := range selectors {
		lap, err := s.GetLapTelemetry(ctx, sessionID, sel.DriverID, sel.LapNumber)
		if err != nil {
			return nil, err
		}
		if lap == nil {
			continue
		}
		item := &LapComparison{
			DriverID:   sel.DriverID,
			LapNumber:  sel.LapNumber,
			MaxSpeed:   lap.MaxSpeed(),
			PointCount: len(lap.Samples),
			Samples:    lap.Samples,
		}
		if dbLap, err := laprepos.LoadByKey(
			ctx, s.pool, sessionID, sel.DriverID, sel.LapNumber); err == nil {
			item.LapTimeMs = dbLap.LapTimeMs
		}
		ret = append(ret, item)
	}
	return ret, nil
}

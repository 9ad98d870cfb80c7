package telemetry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	telemetryrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/telemetry"
	utilsCache "github.com/f1plots/f1dash-service-manager-go/pkg/utils/cache"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils/cache/loadercache"
)

type lapCacheKey struct {
	sessionID string
	driverID  string
	lapNumber int
}

// Samples are immutable between ingests, so loaded laps are cached and
// invalidated on reingest.
func newLapTelemetryCache(
	pool *pgxpool.Pool,
) utilsCache.Cache[lapCacheKey, model.LapTelemetry] {
	return loadercache.New(loadercache.WithLoader(
		func(key lapCacheKey) (*model.LapTelemetry, error) {
			item, err := telemetryrepos.LoadByLap(context.Background(), pool,
				key.sessionID, key.driverID, key.lapNumber)
			if err != nil {
				return nil, err
			}
			return item.ToLapTelemetry(), nil
		}))
}

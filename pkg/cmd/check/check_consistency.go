package check

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/config"
	"github.com/f1plots/f1dash-service-manager-go/pkg/db/postgres"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	driverrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/driver"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
	sessionrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/session"
	telemetryrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/telemetry"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

func NewCheckConsistencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consistency sessionId",
		Short: "check a stored session for inconsistent data (dev only)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency(cmd.Context(), args[0])
		},
	}

	return cmd
}

//nolint:funlen,gocognit // collection of checks
func checkConsistency(ctx context.Context, sessionID string) {
	logger := log.GetFromContext(ctx).Named("check")
	// wait for database
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		logger.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err = utils.WaitForTCP(postgresAddr, timeout); err != nil {
		logger.Fatal("database not ready", log.ErrorField(err))
	}
	pool := postgres.InitWithUrl(config.DB)
	defer pool.Close()

	if _, err = sessionrepos.LoadById(ctx, pool, sessionID); err != nil {
		logger.Fatal("session not found",
			log.String("session", sessionID), log.ErrorField(err))
	}
	problems := 0

	drivers, err := driverrepos.LoadBySessionId(ctx, pool, sessionID)
	if err != nil {
		logger.Fatal("error loading drivers", log.ErrorField(err))
	}
	assigned := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		assigned[d.Abbreviation] = true
	}

	laps, err := laprepos.LoadBySessionId(ctx, pool, sessionID)
	if err != nil {
		logger.Fatal("error loading laps", log.ErrorField(err))
	}
	lapKeys := make(map[model.LapKey]bool, len(laps))
	for _, l := range laps {
		lapKeys[model.NewLapKey(l.DriverID, l.LapNumber)] = true
		if !assigned[l.DriverID] {
			problems++
			logger.Warn("lap of a driver not assigned to the session",
				log.String("driver", l.DriverID), log.Int("lap", l.LapNumber))
		}
	}

	keys, err := telemetryrepos.LoadKeysBySessionId(ctx, pool, sessionID)
	if err != nil {
		logger.Fatal("error loading telemetry keys", log.ErrorField(err))
	}
	for _, k := range keys {
		if !lapKeys[model.NewLapKey(k.DriverID, k.LapNumber)] {
			problems++
			logger.Warn("telemetry without a matching lap",
				log.String("driver", k.DriverID), log.Int("lap", k.LapNumber))
		}
		item, err := telemetryrepos.LoadByLap(ctx, pool,
			sessionID, k.DriverID, k.LapNumber)
		if err != nil {
			logger.Fatal("error loading telemetry", log.ErrorField(err))
		}
		for i := range item.Samples[1:] {
			if item.Samples[i+1].Distance < item.Samples[i].Distance {
				problems++
				logger.Warn("telemetry samples not ordered by distance",
					log.String("driver", k.DriverID), log.Int("lap", k.LapNumber),
					log.Int("sample", i+1))
				break
			}
		}
	}

	logger.Info("check done",
		log.String("session", sessionID),
		log.Int("drivers", len(drivers)),
		log.Int("laps", len(laps)),
		log.Int("telemetryLaps", len(keys)),
		log.Int("problems", problems))
}

package check

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/config"
	"github.com/f1plots/f1dash-service-manager-go/pkg/db/postgres"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

func NewDisplayLapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laps sessionId",
		Short: "display laps (dev only)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			displayLaps(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&driverArg, "driver", "", "limit output to this driver")

	return cmd
}

func displayLaps(ctx context.Context, sessionID string) {
	logger := log.GetFromContext(ctx).Named("check")
	logger.Info("display laps")
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
	laps, err := laprepos.LoadBySessionId(ctx, pool, sessionID)
	if err != nil {
		logger.Fatal("error loading laps", log.ErrorField(err))
	}
	logger.Info("got laps: ", log.Int("count", len(laps)))
	for _, l := range laps {
		if driverArg != "" && l.DriverID != driverArg {
			continue
		}
		logger.Info("lap", log.String("driver", l.DriverID),
			log.Int("lap", l.LapNumber),
			log.Any("timeMs", l.LapTimeMs),
			log.String("compound", l.Compound),
			log.Int("stint", l.Stint),
			log.Any("deleted", l.Deleted))
	}
}

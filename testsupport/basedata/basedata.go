package basedata

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	driverrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/driver"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
	sessionrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/session"
)

const SampleSessionID = "2024_05_R"

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-05-05T20:00:00Z")
	return t
}

func SampleSession() *model.DbSession {
	return &model.DbSession{
		ID:          SampleSessionID,
		Year:        2024,
		RoundNumber: 5,
		EventName:   "Miami Grand Prix",
		SessionType: string(model.SessionRace),
		TrackName:   "Miami International Autodrome",
		Country:     "United States",
		Location:    "Miami",
		Date:        TestTime(),
		TotalLaps:   57,
	}
}

func SampleDrivers() []*model.DbDriver {
	return []*model.DbDriver{
		{
			Abbreviation: "VER", CarNumber: 1, FullName: "Max Verstappen",
			TeamName: "Red Bull Racing", TeamColor: "#3671C6",
		},
		{
			Abbreviation: "HAM", CarNumber: 44, FullName: "Lewis Hamilton",
			TeamName: "Mercedes", TeamColor: "#27F4D2",
		},
	}
}

// SampleLaps returns three laps per sample driver. Lap 1 is a pit out lap
// and not valid for analysis.
func SampleLaps() []*model.DbLap {
	ret := make([]*model.DbLap, 0)
	for i, abbr := range []string{"VER", "HAM"} {
		base := 90000.0 + float64(i)*350
		ret = append(ret,
			&model.DbLap{
				SessionID: SampleSessionID, DriverID: abbr, LapNumber: 1,
				LapTimeMs: lo.ToPtr(base + 5000), Compound: "MEDIUM",
				TyreLife: 1, Stint: 1, IsPitOutLap: true,
			},
			&model.DbLap{
				SessionID: SampleSessionID, DriverID: abbr, LapNumber: 2,
				LapTimeMs: lo.ToPtr(base + 400),
				Sector1Ms: lo.ToPtr(28000.0), Sector2Ms: lo.ToPtr(31000.0),
				Sector3Ms: lo.ToPtr(base + 400 - 59000),
				Compound:  "MEDIUM", TyreLife: 2, Stint: 1,
			},
			&model.DbLap{
				SessionID: SampleSessionID, DriverID: abbr, LapNumber: 3,
				LapTimeMs: lo.ToPtr(base),
				Sector1Ms: lo.ToPtr(27800.0), Sector2Ms: lo.ToPtr(30900.0),
				Sector3Ms: lo.ToPtr(base - 58700),
				Compound:  "MEDIUM", TyreLife: 3, Stint: 1,
				SpeedTrapFL: lo.ToPtr(312.0 + float64(i)),
			},
		)
	}
	return ret
}

// SampleTelemetry returns evenly spaced samples along a diagonal line.
func SampleTelemetry(num int, spacing float64) []model.TelemetrySample {
	ret := make([]model.TelemetrySample, num)
	for i := range num {
		ret[i] = model.TelemetrySample{
			Distance:     float64(i) * spacing,
			TimeOffsetMs: lo.ToPtr(float64(i) * 100),
			Speed:        250 + float64(i%10),
			Throttle:     100,
			Rpm:          11000,
			Gear:         7,
			X:            lo.ToPtr(float64(i) * 2),
			Y:            lo.ToPtr(float64(i)),
		}
	}
	return ret
}

// CreateSampleSession persists the sample session with its drivers and laps
// in a single transaction.
func CreateSampleSession(db *pgxpool.Pool) *model.DbSession {
	ctx := context.Background()
	sampleSession := SampleSession()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		if err := sessionrepos.Create(ctx, tx, sampleSession); err != nil {
			return err
		}
		for _, d := range SampleDrivers() {
			stored, err := driverrepos.Ensure(ctx, tx, d)
			if err != nil {
				return err
			}
			if err := driverrepos.AssignToSession(
				ctx, tx, sampleSession.ID, stored.ID); err != nil {
				return err
			}
		}
		for _, l := range SampleLaps() {
			if err := laprepos.Upsert(ctx, tx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("createSampleSession: %v\n", err)
	}

	return sampleSession
}

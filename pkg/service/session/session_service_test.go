//nolint:funlen,errcheck //ok for this test code
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/testsupport/basedata"
	"github.com/f1plots/f1dash-service-manager-go/testsupport/testdb"
)

func TestSessionService_CreateAndGet(t *testing.T) {
	pool := testdb.InitTestDb()
	svc := NewSessionService(pool)
	ctx := context.Background()

	date, _ := time.Parse(time.RFC3339, "2024-06-09T18:00:00Z")
	arg := &model.Session{
		Year: 2024, RoundNumber: 9, EventName: "Canadian Grand Prix",
		SessionType: model.SessionRace, TrackName: "Circuit Gilles Villeneuve",
		Country: "Canada", Location: "Montreal", Date: date, TotalLaps: 70,
	}
	require.NoError(t, svc.CreateSession(ctx, arg))
	// the canonical id is derived when none is given
	assert.Equal(t, "2024_09_R", arg.ID)

	got, err := svc.GetSession(ctx, "2024_09_R")
	require.NoError(t, err)
	assert.Equal(t, "Canadian Grand Prix", got.EventName)
	assert.Equal(t, model.SessionRace, got.SessionType)

	// unknown ids return nil without error
	got, err = svc.GetSession(ctx, "2024_99_R")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionService_ListAndEvents(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleSession(pool)
	svc := NewSessionService(pool)
	ctx := context.Background()

	date, _ := time.Parse(time.RFC3339, "2024-05-04T21:00:00Z")
	require.NoError(t, svc.CreateSession(ctx, &model.Session{
		Year: 2024, RoundNumber: 5, EventName: "Miami Grand Prix",
		SessionType: model.SessionQualifying, Date: date,
	}))

	sessions, err := svc.ListSessions(ctx, 2024, "", 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	races, err := svc.ListSessions(ctx, 2024, model.SessionRace, 0)
	require.NoError(t, err)
	require.Len(t, races, 1)
	assert.Equal(t, basedata.SampleSessionID, races[0].ID)

	years, err := svc.GetYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)

	events, err := svc.GetEventsForYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Miami Grand Prix", events[0].EventName)
	assert.ElementsMatch(t,
		[]model.SessionType{model.SessionQualifying, model.SessionRace},
		events[0].SessionTypes)

	weekend, err := svc.GetEventSessions(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Len(t, weekend, 2)
}

func TestSessionService_Drivers(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleSession(pool)
	svc := NewSessionService(pool)
	ctx := context.Background()

	require.NoError(t, svc.RegisterDriver(ctx, basedata.SampleSessionID,
		&model.Driver{
			ID: "ALO", Number: 14, FullName: "Fernando Alonso",
			TeamName: "Aston Martin", TeamColor: "#358C75",
		}))

	drivers, err := svc.GetDrivers(ctx, basedata.SampleSessionID)
	require.NoError(t, err)
	abbrevs := make([]string, 0)
	for _, d := range drivers {
		abbrevs = append(abbrevs, d.ID)
	}
	// ordered by car number: VER 1, ALO 14, HAM 44
	assert.Equal(t, []string{"VER", "ALO", "HAM"}, abbrevs)
}

func TestSessionService_Laps(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleSession(pool)
	svc := NewSessionService(pool)
	ctx := context.Background()

	all, err := svc.GetLaps(ctx, basedata.SampleSessionID, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	verLaps, err := svc.GetLaps(ctx, basedata.SampleSessionID, "VER")
	require.NoError(t, err)
	require.Len(t, verLaps, 3)
	assert.Equal(t, model.CompoundMedium, verLaps[0].Compound)

	fastest, err := svc.GetFastestLaps(ctx, basedata.SampleSessionID, 1)
	require.NoError(t, err)
	require.Len(t, fastest, 1)
	assert.Equal(t, "VER", fastest[0].DriverID)
	assert.Equal(t, 3, fastest[0].LapNumber)

	bests, err := svc.GetPersonalBests(ctx, basedata.SampleSessionID)
	require.NoError(t, err)
	require.Len(t, bests, 2)
	// fastest driver first, pit out laps never win
	assert.Equal(t, "VER", bests[0].DriverID)
	assert.Equal(t, "HAM", bests[1].DriverID)

	stint, err := svc.GetStintLaps(ctx, basedata.SampleSessionID, "VER", 1)
	require.NoError(t, err)
	assert.Len(t, stint, 3)
}

func TestSessionService_IngestLaps(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleSession(pool)
	svc := NewSessionService(pool)
	ctx := context.Background()

	lapTime := 89900.0
	require.NoError(t, svc.IngestLaps(ctx, basedata.SampleSessionID,
		[]*model.Lap{
			{
				DriverID: "VER", LapNumber: 4, LapTimeMs: &lapTime,
				Compound: model.CompoundHard, TyreLife: 1, Stint: 2,
			},
		}))

	verLaps, err := svc.GetLaps(ctx, basedata.SampleSessionID, "VER")
	require.NoError(t, err)
	assert.Len(t, verLaps, 4)

	require.NoError(t, svc.UpdateTotalLaps(ctx, basedata.SampleSessionID, 58))
	got, err := svc.GetSession(ctx, basedata.SampleSessionID)
	require.NoError(t, err)
	assert.Equal(t, 58, got.TotalLaps)
}

func TestSessionService_DeleteSession(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleSession(pool)
	svc := NewSessionService(pool)
	ctx := context.Background()

	require.NoError(t, svc.DeleteSession(ctx, basedata.SampleSessionID))

	got, err := svc.GetSession(ctx, basedata.SampleSessionID)
	require.NoError(t, err)
	assert.Nil(t, got)

	laps, err := svc.GetLaps(ctx, basedata.SampleSessionID, "")
	require.NoError(t, err)
	assert.Empty(t, laps)
}

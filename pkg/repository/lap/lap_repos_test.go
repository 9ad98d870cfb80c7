//nolint:dupl,funlen,errcheck //ok for this test code
package lap

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	driverrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/driver"
	sessionrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/session"
	tcpg "github.com/f1plots/f1dash-service-manager-go/testsupport/tcpostgres"
)

const testSessionID = "2023_06_R"

func initTestDb() *pgxpool.Pool {
	pool := tcpg.SetupTestDb()
	tcpg.ClearAllTables(pool)
	createTestdata(pool)
	return pool
}

// one session with two drivers. GAS has laps 1-3 (lap 1 is a pit out lap),
// OCO has laps 1-2 on two stints plus a deleted lap 3.
func createTestdata(db *pgxpool.Pool) {
	ctx := context.Background()
	date, _ := time.Parse(time.RFC3339, "2023-06-18T14:00:00Z")
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		if err := sessionrepos.Create(ctx, tx.Conn(), &model.DbSession{
			ID: testSessionID, Year: 2023, RoundNumber: 6,
			EventName: "Canadian Grand Prix", SessionType: "R", Date: date,
		}); err != nil {
			return err
		}
		for _, d := range []*model.DbDriver{
			{Abbreviation: "GAS", CarNumber: 10, FullName: "Pierre Gasly"},
			{Abbreviation: "OCO", CarNumber: 31, FullName: "Esteban Ocon"},
		} {
			if _, err := driverrepos.Ensure(ctx, tx.Conn(), d); err != nil {
				return err
			}
		}
		for _, l := range testLaps() {
			if err := Upsert(ctx, tx.Conn(), l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("createTestdata: %v\n", err)
	}
}

func testLaps() []*model.DbLap {
	return []*model.DbLap{
		{
			SessionID: testSessionID, DriverID: "GAS", LapNumber: 1,
			LapTimeMs: lo.ToPtr(95000.0), Compound: "MEDIUM", TyreLife: 1,
			Stint: 1, IsPitOutLap: true,
		},
		{
			SessionID: testSessionID, DriverID: "GAS", LapNumber: 2,
			LapTimeMs: lo.ToPtr(90500.0), Compound: "MEDIUM", TyreLife: 2,
			Stint: 1,
		},
		{
			SessionID: testSessionID, DriverID: "GAS", LapNumber: 3,
			LapTimeMs: lo.ToPtr(90100.0), Compound: "MEDIUM", TyreLife: 3,
			Stint: 1, SpeedTrapFL: lo.ToPtr(308.0),
		},
		{
			SessionID: testSessionID, DriverID: "OCO", LapNumber: 1,
			LapTimeMs: lo.ToPtr(90250.0), Compound: "SOFT", TyreLife: 1,
			Stint: 1,
		},
		{
			SessionID: testSessionID, DriverID: "OCO", LapNumber: 2,
			LapTimeMs: lo.ToPtr(91000.0), Compound: "HARD", TyreLife: 1,
			Stint: 2,
		},
		{
			SessionID: testSessionID, DriverID: "OCO", LapNumber: 3,
			LapTimeMs: lo.ToPtr(89000.0), Compound: "HARD", TyreLife: 2,
			Stint: 2, Deleted: true,
		},
	}
}

func lapKeys(laps []*model.DbLap) []string {
	ret := make([]string, 0, len(laps))
	for _, l := range laps {
		ret = append(ret, string(model.NewLapKey(l.DriverID, l.LapNumber)))
	}
	return ret
}

func TestLapRepository_Upsert(t *testing.T) {
	db := initTestDb()
	ctx := context.Background()

	// a reingest with a corrected time updates the row in place
	update := &model.DbLap{
		SessionID: testSessionID, DriverID: "GAS", LapNumber: 2,
		LapTimeMs: lo.ToPtr(90450.0), Compound: "MEDIUM", TyreLife: 2,
		Stint: 1,
	}
	assert.NoError(t, Upsert(ctx, db, update))

	got, err := LoadByKey(ctx, db, testSessionID, "GAS", 2)
	assert.NoError(t, err)
	assert.Equal(t, 90450.0, *got.LapTimeMs)

	all, err := LoadBySessionAndDriver(ctx, db, testSessionID, "GAS")
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLapRepository_LoadBySessionId(t *testing.T) {
	db := initTestDb()

	got, err := LoadBySessionId(context.Background(), db, testSessionID)
	assert.NoError(t, err)
	// ordered by driver, lap number
	assert.Equal(t, []string{
		"GAS-1", "GAS-2", "GAS-3", "OCO-1", "OCO-2", "OCO-3",
	}, lapKeys(got))
}

func TestLapRepository_LoadValidForAnalysis(t *testing.T) {
	db := initTestDb()

	got, err := LoadValidForAnalysis(context.Background(), db, testSessionID)
	assert.NoError(t, err)
	// pit out lap GAS-1 and deleted lap OCO-3 are filtered
	assert.Equal(t, []string{"GAS-2", "GAS-3", "OCO-1", "OCO-2"}, lapKeys(got))
}

func TestLapRepository_LoadFastest(t *testing.T) {
	db := initTestDb()
	ctx := context.Background()

	fastest, err := LoadFastestLap(ctx, db, testSessionID, "GAS")
	assert.NoError(t, err)
	assert.Equal(t, 3, fastest.LapNumber)

	// the deleted OCO lap 3 (89000) must not win
	top, err := LoadFastest(ctx, db, testSessionID, 2)
	assert.NoError(t, err)
	assert.Equal(t, []string{"GAS-3", "OCO-1"}, lapKeys(top))

	bests, err := LoadPersonalBests(ctx, db, testSessionID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"GAS-3", "OCO-1"}, lapKeys(bests))
}

func TestLapRepository_LoadByStint(t *testing.T) {
	db := initTestDb()

	type args struct {
		driverID string
		stint    int
	}
	tests := []struct {
		name string
		args args
		want []string
	}{
		{name: "first_stint", args: args{driverID: "OCO", stint: 1}, want: []string{"OCO-1"}},
		{name: "second_stint", args: args{driverID: "OCO", stint: 2}, want: []string{"OCO-2", "OCO-3"}},
		{name: "no_such_stint", args: args{driverID: "OCO", stint: 5}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadByStint(context.Background(), db, testSessionID,
				tt.args.driverID, tt.args.stint)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, lapKeys(got))
		})
	}
}

func TestLapRepository_DeleteBySessionId(t *testing.T) {
	db := initTestDb()
	ctx := context.Background()

	num, err := DeleteBySessionId(ctx, db, testSessionID)
	assert.NoError(t, err)
	assert.Equal(t, 6, num)

	num, err = DeleteBySessionId(ctx, db, testSessionID)
	assert.NoError(t, err)
	assert.Equal(t, 0, num)
}

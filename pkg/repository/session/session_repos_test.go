//nolint:dupl,funlen,errcheck //ok for this test code
package session

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	tcpg "github.com/f1plots/f1dash-service-manager-go/testsupport/tcpostgres"
)

func initTestDb() *pgxpool.Pool {
	pool := tcpg.SetupTestDb()
	tcpg.ClearAllTables(pool)
	return pool
}

func sampleSession(id string, year, round int, sessionType string) *model.DbSession {
	date, _ := time.Parse(time.RFC3339, "2023-03-05T15:00:00Z")
	return &model.DbSession{
		ID:          id,
		Year:        year,
		RoundNumber: round,
		EventName:   "Bahrain Grand Prix",
		SessionType: sessionType,
		TrackName:   "Bahrain International Circuit",
		Country:     "Bahrain",
		Location:    "Sakhir",
		Date:        date.AddDate(0, 0, round),
		TotalLaps:   57,
	}
}

func createSampleEntry(db *pgxpool.Pool) *model.DbSession {
	session := sampleSession("2023_01_R", 2023, 1, "R")
	err := pgx.BeginFunc(context.Background(), db, func(tx pgx.Tx) error {
		return Create(context.Background(), tx.Conn(), session)
	})
	if err != nil {
		log.Fatalf("createSampleEntry: %v\n", err)
	}

	return session
}

func TestSessionRepository_Create(t *testing.T) {
	db := initTestDb()
	ctx := context.Background()

	sample := sampleSession("2023_02_Q", 2023, 2, "Q")
	err := Create(ctx, db, sample)
	assert.NoError(t, err)

	// the id is the primary key, a second insert must fail
	err = Create(ctx, db, sample)
	assert.Error(t, err)
}

func TestSessionRepository_LoadById(t *testing.T) {
	db := initTestDb()
	sample := createSampleEntry(db)

	type args struct {
		id string
	}
	tests := []struct {
		name    string
		args    args
		want    *model.DbSession
		wantErr bool
	}{
		{
			name: "load_existing",
			args: args{id: sample.ID},
			want: sample,
		},
		{
			name:    "load_unknown",
			args:    args{id: "2023_99_R"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadById(context.Background(), db, tt.args.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadById() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.want != nil {
				assert.Equal(t, tt.want.ID, got.ID)
				assert.Equal(t, tt.want.EventName, got.EventName)
				assert.True(t, tt.want.Date.Equal(got.Date))
			}
		})
	}
}

func TestSessionRepository_LoadByYear(t *testing.T) {
	db := initTestDb()
	ctx := context.Background()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, s := range []*model.DbSession{
			sampleSession("2023_02_R", 2023, 2, "R"),
			sampleSession("2023_01_R", 2023, 1, "R"),
			sampleSession("2023_01_Q", 2023, 1, "Q"),
			sampleSession("2022_01_R", 2022, 1, "R"),
		} {
			if err := Create(ctx, tx.Conn(), s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("createTestdata: %v\n", err)
	}

	got, err := LoadByYear(ctx, db, 2023)
	assert.NoError(t, err)
	ids := make([]string, 0)
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	// ordered by round, id
	assert.Equal(t, []string{"2023_01_Q", "2023_01_R", "2023_02_R"}, ids)

	years, err := LoadYears(ctx, db)
	assert.NoError(t, err)
	assert.Equal(t, []int{2023, 2022}, years)

	latest, err := LoadLatest(ctx, db, 2)
	assert.NoError(t, err)
	assert.Len(t, latest, 2)
	// newest session date first
	assert.Equal(t, "2023_02_R", latest[0].ID)
}

func TestSessionRepository_UpdateTotalLaps(t *testing.T) {
	db := initTestDb()
	sample := createSampleEntry(db)
	ctx := context.Background()

	err := UpdateTotalLaps(ctx, db, sample.ID, 66)
	assert.NoError(t, err)

	got, err := LoadById(ctx, db, sample.ID)
	assert.NoError(t, err)
	assert.Equal(t, 66, got.TotalLaps)
}

func TestSessionRepository_DeleteById(t *testing.T) {
	db := initTestDb()
	sample := createSampleEntry(db)

	type args struct {
		id string
	}
	tests := []struct {
		name string

		args    args
		want    int
		wantErr bool
	}{
		{
			name: "delete_existing",
			args: args{id: sample.ID},
			want: 1,
		},
		{
			name: "delete_non_existing",
			args: args{id: "2023_99_R"}, // doesn't exist
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeleteById(context.Background(), db, tt.args.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("DeleteById() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("DeleteById() = %v, want %v", got, tt.want)
			}
		})
	}
}

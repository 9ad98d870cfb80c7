//nolint:whitespace // can't make both editor and linter happy
package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	driverrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/driver"
	laprepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/lap"
	sessionrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/session"
	telemetryrepos "github.com/f1plots/f1dash-service-manager-go/pkg/repository/telemetry"
)

type SessionService struct {
	pool *pgxpool.Pool
}

func NewSessionService(pool *pgxpool.Pool) *SessionService {
	return &SessionService{pool: pool}
}

func (s *SessionService) CreateSession(
	ctx context.Context, arg *model.Session,
) error {
	if arg.ID == "" {
		arg.ID = model.SessionID(arg.Year, arg.RoundNumber, arg.SessionType)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return sessionrepos.Create(ctx, tx.Conn(), &model.DbSession{
			ID:          arg.ID,
			Year:        arg.Year,
			RoundNumber: arg.RoundNumber,
			EventName:   arg.EventName,
			SessionType: string(arg.SessionType),
			TrackName:   arg.TrackName,
			Country:     arg.Country,
			Location:    arg.Location,
			Date:        arg.Date,
			TotalLaps:   arg.TotalLaps,
		})
	})
}

// GetSession returns the session or nil when the id is unknown.
func (s *SessionService) GetSession(ctx context.Context, id string) (
	*model.Session, error,
) {
	item, err := sessionrepos.LoadById(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item.ToSession(), nil
}

// ListSessions returns the sessions of a year or the most recent ones when
// year is 0. An optional session type narrows the result.
func (s *SessionService) ListSessions(
	ctx context.Context, year int, sessionType model.SessionType, limit int,
) ([]*model.Session, error) {
	var items []*model.DbSession
	var err error
	if year > 0 {
		items, err = sessionrepos.LoadByYear(ctx, s.pool, year)
	} else {
		items, err = sessionrepos.LoadLatest(ctx, s.pool, limit)
	}
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Session, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.ToSession())
	}
	if sessionType != "" {
		ret = lo.Filter(ret, func(item *model.Session, idx int) bool {
			return item.SessionType == sessionType
		})
	}
	if year > 0 && limit > 0 && len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}

// GetYears returns the years with stored sessions, newest first.
func (s *SessionService) GetYears(ctx context.Context) ([]int, error) {
	return sessionrepos.LoadYears(ctx, s.pool)
}

// GetEventsForYear groups the stored sessions of a year into events.
func (s *SessionService) GetEventsForYear(ctx context.Context, year int) (
	[]*model.Event, error,
) {
	items, err := sessionrepos.LoadByYear(ctx, s.pool, year)
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Event, 0)
	byRound := make(map[int]*model.Event)
	for _, item := range items {
		event, ok := byRound[item.RoundNumber]
		if !ok {
			event = &model.Event{
				RoundNumber:  item.RoundNumber,
				EventName:    item.EventName,
				Country:      item.Country,
				Location:     item.Location,
				TrackName:    item.TrackName,
				SessionTypes: []model.SessionType{},
			}
			byRound[item.RoundNumber] = event
			ret = append(ret, event)
		}
		event.SessionTypes = append(event.SessionTypes,
			model.SessionType(item.SessionType))
	}
	// LoadByYear delivers rounds in order, so ret is already sorted
	return ret, nil
}

// GetEventSessions returns all sessions of one race weekend.
func (s *SessionService) GetEventSessions(
	ctx context.Context, year, roundNumber int,
) ([]*model.Session, error) {
	items, err := sessionrepos.LoadByYear(ctx, s.pool, year)
	if err != nil {
		return nil, err
	}
	matching := lo.Filter(items, func(item *model.DbSession, idx int) bool {
		return item.RoundNumber == roundNumber
	})
	ret := make([]*model.Session, 0, len(matching))
	for _, item := range matching {
		ret = append(ret, item.ToSession())
	}
	return ret, nil
}

// DeleteSession removes the session with all laps and telemetry.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		var num int

		num, err = telemetryrepos.DeleteBySessionId(ctx, tx.Conn(), id)
		if err != nil {
			return err
		}
		log.Debug("Deleted telemetry", log.Int("num", num))

		num, err = laprepos.DeleteBySessionId(ctx, tx.Conn(), id)
		if err != nil {
			return err
		}
		log.Debug("Deleted laps", log.Int("num", num))

		_, err = sessionrepos.DeleteById(ctx, tx.Conn(), id)
		return err
	})
}

// RegisterDriver stores the driver and links it to the session.
func (s *SessionService) RegisterDriver(
	ctx context.Context, sessionID string, arg *model.Driver,
) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		dbDriver := &model.DbDriver{
			Abbreviation: arg.ID,
			CarNumber:    arg.Number,
			FullName:     arg.FullName,
			TeamName:     arg.TeamName,
			TeamColor:    arg.TeamColor,
		}
		stored, err := driverrepos.Ensure(ctx, tx.Conn(), dbDriver)
		if err != nil {
			return err
		}
		return driverrepos.AssignToSession(ctx, tx.Conn(), sessionID, stored.ID)
	})
}

func (s *SessionService) GetDrivers(ctx context.Context, sessionID string) (
	[]*model.Driver, error,
) {
	items, err := driverrepos.LoadBySessionId(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Driver, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.ToDriver())
	}
	return ret, nil
}

// IngestLaps upserts the lap data of a session in one transaction.
func (s *SessionService) IngestLaps(
	ctx context.Context, sessionID string, laps []*model.Lap,
) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, lap := range laps {
			dbLap := toDbLap(sessionID, lap)
			if err := laprepos.Upsert(ctx, tx.Conn(), dbLap); err != nil {
				return err
			}
		}
		log.Debug("Ingested laps",
			log.String("session", sessionID), log.Int("num", len(laps)))
		return nil
	})
}

// GetLaps returns the laps of a session, optionally filtered by driver.
func (s *SessionService) GetLaps(
	ctx context.Context, sessionID, driverID string,
) ([]*model.Lap, error) {
	var items []*model.DbLap
	var err error
	if driverID != "" {
		items, err = laprepos.LoadBySessionAndDriver(ctx, s.pool, sessionID, driverID)
	} else {
		items, err = laprepos.LoadBySessionId(ctx, s.pool, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return toLaps(items), nil
}

// GetFastestLaps returns the overall fastest valid laps of a session.
func (s *SessionService) GetFastestLaps(
	ctx context.Context, sessionID string, topN int,
) ([]*model.Lap, error) {
	items, err := laprepos.LoadFastest(ctx, s.pool, sessionID, topN)
	if err != nil {
		return nil, err
	}
	return toLaps(items), nil
}

// GetPersonalBests returns each driver's best valid lap, fastest first.
func (s *SessionService) GetPersonalBests(
	ctx context.Context, sessionID string,
) ([]*model.Lap, error) {
	items, err := laprepos.LoadPersonalBests(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	return toLaps(items), nil
}

// GetStintLaps returns the laps a driver ran on one stint.
func (s *SessionService) GetStintLaps(
	ctx context.Context, sessionID, driverID string, stint int,
) ([]*model.Lap, error) {
	items, err := laprepos.LoadByStint(ctx, s.pool, sessionID, driverID, stint)
	if err != nil {
		return nil, err
	}
	return toLaps(items), nil
}

func (s *SessionService) UpdateTotalLaps(
	ctx context.Context, sessionID string, totalLaps int,
) error {
	return sessionrepos.UpdateTotalLaps(ctx, s.pool, sessionID, totalLaps)
}

func toLaps(items []*model.DbLap) []*model.Lap {
	ret := make([]*model.Lap, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.ToLap())
	}
	return ret
}

func toDbLap(sessionID string, lap *model.Lap) *model.DbLap {
	return &model.DbLap{
		SessionID:   sessionID,
		DriverID:    lap.DriverID,
		LapNumber:   lap.LapNumber,
		LapTimeMs:   lap.LapTimeMs,
		Sector1Ms:   lap.Sector1Ms,
		Sector2Ms:   lap.Sector2Ms,
		Sector3Ms:   lap.Sector3Ms,
		Compound:    string(lap.Compound),
		TyreLife:    lap.TyreLife,
		Stint:       lap.Stint,
		IsPitOutLap: lap.IsPitOutLap,
		IsPitInLap:  lap.IsPitInLap,
		Deleted:     lap.Deleted,
		SpeedTrapI1: lap.SpeedTrapI1,
		SpeedTrapI2: lap.SpeedTrapI2,
		SpeedTrapFL: lap.SpeedTrapFL,
		SpeedTrapST: lap.SpeedTrapST,
	}
}

//nolint:whitespace // can't make both editor and linter happy
package lap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/repository"
)

// the driver abbreviation is resolved via join, column order matches
// model.DbLap for RowToAddrOfStructByPos
var selector = `select l.session_id, d.abbreviation, l.lap_number,
	l.lap_time_ms, l.sector1_ms, l.sector2_ms, l.sector3_ms,
	l.compound, l.tyre_life, l.stint,
	l.is_pit_out_lap, l.is_pit_in_lap, l.deleted,
	l.speed_trap_i1, l.speed_trap_i2, l.speed_trap_fl, l.speed_trap_st
	from lap l join driver d on l.driver_id=d.id`

const validForAnalysis = `l.lap_time_ms is not null and not l.deleted
	and not l.is_pit_out_lap and not l.is_pit_in_lap`

func Upsert(
	ctx context.Context, conn repository.Querier, lap *model.DbLap,
) error {
	_, err := conn.Exec(ctx, `
	insert into lap (
		session_id, driver_id, lap_number,
		lap_time_ms, sector1_ms, sector2_ms, sector3_ms,
		compound, tyre_life, stint,
		is_pit_out_lap, is_pit_in_lap, deleted,
		speed_trap_i1, speed_trap_i2, speed_trap_fl, speed_trap_st
	) values (
		$1,(select id from driver where abbreviation=$2),$3,
		$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
	)
	on conflict (session_id, driver_id, lap_number) do update set
		lap_time_ms=excluded.lap_time_ms,
		sector1_ms=excluded.sector1_ms,
		sector2_ms=excluded.sector2_ms,
		sector3_ms=excluded.sector3_ms,
		compound=excluded.compound,
		tyre_life=excluded.tyre_life,
		stint=excluded.stint,
		is_pit_out_lap=excluded.is_pit_out_lap,
		is_pit_in_lap=excluded.is_pit_in_lap,
		deleted=excluded.deleted,
		speed_trap_i1=excluded.speed_trap_i1,
		speed_trap_i2=excluded.speed_trap_i2,
		speed_trap_fl=excluded.speed_trap_fl,
		speed_trap_st=excluded.speed_trap_st
		`,
		lap.SessionID, lap.DriverID, lap.LapNumber,
		lap.LapTimeMs, lap.Sector1Ms, lap.Sector2Ms, lap.Sector3Ms,
		lap.Compound, lap.TyreLife, lap.Stint,
		lap.IsPitOutLap, lap.IsPitInLap, lap.Deleted,
		lap.SpeedTrapI1, lap.SpeedTrapI2, lap.SpeedTrapFL, lap.SpeedTrapST,
	)
	return err
}

func LoadBySessionId(
	ctx context.Context, conn repository.Querier, sessionID string,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 order by d.abbreviation asc, l.lap_number asc",
		selector), sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func LoadBySessionAndDriver(
	ctx context.Context, conn repository.Querier, sessionID, driverID string,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and d.abbreviation=$2 order by l.lap_number asc",
		selector), sessionID, driverID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadValidForAnalysis returns the laps usable for pace analysis. Deleted
// laps and pit in/out laps are filtered in the database.
func LoadValidForAnalysis(
	ctx context.Context, conn repository.Querier, sessionID string,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and %s order by d.abbreviation asc, l.lap_number asc",
		selector, validForAnalysis), sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func LoadByKey(
	ctx context.Context, conn repository.Querier,
	sessionID, driverID string, lapNumber int,
) (*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and d.abbreviation=$2 and l.lap_number=$3",
		selector), sessionID, driverID, lapNumber)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow[*model.DbLap](rows,
		func(row pgx.CollectableRow) (*model.DbLap, error) {
			return pgx.RowToAddrOfStructByPos[model.DbLap](row)
		})
}

// LoadFastestLap returns the fastest valid lap of a driver.
func LoadFastestLap(
	ctx context.Context, conn repository.Querier, sessionID, driverID string,
) (*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and d.abbreviation=$2 and %s order by l.lap_time_ms asc limit 1",
		selector, validForAnalysis), sessionID, driverID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow[*model.DbLap](rows,
		func(row pgx.CollectableRow) (*model.DbLap, error) {
			return pgx.RowToAddrOfStructByPos[model.DbLap](row)
		})
}

// LoadFastest returns the overall fastest valid laps of a session.
func LoadFastest(
	ctx context.Context, conn repository.Querier, sessionID string, limit int,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and %s order by l.lap_time_ms asc limit $2",
		selector, validForAnalysis), sessionID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadPersonalBests returns the best valid lap per driver, fastest first.
// The distinct on query picks each driver's best, the outer query orders
// the result by lap time.
func LoadPersonalBests(
	ctx context.Context, conn repository.Querier, sessionID string,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`
		select * from (
			select distinct on (d.abbreviation)
				l.session_id, d.abbreviation, l.lap_number,
				l.lap_time_ms, l.sector1_ms, l.sector2_ms, l.sector3_ms,
				l.compound, l.tyre_life, l.stint,
				l.is_pit_out_lap, l.is_pit_in_lap, l.deleted,
				l.speed_trap_i1, l.speed_trap_i2, l.speed_trap_fl, l.speed_trap_st
			from lap l join driver d on l.driver_id=d.id
			where l.session_id=$1 and %s
			order by d.abbreviation asc, l.lap_time_ms asc
		) best order by lap_time_ms asc`, validForAnalysis), sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadByStint returns the laps a driver ran on one stint.
func LoadByStint(
	ctx context.Context, conn repository.Querier,
	sessionID, driverID string, stint int,
) ([]*model.DbLap, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		"%s where l.session_id=$1 and d.abbreviation=$2 and l.stint=$3 order by l.lap_number asc",
		selector), sessionID, driverID, stint)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// deletes all laps of a session, returns number of rows deleted.
func DeleteBySessionId(
	ctx context.Context, conn repository.Querier, sessionID string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from lap where session_id=$1", sessionID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func collect(rows pgx.Rows) ([]*model.DbLap, error) {
	return pgx.CollectRows[*model.DbLap](rows,
		func(row pgx.CollectableRow) (*model.DbLap, error) {
			return pgx.RowToAddrOfStructByPos[model.DbLap](row)
		})
}

//nolint:whitespace // can't make both editor and linter happy
package telemetry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/repository"
)

var selector = `select t.id, t.session_id, d.abbreviation, t.lap_number,
	t.samples from telemetry t join driver d on t.driver_id=d.id`

// Upsert stores the sample array of one lap. A reingest replaces the
// previous samples.
func Upsert(
	ctx context.Context, conn repository.Querier, tel *model.DbTelemetry,
) error {
	row := conn.QueryRow(ctx, `
	insert into telemetry (session_id, driver_id, lap_number, samples)
	values ($1,(select id from driver where abbreviation=$2),$3,$4)
	on conflict (session_id, driver_id, lap_number) do update set
		samples=excluded.samples
	returning id
		`,
		tel.SessionID, tel.DriverID, tel.LapNumber, tel.Samples,
	)
	return row.Scan(&tel.ID)
}

func LoadByLap(
	ctx context.Context, conn repository.Querier,
	sessionID, driverID string, lapNumber int,
) (*model.DbTelemetry, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf(
		"%s where t.session_id=$1 and d.abbreviation=$2 and t.lap_number=$3",
		selector), sessionID, driverID, lapNumber)
	return readData(row)
}

// LoadKeysBySessionId lists the laps with stored telemetry without
// fetching the sample payload.
func LoadKeysBySessionId(
	ctx context.Context, conn repository.Querier, sessionID string,
) ([]*model.DbTelemetry, error) {
	rows, err := conn.Query(ctx, `
	select t.id, t.session_id, d.abbreviation, t.lap_number
	from telemetry t join driver d on t.driver_id=d.id
	where t.session_id=$1 order by d.abbreviation asc, t.lap_number asc`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.DbTelemetry, 0)
	for rows.Next() {
		var item model.DbTelemetry
		if err := rows.Scan(
			&item.ID, &item.SessionID, &item.DriverID, &item.LapNumber,
		); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, nil
}

// LoadLapNumbersByDriver lists the lap numbers with stored telemetry for
// one driver.
func LoadLapNumbersByDriver(
	ctx context.Context, conn repository.Querier, sessionID, driverID string,
) ([]int, error) {
	rows, err := conn.Query(ctx, `
	select t.lap_number from telemetry t join driver d on t.driver_id=d.id
	where t.session_id=$1 and d.abbreviation=$2 order by t.lap_number asc`,
		sessionID, driverID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows[int](rows, func(row pgx.CollectableRow) (int, error) {
		var num int
		err := row.Scan(&num)
		return num, err
	})
}

// deletes all telemetry of a session, returns number of rows deleted.
func DeleteBySessionId(
	ctx context.Context, conn repository.Querier, sessionID string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from telemetry where session_id=$1", sessionID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func readData(row pgx.Row) (*model.DbTelemetry, error) {
	var item model.DbTelemetry
	if err := row.Scan(
		&item.ID, &item.SessionID, &item.DriverID, &item.LapNumber,
		&item.Samples,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

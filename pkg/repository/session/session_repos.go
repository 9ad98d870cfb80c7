//nolint:whitespace // can't make both editor and linter happy
package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/repository"
)

var selector = `select id, year, round_number, event_name, session_type,
	track_name, country, location, session_date, total_laps from session`

func Create(
	ctx context.Context, conn repository.Querier, session *model.DbSession,
) error {
	_, err := conn.Exec(ctx, `
	insert into session (
		id, year, round_number, event_name, session_type,
		track_name, country, location, session_date, total_laps
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
		session.ID, session.Year, session.RoundNumber, session.EventName,
		session.SessionType, session.TrackName, session.Country,
		session.Location, session.Date, session.TotalLaps,
	)
	return err
}

func LoadById(ctx context.Context, conn repository.Querier, id string) (
	*model.DbSession, error,
) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", selector), id)
	return readData(row)
}

func LoadByYear(ctx context.Context, conn repository.Querier, year int) (
	[]*model.DbSession, error,
) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where year=$1 order by round_number asc, id asc", selector),
		year)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func LoadAll(ctx context.Context, conn repository.Querier) (
	[]*model.DbSession, error,
) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by session_date desc", selector))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadLatest returns the most recent sessions by session date.
func LoadLatest(ctx context.Context, conn repository.Querier, limit int) (
	[]*model.DbSession, error,
) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by session_date desc limit $1", selector), limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadYears returns all years with at least one session, newest first.
func LoadYears(ctx context.Context, conn repository.Querier) ([]int, error) {
	rows, err := conn.Query(ctx,
		"select distinct year from session order by year desc")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows[int](rows, func(row pgx.CollectableRow) (int, error) {
		var year int
		err := row.Scan(&year)
		return year, err
	})
}

// UpdateTotalLaps is used after ingest when the lap count becomes known.
func UpdateTotalLaps(
	ctx context.Context, conn repository.Querier, id string, totalLaps int,
) error {
	_, err := conn.Exec(ctx,
		"update session set total_laps=$2 where id=$1", id, totalLaps)
	return err
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteById(ctx context.Context, conn repository.Querier, id string) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, "delete from session where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func collect(rows pgx.Rows) ([]*model.DbSession, error) {
	defer rows.Close()
	ret := make([]*model.DbSession, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func readData(row pgx.Row) (*model.DbSession, error) {
	var item model.DbSession
	if err := row.Scan(
		&item.ID, &item.Year, &item.RoundNumber, &item.EventName,
		&item.SessionType, &item.TrackName, &item.Country, &item.Location,
		&item.Date, &item.TotalLaps,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

//nolint:whitespace // can't make both editor and linter happy
package driver

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/repository"
)

var selector = `select d.id, d.abbreviation, d.car_number, d.full_name,
	d.team_name, d.team_color from driver d`

// Ensure creates or refreshes the driver row for the abbreviation and
// returns the stored row. Team and number change between seasons, the
// latest ingest wins.
func Ensure(
	ctx context.Context, conn repository.Querier, driver *model.DbDriver,
) (*model.DbDriver, error) {
	row := conn.QueryRow(ctx, `
	insert into driver (
		abbreviation, car_number, full_name, team_name, team_color
	) values ($1,$2,$3,$4,$5)
	on conflict (abbreviation) do update set
		car_number=excluded.car_number,
		full_name=excluded.full_name,
		team_name=excluded.team_name,
		team_color=excluded.team_color
	returning id
		`,
		driver.Abbreviation, driver.CarNumber, driver.FullName,
		driver.TeamName, driver.TeamColor,
	)
	if err := row.Scan(&driver.ID); err != nil {
		return nil, err
	}
	return driver, nil
}

func LoadByAbbreviation(
	ctx context.Context, conn repository.Querier, abbreviation string,
) (*model.DbDriver, error) {
	row := conn.QueryRow(ctx,
		fmt.Sprintf("%s where d.abbreviation=$1", selector), abbreviation)
	return readData(row)
}

func LoadBySessionId(
	ctx context.Context, conn repository.Querier, sessionID string,
) ([]*model.DbDriver, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		`%s join session_driver sd on sd.driver_id=d.id
	where sd.session_id=$1 order by d.car_number asc`, selector),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.DbDriver, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

// AssignToSession links the driver to the session. Repeated assignment is
// a no-op.
func AssignToSession(
	ctx context.Context, conn repository.Querier, sessionID string,
	driverID uuid.UUID,
) error {
	_, err := conn.Exec(ctx, `
	insert into session_driver (session_id, driver_id) values ($1,$2)
	on conflict do nothing`,
		sessionID, driverID)
	return err
}

func readData(row pgx.Row) (*model.DbDriver, error) {
	var item model.DbDriver
	if err := row.Scan(
		&item.ID, &item.Abbreviation, &item.CarNumber, &item.FullName,
		&item.TeamName, &item.TeamColor,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/f1plots/f1dash-service-manager-go/pkg/db/migrate"
	database "github.com/f1plots/f1dash-service-manager-go/pkg/db/postgres"
)

// create a pg connection pool for the f1dash testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("f1dash-service-manager-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	if err = migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}

	return database.InitWithUrl(dbURL)
}

// SetupExternalTestDb connects to the database referenced by TESTDB_URL.
// Used on CI where the database runs as a service next to the job.
func SetupExternalTestDb() *pgxpool.Pool {
	dbURL := os.Getenv("TESTDB_URL")
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithUrl(dbURL)
}

func ClearSessionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from session")
}

func ClearDriverTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from session_driver")
	pool.Exec(context.Background(), "delete from driver")
}

func ClearLapTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap")
}

func ClearTelemetryTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from telemetry")
}

// ClearAllTables empties the tables in foreign key order.
func ClearAllTables(pool *pgxpool.Pool) {
	ClearTelemetryTable(pool)
	ClearLapTable(pool)
	ClearDriverTable(pool)
	ClearSessionTable(pool)
}

//go:build integration

// Package integration runs the analysis pipeline against real PostgreSQL and
// Redis containers. Run with: go test -tags integration ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	redisinfra "github.com/turtacn/compound-analysis/internal/infrastructure/database/redis"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/migrations"
)

const containerStartup = 60 * time.Second

// startPostgres launches a PostgreSQL 16 container and applies the embedded
// schema migrations.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "cpda",
				"POSTGRES_PASSWORD": "cpda",
				"POSTGRES_DB":       "cpda_test",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(containerStartup),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	log := logging.NewNopLogger()
	conn, err := postgres.NewConnection(config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "cpda",
		Password: "cpda",
		DBName:   "cpda_test",
		SSLMode:  "disable",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m, err := postgres.NewMigrator(conn, postgres.MigrationSource{FS: migrations.FS}, log)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())
	return conn
}

// startRedis launches a Redis 7 container.
func startRedis(t *testing.T) *redisinfra.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(containerStartup),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rc, err := redisinfra.NewClient(config.RedisConfig{
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
		KeyPrefix: "cpda-it:",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

//Personal.AI order the ending

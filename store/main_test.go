package store

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"testing"

	"github.com/siherrmann/graphmaker/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

// Containers start lazily on first use so the memory store tests stay
// hermetic. TestMain only tears down whatever a test actually started.
var (
	postgresOnce     sync.Once
	postgresErr      error
	dbPort           string
	teardownPostgres func(ctx context.Context, opts ...testcontainers.TerminateOption) error

	neo4jOnce     sync.Once
	neo4jErr      error
	neo4jURL      string
	teardownNeo4j func(ctx context.Context, opts ...testcontainers.TerminateOption) error
)

func TestMain(m *testing.M) {
	m.Run()

	if teardownPostgres != nil {
		if err := teardownPostgres(context.Background()); err != nil {
			log.Fatalf("error tearing down postgres container: %v", err)
		}
	}
	if teardownNeo4j != nil {
		if err := teardownNeo4j(context.Background()); err != nil {
			log.Fatalf("error tearing down neo4j container: %v", err)
		}
	}
}

func requirePostgresContainer(t *testing.T) string {
	postgresOnce.Do(func() {
		teardownPostgres, dbPort, postgresErr = helper.MustStartPostgresContainer()
	})
	require.NoError(t, postgresErr, "failed to start postgres container")
	return dbPort
}

func requireNeo4jContainer(t *testing.T) string {
	neo4jOnce.Do(func() {
		teardownNeo4j, neo4jURL, neo4jErr = helper.MustStartNeo4jContainer()
	})
	require.NoError(t, neo4jErr, "failed to start neo4j container")
	return neo4jURL
}

func initPostgresStore(t *testing.T) *PostgresStore {
	helper.SetTestDatabaseConfigEnvs(t, requirePostgresContainer(t))
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	postgresStore, err := NewPostgresStore(database, true, slog.Default())
	require.NoError(t, err, "failed to create postgres store")

	return postgresStore
}

func initNeo4jStore(t *testing.T) *Neo4jStore {
	helper.SetTestNeo4jConfigEnvs(t, requireNeo4jContainer(t))
	neo4jConfig, err := helper.NewNeo4jConfiguration()
	require.NoError(t, err, "failed to create neo4j configuration")

	neo4jStore, err := NewNeo4jStore(neo4jConfig, 3, 0, slog.Default())
	require.NoError(t, err, "failed to create neo4j store")

	return neo4jStore
}

package helper

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/neo4j"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MustStartPostgresContainer starts a throwaway PostgreSQL container for
// tests and returns its teardown function and mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	var (
		dbName     = "database"
		dbUser     = "user"
		dbPassword = "password"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, "", err
	}

	return dbContainer.Terminate, dbPort.Port(), nil
}

// MustStartNeo4jContainer starts a throwaway Neo4j container for tests and
// returns its teardown function and bolt URL. The admin password matches
// SetTestNeo4jConfigEnvs.
func MustStartNeo4jContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	neo4jContainer, err := neo4j.Run(
		context.Background(),
		"neo4j:5",
		neo4j.WithAdminPassword("password"),
	)
	if err != nil {
		return nil, "", err
	}

	boltURL, err := neo4jContainer.BoltUrl(context.Background())
	if err != nil {
		return neo4jContainer.Terminate, "", err
	}

	return neo4jContainer.Terminate, boltURL, nil
}

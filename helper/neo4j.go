package helper

import (
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

// Neo4jConfiguration holds the connection parameters for Neo4j.
type Neo4jConfiguration struct {
	URI         string
	Username    string
	Password    string
	Database    string // empty selects the server default database
	MaxPoolSize int
	Timeout     time.Duration
}

// NewNeo4jConfiguration reads the Neo4j configuration from the environment
// (NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD, NEO4J_DATABASE,
// NEO4J_MAX_POOL_SIZE, NEO4J_TIMEOUT_SECONDS). A .env file is loaded first
// if present.
func NewNeo4jConfiguration() (*Neo4jConfiguration, error) {
	// Best effort, envs may already be set
	_ = godotenv.Load()

	config := &Neo4jConfiguration{
		URI:         os.Getenv("NEO4J_URI"),
		Username:    os.Getenv("NEO4J_USERNAME"),
		Password:    os.Getenv("NEO4J_PASSWORD"),
		Database:    os.Getenv("NEO4J_DATABASE"),
		MaxPoolSize: 50,
		Timeout:     10 * time.Second,
	}

	if config.URI == "" {
		return nil, fmt.Errorf("incomplete neo4j configuration, NEO4J_URI must be set")
	}
	if config.Username == "" {
		config.Username = "neo4j"
	}

	if poolSize := os.Getenv("NEO4J_MAX_POOL_SIZE"); poolSize != "" {
		size, err := strconv.Atoi(poolSize)
		if err != nil {
			return nil, NewError("parse NEO4J_MAX_POOL_SIZE", err)
		}
		config.MaxPoolSize = size
	}
	if timeout := os.Getenv("NEO4J_TIMEOUT_SECONDS"); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, NewError("parse NEO4J_TIMEOUT_SECONDS", err)
		}
		config.Timeout = time.Duration(seconds) * time.Second
	}

	return config, nil
}

// SetTestNeo4jConfigEnvs points the Neo4j configuration envs at a test
// container reachable under boltURL.
func SetTestNeo4jConfigEnvs(t *testing.T, boltURL string) {
	t.Setenv("NEO4J_URI", boltURL)
	t.Setenv("NEO4J_USERNAME", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "password")
}

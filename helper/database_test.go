package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfiguration(t *testing.T) {
	t.Run("Read configuration from environment", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("DB_DATABASE", "graph")
		t.Setenv("DB_USERNAME", "user")
		t.Setenv("DB_PASSWORD", "password")
		t.Setenv("DB_SCHEMA", "")
		t.Setenv("DB_SSLMODE", "")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err, "Expected configuration to be read from environment")
		assert.Equal(t, "localhost", config.Host, "Expected host from environment")
		assert.Equal(t, "public", config.Schema, "Expected schema to default to public")
		assert.Equal(t, "disable", config.SSLMode, "Expected sslmode to default to disable")
	})

	t.Run("Incomplete configuration returns error", func(t *testing.T) {
		t.Setenv("DB_HOST", "")
		t.Setenv("DB_PORT", "")
		t.Setenv("DB_DATABASE", "")
		t.Setenv("DB_USERNAME", "")

		_, err := NewDatabaseConfiguration()

		require.Error(t, err, "Expected error for incomplete configuration")
	})

	t.Run("ConnectionString contains all parameters", func(t *testing.T) {
		config := &DatabaseConfiguration{
			Host:     "localhost",
			Port:     "5432",
			Database: "graph",
			Username: "user",
			Password: "password",
			Schema:   "public",
			SSLMode:  "disable",
		}

		connString := config.ConnectionString()

		assert.Contains(t, connString, "host=localhost", "Expected connection string to contain host")
		assert.Contains(t, connString, "dbname=graph", "Expected connection string to contain database name")
		assert.Contains(t, connString, "search_path=public", "Expected connection string to contain schema")
	})
}

func TestDatabaseClose(t *testing.T) {
	t.Run("Close nil database", func(t *testing.T) {
		var database *Database

		err := database.Close()

		assert.NoError(t, err, "Expected Close on nil database to be a no-op")
	})

	t.Run("Close database without instance", func(t *testing.T) {
		database := &Database{Name: "test"}

		err := database.Close()

		assert.NoError(t, err, "Expected Close without an open instance to be a no-op")
	})
}

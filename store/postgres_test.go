package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/siherrmann/graphmaker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresNewPostgresStore(t *testing.T) {
	t.Run("Valid call NewPostgresStore", func(t *testing.T) {
		postgresStore := initPostgresStore(t)
		defer postgresStore.Close(context.Background())

		require.NotNil(t, postgresStore.Entities)
		require.NotNil(t, postgresStore.Relationships)
	})

	t.Run("Invalid call NewPostgresStore with nil database", func(t *testing.T) {
		_, err := NewPostgresStore(nil, false, nil)
		assert.Error(t, err, "Expected error when creating PostgresStore with nil database")
	})
}

func TestPostgresUpsertEntityBatch(t *testing.T) {
	ctx := context.Background()
	postgresStore := initPostgresStore(t)
	defer postgresStore.Close(ctx)

	t.Run("Creates new entities in one transaction", func(t *testing.T) {
		entities := []*model.CanonicalEntity{
			{ID: uuid.New(), Name: "CenterPoint Energy Inc", Type: "Company", Aliases: []string{"CPE"}, Confidence: 0.9},
			{ID: uuid.New(), Name: "Houston", Type: "City", Confidence: 0.8},
		}

		result, err := postgresStore.UpsertEntityBatch(ctx, entities)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 0, result.Merged)
	})

	t.Run("Re-submitting counts as merged", func(t *testing.T) {
		entity := &model.CanonicalEntity{ID: uuid.New(), Name: "Austin Energy", Type: "Company", Confidence: 0.7}

		result, err := postgresStore.UpsertEntityBatch(ctx, []*model.CanonicalEntity{entity})
		require.NoError(t, err)
		require.Equal(t, 1, result.Created)

		entity.Description = "municipal utility"
		result, err = postgresStore.UpsertEntityBatch(ctx, []*model.CanonicalEntity{entity})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 1, result.Merged)

		stored, err := postgresStore.Entities.SelectEntity(entity.ID)
		require.NoError(t, err)
		assert.Equal(t, "municipal utility", stored.Description)
	})

	t.Run("Single entity upsert reports created flag", func(t *testing.T) {
		entity := &model.CanonicalEntity{ID: uuid.New(), Name: "ERCOT", Type: "Organization", Confidence: 0.8}

		created, err := postgresStore.UpsertEntity(ctx, entity)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = postgresStore.UpsertEntity(ctx, entity)
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestPostgresUpsertRelationshipBatch(t *testing.T) {
	ctx := context.Background()
	postgresStore := initPostgresStore(t)
	defer postgresStore.Close(ctx)

	source := &model.CanonicalEntity{ID: uuid.New(), Name: "CenterPoint Energy Inc", Type: "Company", Confidence: 0.9}
	target := &model.CanonicalEntity{ID: uuid.New(), Name: "Houston", Type: "City", Confidence: 0.8}
	_, err := postgresStore.UpsertEntityBatch(ctx, []*model.CanonicalEntity{source, target})
	require.NoError(t, err)

	t.Run("Creates edge and merges on re-submission", func(t *testing.T) {
		relationship := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       "HEADQUARTERED_IN",
			Evidence:   "annual report",
			Confidence: 0.9,
		}

		result, err := postgresStore.UpsertRelationshipBatch(ctx, "HEADQUARTERED_IN", []*model.Relationship{relationship})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Created)

		// Same triple again, must update rather than duplicate
		result, err = postgresStore.UpsertRelationshipBatch(ctx, "HEADQUARTERED_IN", []*model.Relationship{relationship})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 1, result.Merged)

		count, err := postgresStore.Relationships.CountRelationshipsBetween(source.ID, target.ID, "HEADQUARTERED_IN")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected exactly one edge for the triple")
	})

	t.Run("Missing endpoint fails the batch transactionally", func(t *testing.T) {
		valid := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "SERVES", Confidence: 0.5}
		dangling := &model.Relationship{SourceID: source.ID, TargetID: uuid.New(), Type: "SERVES", Confidence: 0.5}

		_, err := postgresStore.UpsertRelationshipBatch(ctx, "SERVES", []*model.Relationship{valid, dangling})
		require.Error(t, err)

		var transactionError *model.TransactionError
		assert.True(t, errors.As(err, &transactionError), "Expected a transaction error")

		// The whole batch rolled back, the valid edge must not exist either
		count, err := postgresStore.Relationships.CountRelationshipsBetween(source.ID, target.ID, "SERVES")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestPostgresCheckIdsExist(t *testing.T) {
	ctx := context.Background()
	postgresStore := initPostgresStore(t)
	defer postgresStore.Close(ctx)

	entity := &model.CanonicalEntity{ID: uuid.New(), Name: "Known Entity", Type: "Company", Confidence: 0.5}
	_, err := postgresStore.UpsertEntityBatch(ctx, []*model.CanonicalEntity{entity})
	require.NoError(t, err)

	missing := uuid.New()

	existing, err := postgresStore.CheckIdsExist(ctx, []uuid.UUID{entity.ID, missing})
	require.NoError(t, err)
	assert.True(t, existing[entity.ID])
	assert.False(t, existing[missing])
}

func TestPostgresReadQuery(t *testing.T) {
	ctx := context.Background()
	postgresStore := initPostgresStore(t)
	defer postgresStore.Close(ctx)

	entity := &model.CanonicalEntity{ID: uuid.New(), Name: "Query Target", Type: "Company", Confidence: 0.5}
	_, err := postgresStore.UpsertEntityBatch(ctx, []*model.CanonicalEntity{entity})
	require.NoError(t, err)

	t.Run("Named parameters are rebound", func(t *testing.T) {
		rows, err := postgresStore.ReadQuery(ctx,
			"SELECT name, entity_type FROM entities WHERE id = :id::uuid",
			map[string]any{"id": entity.ID.String()})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Query Target", rows[0]["name"])
		assert.Equal(t, "Company", rows[0]["entity_type"])
	})

	t.Run("Query without parameters", func(t *testing.T) {
		rows, err := postgresStore.ReadQuery(ctx, "SELECT count_entities() AS count", nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.NotNil(t, rows[0]["count"])
	})
}

func TestRebindNamedParams(t *testing.T) {
	t.Run("Replaces named placeholders in order", func(t *testing.T) {
		query, args := rebindNamedParams(
			"SELECT * FROM entities WHERE name = :name AND entity_type = :type",
			map[string]any{"name": "a", "type": "b"})

		assert.Equal(t, "SELECT * FROM entities WHERE name = $1 AND entity_type = $2", query)
		assert.Equal(t, []any{"a", "b"}, args)
	})

	t.Run("Leaves casts and unknown names untouched", func(t *testing.T) {
		query, args := rebindNamedParams(
			"SELECT :id::uuid, :unknown FROM entities",
			map[string]any{"id": "x"})

		assert.Equal(t, "SELECT $1::uuid, :unknown FROM entities", query)
		assert.Equal(t, []any{"x"}, args)
	})

	t.Run("Repeated name binds twice", func(t *testing.T) {
		query, args := rebindNamedParams(
			"SELECT * FROM relationships WHERE source_id = :id OR target_id = :id",
			map[string]any{"id": "x"})

		assert.Equal(t, "SELECT * FROM relationships WHERE source_id = $1 OR target_id = $2", query)
		assert.Equal(t, []any{"x", "x"}, args)
	})
}

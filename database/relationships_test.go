package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRelationshipHandlers creates both handlers and two entities every
// relationship test can hang edges off.
func initRelationshipHandlers(t *testing.T) (*EntitiesDBHandler, *RelationshipsDBHandler, *model.CanonicalEntity, *model.CanonicalEntity) {
	database := initDB(t)

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	source := &model.CanonicalEntity{ID: uuid.New(), Name: "CenterPoint Energy Inc", Type: "Company", Confidence: 0.9}
	target := &model.CanonicalEntity{ID: uuid.New(), Name: "Houston", Type: "City", Confidence: 0.8}

	_, err = entitiesDbHandler.UpsertEntity(source)
	require.NoError(t, err)
	_, err = entitiesDbHandler.UpsertEntity(target)
	require.NoError(t, err)

	t.Cleanup(func() {
		entitiesDbHandler.DeleteEntity(source.ID)
		entitiesDbHandler.DeleteEntity(target.ID)
	})

	return entitiesDbHandler, relationshipsDbHandler, source, target
}

func TestRelationshipsNewRelationshipsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewRelationshipsDBHandler", func(t *testing.T) {
		// The relationships table references entities, so that handler
		// has to come first.
		_, err := NewEntitiesDBHandler(database, true)
		require.NoError(t, err)

		relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewRelationshipsDBHandler to not return an error")
		require.NotNil(t, relationshipsDbHandler, "Expected NewRelationshipsDBHandler to return a non-nil instance")
		require.NotNil(t, relationshipsDbHandler.db, "Expected NewRelationshipsDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewRelationshipsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRelationshipsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating RelationshipsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestRelationshipsUpsert(t *testing.T) {
	_, relationshipsDbHandler, source, target := initRelationshipHandlers(t)

	t.Run("Upsert new relationship", func(t *testing.T) {
		relationship := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       "HEADQUARTERED_IN",
			Evidence:   "CenterPoint Energy is headquartered in Houston.",
			Confidence: 0.9,
		}

		created, err := relationshipsDbHandler.UpsertRelationship(relationship)
		assert.NoError(t, err, "Expected Upsert to not return an error")
		assert.True(t, created, "Expected first upsert to create the edge")

		// Cleanup
		relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "HEADQUARTERED_IN")
	})

	t.Run("Upsert same triple updates instead of duplicating", func(t *testing.T) {
		relationship := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       "OPERATES_IN",
			Confidence: 0.5,
		}

		created, err := relationshipsDbHandler.UpsertRelationship(relationship)
		require.NoError(t, err)
		require.True(t, created)

		relationship.Evidence = "updated evidence"
		relationship.Confidence = 0.7

		created, err = relationshipsDbHandler.UpsertRelationship(relationship)
		assert.NoError(t, err, "Expected Upsert to not return an error for existing triple")
		assert.False(t, created, "Expected second upsert to update, not create")

		count, err := relationshipsDbHandler.CountRelationshipsBetween(source.ID, target.ID, "OPERATES_IN")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected exactly one edge for the triple")

		retrieved, err := relationshipsDbHandler.SelectRelationshipsBetween(source.ID, target.ID)
		require.NoError(t, err)
		require.Len(t, retrieved, 1)
		assert.Equal(t, "updated evidence", retrieved[0].Evidence)
		assert.Equal(t, 0.7, retrieved[0].Confidence)

		// Cleanup
		relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "OPERATES_IN")
	})

	t.Run("Different types between same entities are separate edges", func(t *testing.T) {
		first := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "SERVES", Confidence: 0.6}
		second := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "BASED_IN", Confidence: 0.6}

		_, err := relationshipsDbHandler.UpsertRelationship(first)
		require.NoError(t, err)
		_, err = relationshipsDbHandler.UpsertRelationship(second)
		require.NoError(t, err)

		count, err := relationshipsDbHandler.CountRelationshipsBetween(source.ID, target.ID, "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count, "Expected both typed edges to exist")

		// Cleanup
		relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "SERVES")
		relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "BASED_IN")
	})

	t.Run("Upsert with missing endpoint fails", func(t *testing.T) {
		relationship := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   uuid.New(),
			Type:       "OWNS",
			Confidence: 0.5,
		}

		_, err := relationshipsDbHandler.UpsertRelationship(relationship)
		assert.Error(t, err, "Expected foreign key violation for unknown target")
	})

	t.Run("Upsert relationship inside transaction", func(t *testing.T) {
		_, relationshipsDbHandler, source, target := initRelationshipHandlers(t)

		relationship := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       "SUPPLIES",
			Confidence: 0.6,
		}

		tx, err := relationshipsDbHandler.db.Instance.Begin()
		require.NoError(t, err)

		created, err := relationshipsDbHandler.UpsertRelationshipTx(tx, relationship)
		assert.NoError(t, err, "Expected UpsertTx to not return an error")
		assert.True(t, created)

		err = tx.Commit()
		require.NoError(t, err)

		count, err := relationshipsDbHandler.CountRelationshipsBetween(source.ID, target.ID, "SUPPLIES")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		// Cleanup
		relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "SUPPLIES")
	})
}

func TestRelationshipsSelectBetween(t *testing.T) {
	_, relationshipsDbHandler, source, target := initRelationshipHandlers(t)

	relationship := &model.Relationship{
		SourceID:   source.ID,
		TargetID:   target.ID,
		Type:       "HEADQUARTERED_IN",
		Evidence:   "annual report",
		Confidence: 0.9,
		Metadata:   model.Metadata{"year": float64(2025)},
	}
	_, err := relationshipsDbHandler.UpsertRelationship(relationship)
	require.NoError(t, err)

	t.Run("Returns stored edge", func(t *testing.T) {
		retrieved, err := relationshipsDbHandler.SelectRelationshipsBetween(source.ID, target.ID)
		assert.NoError(t, err, "Expected SelectBetween to not return an error")
		require.Len(t, retrieved, 1)
		assert.Equal(t, source.ID, retrieved[0].SourceID)
		assert.Equal(t, target.ID, retrieved[0].TargetID)
		assert.Equal(t, "HEADQUARTERED_IN", retrieved[0].Type)
		assert.Equal(t, "annual report", retrieved[0].Evidence)
		assert.Equal(t, float64(2025), retrieved[0].Metadata["year"])
	})

	t.Run("Direction matters", func(t *testing.T) {
		retrieved, err := relationshipsDbHandler.SelectRelationshipsBetween(target.ID, source.ID)
		assert.NoError(t, err)
		assert.Empty(t, retrieved, "Expected reverse direction to have no edges")
	})

	// Cleanup
	relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "HEADQUARTERED_IN")
}

func TestRelationshipsCount(t *testing.T) {
	_, relationshipsDbHandler, source, target := initRelationshipHandlers(t)

	before, err := relationshipsDbHandler.CountRelationships()
	require.NoError(t, err)

	relationship := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "SERVES", Confidence: 0.5}
	_, err = relationshipsDbHandler.UpsertRelationship(relationship)
	require.NoError(t, err)

	after, err := relationshipsDbHandler.CountRelationships()
	assert.NoError(t, err, "Expected Count to not return an error")
	assert.Equal(t, before+1, after)

	// Cleanup
	relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "SERVES")
}

func TestRelationshipsDeleteCascade(t *testing.T) {
	entitiesDbHandler, relationshipsDbHandler, source, target := initRelationshipHandlers(t)

	relationship := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "SERVES", Confidence: 0.5}
	_, err := relationshipsDbHandler.UpsertRelationship(relationship)
	require.NoError(t, err)

	// Deleting an endpoint entity removes its edges
	err = entitiesDbHandler.DeleteEntity(source.ID)
	require.NoError(t, err)

	count, err := relationshipsDbHandler.CountRelationshipsBetween(source.ID, target.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count, "Expected edges to be removed with their endpoint")
}

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
)

// GraphStore is the persistence boundary for canonical entities and
// relationships. Implementations upsert by id (entities) and by the
// (source, type, target) triple (relationships), so re-ingesting the same
// fact updates instead of duplicating.
//
// The batch operations run inside a single explicit transaction and fail
// as a whole, the single item operations run their own transaction each.
// The boolean result of the single item operations reports whether the
// record was created (true) or merged into an existing one (false).
type GraphStore interface {
	// UpsertEntityBatch writes one batch of entities in one transaction.
	UpsertEntityBatch(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error)

	// UpsertEntity writes a single entity in its own transaction.
	UpsertEntity(ctx context.Context, entity *model.CanonicalEntity) (bool, error)

	// UpsertRelationshipBatch writes one batch of relationships of a single
	// type in one transaction.
	UpsertRelationshipBatch(ctx context.Context, relType string, relationships []*model.Relationship) (*model.WriteResult, error)

	// UpsertRelationship writes a single relationship in its own transaction.
	UpsertRelationship(ctx context.Context, relationship *model.Relationship) (bool, error)

	// CheckIdsExist reports which of the given entity ids currently exist.
	// Implementations answer from an independent read session so the result
	// reflects what new readers see.
	CheckIdsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)

	// ReadQuery is a generic read passthrough returning rows as maps. The
	// query language is backend specific.
	ReadQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	// Close releases the store's connections.
	Close(ctx context.Context) error
}

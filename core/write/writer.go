package write

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/store"
)

// GraphWriter durably persists canonical entities and relationships.
// Writes run in fixed-size batches, one explicit transaction each, with a
// per-item fallback on batch failure. Relationships pass a referential
// integrity check before anything reaches the store; an endpoint missing at
// write time skips the relationship, it is never stored dangling.
type GraphWriter struct {
	store  store.GraphStore
	config model.WriterConfig
	log    *slog.Logger
}

// NewGraphWriter creates a writer on top of an initialized store.
func NewGraphWriter(graphStore store.GraphStore, config model.WriterConfig, logger *slog.Logger) *GraphWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize < 1 {
		config.BatchSize = model.DefaultWriterConfig().BatchSize
	}
	return &GraphWriter{
		store:  graphStore,
		config: config,
		log:    logger,
	}
}

// UpsertEntities writes entities in batches. Entities without an id or a
// name are counted as errors and never submitted. After each committed
// batch a sample of its ids is checked for visibility through an
// independent read before the writer proceeds. The returned error is
// non-nil only when the store becomes unreachable; everything else is
// expressed through the counters.
func (w *GraphWriter) UpsertEntities(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error) {
	valid := make([]*model.CanonicalEntity, 0, len(entities))
	invalid := 0
	for _, entity := range entities {
		if entity == nil || entity.ID == uuid.Nil || entity.Name == "" {
			invalid++
			w.log.Warn("Dropped invalid entity before write")
			continue
		}
		valid = append(valid, entity)
	}

	result, err := runBatches(valid, w.config.BatchSize, "upsert entities", w.log,
		func(batch []*model.CanonicalEntity) (*model.WriteResult, error) {
			batchResult, err := w.store.UpsertEntityBatch(ctx, batch)
			if err != nil {
				return nil, err
			}
			w.verifyVisibility(ctx, batch)
			return batchResult, nil
		},
		func(entity *model.CanonicalEntity) (bool, error) {
			return w.store.UpsertEntity(ctx, entity)
		},
	)
	result.Errors += invalid
	return result, err
}

// UpsertRelationships checks all endpoint ids against the store in one
// read, skips every relationship with a missing endpoint and writes the
// rest grouped by type, in batches with per-item fallback. Re-ingesting the
// same (source, type, target) fact merges the existing edge.
func (w *GraphWriter) UpsertRelationships(ctx context.Context, relationships []*model.Relationship) (*model.WriteResult, error) {
	result := &model.WriteResult{}
	if len(relationships) == 0 {
		return result, nil
	}

	existing, err := w.store.CheckIdsExist(ctx, endpointIDs(relationships))
	if err != nil {
		return result, err
	}

	byType := make(map[string][]*model.Relationship)
	for _, relationship := range relationships {
		if !existing[relationship.SourceID] || !existing[relationship.TargetID] {
			result.Skipped++
			w.log.Warn("Skipped relationship with missing endpoint",
				slog.String("source", relationship.SourceID.String()),
				slog.String("target", relationship.TargetID.String()),
				slog.String("type", relationship.Type))
			continue
		}
		byType[relationship.Type] = append(byType[relationship.Type], relationship)
	}

	relTypes := make([]string, 0, len(byType))
	for relType := range byType {
		relTypes = append(relTypes, relType)
	}
	sort.Strings(relTypes)

	for _, relType := range relTypes {
		typeResult, err := runBatches(byType[relType], w.config.BatchSize, "upsert "+relType, w.log,
			func(batch []*model.Relationship) (*model.WriteResult, error) {
				return w.store.UpsertRelationshipBatch(ctx, relType, batch)
			},
			func(relationship *model.Relationship) (bool, error) {
				return w.store.UpsertRelationship(ctx, relationship)
			},
		)
		result.Add(*typeResult)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// verifyVisibility confirms that a sample of a committed batch is visible
// to an independent read session before the writer proceeds, guarding
// against replicated backends acknowledging before readers catch up. The
// poll is bounded; a sample that never shows up is logged and accepted.
func (w *GraphWriter) verifyVisibility(ctx context.Context, batch []*model.CanonicalEntity) {
	if !w.config.VerifyWrites || len(batch) == 0 {
		return
	}

	sampleSize := min(w.config.VerifySampleSize, len(batch))
	if sampleSize < 1 {
		sampleSize = 1
	}
	sample := make([]uuid.UUID, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		sample = append(sample, batch[i*len(batch)/sampleSize].ID)
	}

	retries := max(w.config.VerifyRetries, 1)
	for attempt := 1; ; attempt++ {
		existing, err := w.store.CheckIdsExist(ctx, sample)
		if err == nil && allExist(sample, existing) {
			return
		}

		if attempt >= retries {
			if err != nil {
				w.log.Warn("Visibility verification failed", slog.String("error", err.Error()))
			} else {
				w.log.Warn("Committed batch not yet visible to readers", slog.Int("attempts", attempt))
			}
			return
		}
		if w.config.VerifyInterval > 0 {
			time.Sleep(w.config.VerifyInterval)
		}
	}
}

func allExist(ids []uuid.UUID, existing map[uuid.UUID]bool) bool {
	for _, id := range ids {
		if !existing[id] {
			return false
		}
	}
	return true
}

// endpointIDs collects the distinct endpoint ids of all relationships.
func endpointIDs(relationships []*model.Relationship) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(relationships)*2)
	ids := make([]uuid.UUID, 0, len(relationships)*2)
	for _, relationship := range relationships {
		for _, id := range []uuid.UUID{relationship.SourceID, relationship.TargetID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

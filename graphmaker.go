package graphmaker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/siherrmann/graphmaker/core/pipeline"
	"github.com/siherrmann/graphmaker/core/resolve"
	"github.com/siherrmann/graphmaker/core/write"
	"github.com/siherrmann/graphmaker/helper"
	"github.com/siherrmann/graphmaker/model"
	"github.com/siherrmann/graphmaker/store"
)

// GraphMaker turns raw entity and relationship candidates into a
// deduplicated, referentially consistent property graph. It owns one
// resolution session, the relationship rewriter and the graph writer over
// a backing store. Candidates come from an extraction pipeline plugged in
// through SetPipeline.
type GraphMaker struct {
	Store    store.GraphStore
	Session  *resolve.Session
	Rewriter *resolve.Rewriter
	Writer   *write.GraphWriter
	Pipeline *pipeline.Pipeline
	config   model.Config
	// Logging
	log *slog.Logger
}

// NewGraphMaker creates a GraphMaker on top of an initialized store. A nil
// config selects the defaults.
func NewGraphMaker(graphStore store.GraphStore, config *model.Config) (*GraphMaker, error) {
	if graphStore == nil {
		return nil, helper.NewError("store validation", fmt.Errorf("graph store is nil"))
	}
	if config == nil {
		defaults := model.DefaultConfig()
		config = &defaults
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	return &GraphMaker{
		Store:    graphStore,
		Session:  resolve.NewSession(config.Resolver, logger),
		Rewriter: resolve.NewRewriter(logger),
		Writer:   write.NewGraphWriter(graphStore, config.Writer, logger),
		config:   *config,
		log:      logger,
	}, nil
}

// SetPipeline sets the chunking and extraction pipeline for document
// processing
func (g *GraphMaker) SetPipeline(pipeline *pipeline.Pipeline) {
	g.Pipeline = pipeline
}

// Reset clears the resolution session. Entities already persisted in the
// store stay untouched. Resetting concurrently with an in-flight
// ProcessDocument is undefined, the caller serializes lifecycle.
func (g *GraphMaker) Reset() {
	g.Session.Reset()
}

// Close closes the backing store
func (g *GraphMaker) Close(ctx context.Context) error {
	if g.Store != nil {
		return g.Store.Close(ctx)
	}
	return nil
}

// ProcessDocument runs the full ingestion of one document:
//  1. chunk the content and extract candidates with bounded parallelism
//  2. fold every chunk's entity candidates through the session, serialized
//  3. rewrite relationship endpoints onto canonical ids, after the whole
//     document has been resolved
//  4. upsert the touched entities, then the rewritten relationships
//
// Cancellation is honored at the document boundary only; an in-flight
// transaction always completes. Per-item failures land in the report
// counters, the returned error is non-nil only for unusable input or a
// store that became unreachable.
func (g *GraphMaker) ProcessDocument(ctx context.Context, doc *model.Document) (*model.DocumentReport, error) {
	if g.Pipeline == nil {
		return nil, helper.NewError("process document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if doc == nil || doc.Content == "" {
		return nil, helper.NewError("process document", fmt.Errorf("document content is empty"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &model.DocumentReport{DocumentID: doc.ID}

	var ontology *model.Ontology
	if !g.config.Resolver.Ontology.IsEmpty() {
		ontology = g.config.Resolver.Ontology
	}

	results, err := g.Pipeline.ExtractDocument(ctx, doc.Content, ontology, g.config.ExtractionConcurrency, g.log)
	if err != nil {
		return nil, helper.NewError("extract document", err)
	}
	report.Chunks = len(results)

	g.log.Info("Extracted document",
		slog.String("document_id", doc.ID.String()),
		slog.Int("chunks", len(results)))

	// Resolution is serialized: one chunk's candidates at a time, in chunk
	// order, even though extraction overlapped.
	touched := make([]*model.CanonicalEntity, 0)
	seen := make(map[string]bool)
	var relationshipCandidates []model.RelationshipCandidate

	for _, result := range results {
		if result.Err != nil {
			report.FailedChunks++
			continue
		}

		candidates := defaultSources(result.Entities, doc.ID.String(), result.Index)
		entities, dropped := g.Session.DeduplicateEntities(candidates)
		report.DroppedCandidates += dropped

		for _, entity := range entities {
			if !seen[entity.ID.String()] {
				seen[entity.ID.String()] = true
				touched = append(touched, entity)
			}
		}
		relationshipCandidates = append(relationshipCandidates, result.Relationships...)
	}

	// The rewrite runs over the whole document's entities, later chunks can
	// retroactively change which canonical id a name maps to.
	relationships, dropped := g.Rewriter.Rewrite(touched, relationshipCandidates)
	report.DroppedRelationships = dropped

	entityResult, err := g.Writer.UpsertEntities(ctx, touched)
	if entityResult != nil {
		report.Entities = *entityResult
	}
	if err != nil {
		report.Duration = time.Since(start)
		return report, helper.NewError("upsert entities", err)
	}

	relationshipResult, err := g.Writer.UpsertRelationships(ctx, relationships)
	if relationshipResult != nil {
		report.Relationships = *relationshipResult
	}
	if err != nil {
		report.Duration = time.Since(start)
		return report, helper.NewError("upsert relationships", err)
	}

	report.Duration = time.Since(start)

	g.log.Info("Processed document",
		slog.String("document_id", doc.ID.String()),
		slog.Int("entities", report.Entities.Total()),
		slog.Int("relationships", report.Relationships.Total()),
		slog.String("duration", report.Duration.String()))

	return report, nil
}

// ResolveEntities folds raw candidates through the session without touching
// the store, for callers that drive the stages directly. Returns the
// distinct canonical entities touched and the dropped candidate count.
func (g *GraphMaker) ResolveEntities(candidates []model.EntityCandidate) ([]*model.CanonicalEntity, int) {
	return g.Session.DeduplicateEntities(candidates)
}

// WriteEntities persists canonical entities, for callers that drive the
// stages directly.
func (g *GraphMaker) WriteEntities(ctx context.Context, entities []*model.CanonicalEntity) (*model.WriteResult, error) {
	return g.Writer.UpsertEntities(ctx, entities)
}

// WriteRelationships rewrites candidate endpoints against the given
// entities and persists the resolved relationships. Returns the write
// counters and the number of candidates dropped during the rewrite.
func (g *GraphMaker) WriteRelationships(ctx context.Context, entities []*model.CanonicalEntity, candidates []model.RelationshipCandidate) (*model.WriteResult, int, error) {
	relationships, dropped := g.Rewriter.Rewrite(entities, candidates)
	result, err := g.Writer.UpsertRelationships(ctx, relationships)
	return result, dropped, err
}

// defaultSources fills missing source provenance on candidates with the
// document and chunk they came from.
func defaultSources(candidates []model.EntityCandidate, documentID string, chunkIndex int) []model.EntityCandidate {
	filled := make([]model.EntityCandidate, len(candidates))
	copy(filled, candidates)
	for i := range filled {
		if len(filled[i].Sources) == 0 {
			filled[i].Sources = model.SourceList{{
				DocumentID: documentID,
				ChunkIndex: chunkIndex,
				Confidence: filled[i].ConfidenceOrDefault(),
			}}
		}
	}
	return filled
}

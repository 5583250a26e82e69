package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/siherrmann/graphmaker/model"
)

// ChunkFunc is a function that splits text into chunks
type ChunkFunc func(text string) ([]string, error)

// ExtractFunc is a function that extracts candidate entities and
// relationships from one text chunk. The extraction collaborator is
// external; this module only defines the seam it plugs into. An ontology,
// if given, constrains the entity type vocabulary.
type ExtractFunc func(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error)

// ChunkResult holds the extraction output of one chunk. A failed chunk
// carries its error and empty candidate lists.
type ChunkResult struct {
	Index         int
	Chunk         string
	Entities      []model.EntityCandidate
	Relationships []model.RelationshipCandidate
	Err           error
}

// Pipeline combines chunking and extraction functions
type Pipeline struct {
	Chunker   ChunkFunc
	Extractor ExtractFunc
}

// NewPipeline creates a new extraction pipeline
func NewPipeline(chunker ChunkFunc, extractor ExtractFunc) *Pipeline {
	return &Pipeline{
		Chunker:   chunker,
		Extractor: extractor,
	}
}

// ExtractDocument chunks text and runs the extractor over the chunks with
// bounded parallelism. Results come back in chunk order. A failing chunk is
// recorded in its result and never aborts the document; the returned error
// is non-nil only when chunking fails or every single chunk failed.
//
// Extraction may overlap, resolution must not: callers fold the returned
// candidates into a session sequentially.
func (p *Pipeline) ExtractDocument(ctx context.Context, text string, ontology *model.Ontology, concurrency int, logger *slog.Logger) ([]ChunkResult, error) {
	if p.Chunker == nil || p.Extractor == nil {
		return nil, fmt.Errorf("pipeline requires a chunker and an extractor")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	chunks, err := p.Chunker(text)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([]ChunkResult, len(chunks))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(index int, chunk string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			entities, relationships, err := p.Extractor(ctx, chunk, ontology)
			results[index] = ChunkResult{
				Index:         index,
				Chunk:         chunk,
				Entities:      entities,
				Relationships: relationships,
				Err:           err,
			}
			if err != nil {
				logger.Warn("Chunk extraction failed",
					slog.Int("chunk", index),
					slog.String("error", err.Error()))
			}
		}(i, chunk)
	}
	wg.Wait()

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	if failed == len(results) {
		return results, fmt.Errorf("extraction failed for all %d chunks", len(results))
	}

	return results, nil
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/graphmaker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedExtractor returns one entity candidate per chunk, named after the
// first word of the chunk.
func namedExtractor() ExtractFunc {
	return func(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
		name := strings.Fields(chunk)[0]
		return []model.EntityCandidate{{Name: name, Type: "Thing"}}, nil, nil
	}
}

func TestNewPipeline(t *testing.T) {
	t.Run("Valid call NewPipeline", func(t *testing.T) {
		pipeline := NewPipeline(WordChunker(100), namedExtractor())
		require.NotNil(t, pipeline)
		assert.NotNil(t, pipeline.Chunker)
		assert.NotNil(t, pipeline.Extractor)
	})
}

func TestExtractDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("Results come back in chunk order", func(t *testing.T) {
		pipeline := NewPipeline(WordChunker(10), namedExtractor())
		text := "alpha one two beta three four gamma five six"

		results, err := pipeline.ExtractDocument(ctx, text, nil, 4, nil)

		require.NoError(t, err)
		require.Greater(t, len(results), 1, "Expected multiple chunks")
		for i, result := range results {
			assert.Equal(t, i, result.Index, "Expected results in chunk order")
			require.NoError(t, result.Err)
			require.Len(t, result.Entities, 1)
			assert.Equal(t, strings.Fields(result.Chunk)[0], result.Entities[0].Name)
		}
	})

	t.Run("Concurrency stays within the configured bound", func(t *testing.T) {
		var active, peak int64
		var mu sync.Mutex

		extractor := func(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
			current := atomic.AddInt64(&active, 1)
			mu.Lock()
			if current > peak {
				peak = current
			}
			mu.Unlock()
			defer atomic.AddInt64(&active, -1)
			return nil, nil, nil
		}

		pipeline := NewPipeline(WordChunker(5), extractor)
		text := strings.Repeat("word ", 100)

		_, err := pipeline.ExtractDocument(ctx, text, nil, 2, nil)

		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.LessOrEqual(t, peak, int64(2), "Expected at most 2 concurrent extractions")
	})

	t.Run("One failing chunk does not abort the document", func(t *testing.T) {
		extractor := func(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
			if strings.Contains(chunk, "one") {
				return nil, nil, fmt.Errorf("extractor unavailable")
			}
			return []model.EntityCandidate{{Name: "ok", Type: "Thing"}}, nil, nil
		}

		pipeline := NewPipeline(WordChunker(6), extractor)
		text := "one two three four five six seven eight"

		results, err := pipeline.ExtractDocument(ctx, text, nil, 1, nil)

		require.NoError(t, err, "Expected a single chunk failure to be tolerated")
		require.Greater(t, len(results), 1)
		assert.Error(t, results[0].Err, "Expected the first chunk to carry its error")
		assert.NoError(t, results[1].Err)
	})

	t.Run("Error when all chunks fail", func(t *testing.T) {
		extractor := func(ctx context.Context, chunk string, ontology *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
			return nil, nil, fmt.Errorf("extractor unavailable")
		}

		pipeline := NewPipeline(WordChunker(6), extractor)

		_, err := pipeline.ExtractDocument(ctx, "one two three four five six", nil, 2, nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "all")
	})

	t.Run("Error when chunking fails", func(t *testing.T) {
		pipeline := NewPipeline(WordChunker(0), namedExtractor())

		_, err := pipeline.ExtractDocument(ctx, "some text", nil, 2, nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "chunking failed")
	})

	t.Run("Empty text yields no results", func(t *testing.T) {
		pipeline := NewPipeline(WordChunker(100), namedExtractor())

		results, err := pipeline.ExtractDocument(ctx, "", nil, 2, nil)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Error without chunker or extractor", func(t *testing.T) {
		pipeline := &Pipeline{}

		_, err := pipeline.ExtractDocument(ctx, "some text", nil, 2, nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "requires a chunker and an extractor")
	})

	t.Run("Ontology is passed through to the extractor", func(t *testing.T) {
		ontology := model.NewOntology([]string{"Person"}, "knows")
		extractor := func(ctx context.Context, chunk string, o *model.Ontology) ([]model.EntityCandidate, []model.RelationshipCandidate, error) {
			assert.Same(t, ontology, o)
			return nil, nil, nil
		}

		pipeline := NewPipeline(WordChunker(100), extractor)

		_, err := pipeline.ExtractDocument(ctx, "some text", ontology, 1, nil)
		require.NoError(t, err)
	})
}

package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordChunker(t *testing.T) {
	t.Run("Valid chunking with multiple words", func(t *testing.T) {
		chunker := WordChunker(20)
		text := "one two three four five six seven eight nine ten"

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Greater(t, len(chunks), 1, "Expected text to be split into multiple chunks")

		// Reassembled chunks must contain every word in order
		assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	})

	t.Run("Never splits a word", func(t *testing.T) {
		chunker := WordChunker(5)
		text := "supercalifragilistic word"

		chunks, err := chunker(text)

		require.NoError(t, err)
		require.Equal(t, 2, len(chunks))
		assert.Equal(t, "supercalifragilistic", chunks[0], "Expected an overlong word to stay intact")
		assert.Equal(t, "word", chunks[1])
	})

	t.Run("Text below chunk size yields one chunk", func(t *testing.T) {
		chunker := WordChunker(1000)
		text := "a short text"

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, []string{"a short text"}, chunks)
	})

	t.Run("Empty text yields no chunks", func(t *testing.T) {
		chunker := WordChunker(100)

		chunks, err := chunker("   \n\t  ")

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Error with zero chunk size", func(t *testing.T) {
		chunker := WordChunker(0)

		_, err := chunker("some text")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})
}

func TestSentenceChunker(t *testing.T) {
	t.Run("Valid chunking with multiple sentences", func(t *testing.T) {
		chunker := SentenceChunker(2)
		text := "This is sentence one. This is sentence two. This is sentence three."

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, 2, len(chunks))
		assert.Contains(t, chunks[0], "sentence one")
		assert.Contains(t, chunks[0], "sentence two")
		assert.Contains(t, chunks[1], "sentence three")
	})

	t.Run("Single sentence", func(t *testing.T) {
		chunker := SentenceChunker(1)
		text := "This is a single sentence."

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, 1, len(chunks))
		assert.Contains(t, chunks[0], "single sentence")
	})

	t.Run("Different punctuation marks", func(t *testing.T) {
		chunker := SentenceChunker(1)
		text := "Question one? Statement two. Exclamation three!"

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, 3, len(chunks))
	})

	t.Run("Empty text", func(t *testing.T) {
		chunker := SentenceChunker(2)

		chunks, err := chunker("")

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Error with zero max sentences", func(t *testing.T) {
		chunker := SentenceChunker(0)

		_, err := chunker("Some text.")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("Error with negative max sentences", func(t *testing.T) {
		chunker := SentenceChunker(-1)

		_, err := chunker("Some text.")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})
}

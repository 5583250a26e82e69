package pipeline

import (
	"fmt"
	"strings"
)

// WordChunker creates a chunker that packs whole words greedily into chunks
// of approximately chunkSize characters, never splitting a word.
func WordChunker(chunkSize int) ChunkFunc {
	return func(text string) ([]string, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}

		words := strings.Fields(text)
		if len(words) == 0 {
			return []string{}, nil
		}

		var chunks []string
		var current []string
		currentSize := 0

		for _, word := range words {
			wordSize := len(word) + 1 // trailing space
			if currentSize+wordSize > chunkSize && len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
				current = []string{word}
				currentSize = wordSize
			} else {
				current = append(current, word)
				currentSize += wordSize
			}
		}

		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}

		return chunks, nil
	}
}

// SentenceChunker creates a chunker that splits by sentences
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		// Handle empty or whitespace-only text
		if strings.TrimSpace(text) == "" {
			return []string{}, nil
		}

		text = strings.ReplaceAll(text, "! ", "!|")
		text = strings.ReplaceAll(text, "? ", "?|")
		text = strings.ReplaceAll(text, ". ", ".|")

		var sentences []string
		for _, s := range strings.Split(text, "|") {
			s = strings.TrimSpace(s)
			if s != "" {
				sentences = append(sentences, s)
			}
		}

		var chunks []string
		var current []string

		for _, sentence := range sentences {
			current = append(current, sentence)

			if len(current) >= maxSentencesPerChunk {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
			}
		}

		// Add remaining sentences
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}

		return chunks, nil
	}
}

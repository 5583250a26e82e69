package model

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkSize is the approximate chunk length in characters used when a
// document does not set its own.
const DefaultChunkSize = 1000

// Document represents a source text to be ingested. Content is consumed
// during processing and never persisted.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Content   string    `json:"content,omitempty"`
	ChunkSize int       `json:"chunk_size,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocument creates a document with a fresh id and the default chunk size.
func NewDocument(title, content string) *Document {
	return &Document{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		ChunkSize: DefaultChunkSize,
		CreatedAt: time.Now(),
	}
}

// NewDocumentFromFile reads a file and creates a Document with the file
// content. The title defaults to the filename without extension, the source
// to the file path.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	doc := NewDocument(title, string(content))
	doc.Source = filePath
	doc.Metadata = metadata
	return doc, nil
}

// Chunks splits the content into pieces of approximately ChunkSize
// characters, packing whole words greedily and never splitting one.
// Empty content yields no chunks.
func (d *Document) Chunks() []string {
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return chunkWords(d.Content, size)
}

func chunkWords(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, word := range words {
		wordSize := len(word) + 1 // trailing space
		if currentSize+wordSize > size && len(current) > 0 {
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

	return chunks
}

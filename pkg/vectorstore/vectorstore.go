// Package vectorstore provides the nearest-neighbor text store backing the
// tutoring context retrieval, with an in-memory implementation and a
// Retriever that formats search hits into tutor-ready context.
package vectorstore

import (
	"context"
	"fmt"
	"time"
)

// Document represents a stored text chunk with its embedding and metadata.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SearchResult is a document with its similarity score, higher is closer.
type SearchResult struct {
	Document Document
	Score    float32
}

// Store is the vector store interface. An empty search result is a valid,
// non-error outcome.
type Store interface {
	// Upsert inserts or updates documents.
	Upsert(ctx context.Context, documents []Document) error

	// Search returns the topK most similar documents by cosine similarity.
	Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error)

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count() int

	// Close releases any resources held by the store.
	Close() error
}

// ValidateDocument checks a document before storage.
func ValidateDocument(doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("document %s has no embedding", doc.ID)
	}
	return nil
}

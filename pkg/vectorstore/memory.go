package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store using brute-force cosine search. It is
// suitable for single-process deployments and tests; search cost grows
// linearly with the number of documents.
type MemoryStore struct {
	documents map[string]Document
	dims      int
	maxDocs   int
	mu        sync.RWMutex
}

// NewMemoryStore creates a store expecting embeddings of the given
// dimensionality. maxDocs <= 0 means unlimited.
func NewMemoryStore(dims, maxDocs int) (*MemoryStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", dims)
	}
	return &MemoryStore{
		documents: make(map[string]Document),
		dims:      dims,
		maxDocs:   maxDocs,
	}, nil
}

// Upsert inserts or updates documents.
func (m *MemoryStore) Upsert(ctx context.Context, documents []Document) error {
	if len(documents) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range documents {
		if err := ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
		if len(documents[i].Embedding) != m.dims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				documents[i].ID, m.dims, len(documents[i].Embedding))
		}
	}

	newDocs := 0
	for _, doc := range documents {
		if _, exists := m.documents[doc.ID]; !exists {
			newDocs++
		}
	}
	if m.maxDocs > 0 && len(m.documents)+newDocs > m.maxDocs {
		return fmt.Errorf("would exceed max documents limit: %d", m.maxDocs)
	}

	for _, doc := range documents {
		m.documents[doc.ID] = doc
	}
	return nil
}

// Search performs brute-force cosine similarity search.
func (m *MemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error) {
	if len(embedding) != m.dims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d", m.dims, len(embedding))
	}
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []SearchResult
	for _, doc := range m.documents {
		candidates = append(candidates, SearchResult{
			Document: doc,
			Score:    cosineSimilarity(embedding, doc.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.documents, id)
	}
	return nil
}

// Count returns the number of stored documents.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

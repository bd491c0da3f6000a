package vectorstore

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDims is the dimensionality of the built-in hash embedder.
const EmbeddingDims = 384

// HashEmbed produces a deterministic bit-vector embedding from text. It has
// no semantic power; it exists so retrieval works end to end without an
// embedding service, with exact and near-exact text matching well.
func HashEmbed(text string) []float32 {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(text))))

	out := make([]float32, EmbeddingDims)
	for i := 0; i < EmbeddingDims; i++ {
		byteIdx := (i / 8) % len(sum)
		if sum[byteIdx]>>(uint(i)%8)&1 == 1 {
			out[i] = 1
		}
	}
	return out
}

// Source describes one retrieval hit included in the formatted context.
type Source struct {
	ID        int     `json:"id"`
	Relevance float32 `json:"relevance"`
	Subject   string  `json:"subject"`
	Type      string  `json:"content_type"`
}

// RetrievalResult is the formatted retrieval outcome handed to the tutor.
// An empty Sources list is valid; Context then carries a placeholder.
type RetrievalResult struct {
	Context         string   `json:"context"`
	Sources         []Source `json:"sources"`
	TotalResults    int      `json:"total_results"`
	RelevantResults int      `json:"relevant_results"`
}

// minRelevance is the similarity floor below which hits are excluded from
// the formatted context.
const minRelevance = 0.3

// Retriever couples an embedder with a store and formats search hits into
// tutor-ready context blocks.
type Retriever struct {
	store Store
	embed func(string) []float32
	topK  int
}

// NewRetriever creates a retriever over the given store using the built-in
// hash embedder.
func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store, embed: HashEmbed, topK: 5}
}

// Add embeds and stores one piece of content, returning its document ID.
func (r *Retriever) Add(ctx context.Context, content string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("no content provided")
	}

	doc := Document{
		ID:        uuid.New().String(),
		Content:   content,
		Embedding: r.embed(content),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Upsert(ctx, []Document{doc}); err != nil {
		return "", fmt.Errorf("upsert document: %w", err)
	}
	return doc.ID, nil
}

// Retrieve searches for content relevant to the query and formats the hits
// above the relevance floor into a numbered context block.
func (r *Retriever) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return RetrievalResult{Context: "No query provided", Sources: []Source{}}, nil
	}

	hits, err := r.store.Search(ctx, r.embed(query), r.topK)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return RetrievalResult{
			Context: "No relevant context found in knowledge base",
			Sources: []Source{},
		}, nil
	}

	var blocks []string
	var sources []Source
	for i, hit := range hits {
		if hit.Score < minRelevance {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d] %s", i+1, hit.Document.Content))
		sources = append(sources, Source{
			ID:        i + 1,
			Relevance: hit.Score,
			Subject:   metadataString(hit.Document.Metadata, "subject", "unknown"),
			Type:      metadataString(hit.Document.Metadata, "content_type", "note"),
		})
	}

	contextText := "No highly relevant context found"
	if len(blocks) > 0 {
		contextText = strings.Join(blocks, "\n\n")
	}

	return RetrievalResult{
		Context:         contextText,
		Sources:         sources,
		TotalResults:    len(hits),
		RelevantResults: len(blocks),
	}, nil
}

func metadataString(md map[string]any, key, def string) string {
	if v, ok := md[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

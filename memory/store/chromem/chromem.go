// Package chromem implements the semantic vector store on chromem-go, a
// pure Go embedded vector database. Records are append-only: created and
// searched, never mutated.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/engramlabs/engram-go/memory"
)

const collectionName = "memories"

// Store is the chromem-backed memory.VectorStore. The collection is created
// lazily on first use; Count on an untouched store reports zero without
// touching disk.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
	mu  sync.RWMutex
}

// Open opens (creating if needed) a persistent vector database rooted at
// dir.
func Open(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem: %w", err)
	}
	return &Store{db: db}, nil
}

// collection returns the backing collection, creating it on first call.
func (s *Store) collection() (*chromem.Collection, error) {
	s.mu.RLock()
	col := s.col
	s.mu.RUnlock()
	if col != nil {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.col != nil {
		return s.col, nil
	}

	col, err := s.db.GetOrCreateCollection(
		collectionName,
		nil, // no collection metadata
		nil, // no embedding func (we provide embeddings)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.col = col
	return col, nil
}

// Store appends a record with its precomputed embedding.
func (s *Store) Store(ctx context.Context, draft memory.VectorDraft) (memory.VectorRecord, error) {
	col, err := s.collection()
	if err != nil {
		return memory.VectorRecord{}, err
	}

	rec := memory.VectorRecord{
		ID:         uuid.New().String(),
		Text:       draft.Text,
		Vector:     draft.Vector,
		Importance: draft.Importance,
		Category:   draft.Category,
		CreatedAt:  time.Now().UTC(),
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: rec.Vector,
		Metadata: map[string]string{
			"category":   string(rec.Category),
			"importance": strconv.FormatFloat(rec.Importance, 'f', -1, 64),
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return memory.VectorRecord{}, fmt.Errorf("add document: %w", err)
	}

	log.Printf("[CHROMEM] stored record %s [%s]", rec.ID, rec.Category)
	return rec, nil
}

// Search returns the nearest neighbors of the query vector, scored as
// 1/(1+distance) where distance = 1 - cosine similarity, filtered to
// score >= minScore. Identical text scores 1.0.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]memory.VectorResult, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size.
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	raw, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	var results []memory.VectorResult
	for _, r := range raw {
		distance := 1.0 - float64(r.Similarity)
		score := 1.0 / (1.0 + distance)
		if score < minScore {
			continue
		}
		rec := memory.VectorRecord{
			ID:       r.ID,
			Text:     r.Content,
			Vector:   r.Embedding,
			Category: memory.Category(r.Metadata["category"]),
		}
		if v, err := strconv.ParseFloat(r.Metadata["importance"], 64); err == nil {
			rec.Importance = v
		}
		if t, err := time.Parse(time.RFC3339, r.Metadata["created_at"]); err == nil {
			rec.CreatedAt = t
		}
		results = append(results, memory.VectorResult{Record: rec, Score: score})
	}
	return results, nil
}

// Count returns the number of stored records. An untouched store reports
// zero without creating the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	col := s.col
	s.mu.RUnlock()
	if col == nil {
		// Collection may exist on disk from an earlier run.
		if existing := s.db.GetCollection(collectionName, nil); existing != nil {
			s.mu.Lock()
			s.col = existing
			col = existing
			s.mu.Unlock()
		} else {
			return 0, nil
		}
	}
	return col.Count(), nil
}

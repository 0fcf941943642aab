package memory

import (
	"context"
	"time"
)

// Category labels what kind of statement a fact is.
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryFact       Category = "fact"
	CategoryDecision   Category = "decision"
	CategoryEntity     Category = "entity"
	CategoryOther      Category = "other"
)

// DecayClass is the policy label controlling how long a fact remains valid
// and whether access renews its lifetime.
type DecayClass string

const (
	DecayPermanent  DecayClass = "permanent"
	DecayStable     DecayClass = "stable"
	DecayActive     DecayClass = "active"
	DecaySession    DecayClass = "session"
	DecayCheckpoint DecayClass = "checkpoint"
)

// Fact is the authoritative memory record, owned by the lexical store.
//
// ExpiresAt is nil only for permanent facts or when the caller explicitly
// requested no expiry. Importance and Confidence are expected in [0,1];
// clamping is the caller's job — the store persists what it is given.
type Fact struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	Category        Category   `json:"category"`
	Importance      float64    `json:"importance"`
	Entity          string     `json:"entity,omitempty"`
	Attribute       string     `json:"attribute,omitempty"`
	Value           string     `json:"value,omitempty"`
	Source          string     `json:"source,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecayClass      DecayClass `json:"decay_class"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	LastConfirmedAt time.Time  `json:"last_confirmed_at"`
	Confidence      float64    `json:"confidence"`
}

// FactDraft is a Fact before the store assigns identity and timestamps.
// DecayClass empty means "classify for me". NoExpiry forces a nil ExpiresAt
// regardless of the resolved decay class.
type FactDraft struct {
	Text       string
	Category   Category
	Importance float64
	Entity     string
	Attribute  string
	Value      string
	Source     string
	DecayClass DecayClass
	NoExpiry   bool
	Confidence float64
}

// VectorRecord is the semantic index entry. Its id space is independent of
// Fact ids — the two stores are not foreign-keyed to each other.
type VectorRecord struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"-"`
	Importance float64   `json:"importance"`
	Category   Category  `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
}

// VectorDraft is a VectorRecord before the store assigns identity.
type VectorDraft struct {
	Text       string
	Vector     []float32
	Importance float64
	Category   Category
}

// SearchResult is a lexical hit with its relevance score in (0,1].
type SearchResult struct {
	Fact  Fact
	Score float64
}

// VectorResult is a semantic hit with its similarity-derived score.
type VectorResult struct {
	Record VectorRecord
	Score  float64
}

// MergedResult is one entry of the fused recall ranking. Backend records
// which index sourced the entry ("lexical" or "vector").
type MergedResult struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
	Backend  string   `json:"backend"`
}

const (
	BackendLexical = "lexical"
	BackendVector  = "vector"
)

// LexicalStore is the exact/full-text index over facts.
// Implementations: sqlite (FTS5-backed, SDK-provided).
type LexicalStore interface {
	// Store assigns an id and creation timestamp, resolves decay class and
	// expiry, and persists the fact together with its search-index entry.
	Store(ctx context.Context, draft FactDraft) (Fact, error)

	// Search returns facts ranked by lexical relevance, scores in (0,1],
	// excluding expired facts, ordered by score descending.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// RefreshAccessed renews the lifetime of the given facts. Only facts
	// with decay class stable or active are touched; for those,
	// LastConfirmedAt and ExpiresAt move together in one atomic batch.
	RefreshAccessed(ctx context.Context, ids []string) error

	// PruneExpired deletes every fact whose expiry is in the past and
	// returns the number deleted.
	PruneExpired(ctx context.Context) (int, error)

	// Count returns the total number of stored facts.
	Count(ctx context.Context) (int, error)
}

// VectorStore is the semantic index over embeddings. Append-only: records
// are created and searched, never mutated.
// Implementations: chromem (embedded vector database, SDK-provided).
type VectorStore interface {
	// Store assigns an id and creation timestamp and appends the record.
	Store(ctx context.Context, draft VectorDraft) (VectorRecord, error)

	// Search returns nearest neighbors of the query vector, scored as
	// 1/(1+distance), filtered to score >= minScore, descending.
	Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]VectorResult, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
}

// Embedder converts text to a fixed-length vector.
// Implementations: openai (remote API), onnx (local model, build-tagged),
// mock (testing).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

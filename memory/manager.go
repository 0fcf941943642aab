package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dgraph-io/ristretto"

	"github.com/engramlabs/engram-go/core"
)

// ErrRejected is returned by explicit store requests whose content fails the
// length bounds or the injection screen. Routine capture filtering is silent;
// the explicit path reports the outcome because the caller asked.
var ErrRejected = errors.New("memory: content rejected")

// Config holds Manager behavior knobs. The two thresholds are tunable
// defaults, not invariants.
type Config struct {
	// AutoRecall injects relevant memories at turn start.
	AutoRecall bool

	// AutoCapture scans user utterances at turn end.
	AutoCapture bool

	// RecallLimit caps merged recall results. Default: 6.
	RecallLimit int

	// MinRecallScore is the vector-search score floor. Default: 0.25.
	MinRecallScore float64

	// DuplicateThreshold is the vector score at or above which a capture
	// candidate is considered a near-duplicate and skipped. Default: 0.95.
	DuplicateThreshold float64

	// MaxCandidatesPerTurn bounds how many gate-accepted candidates are
	// embedded and written per turn. Default: 5.
	MaxCandidatesPerTurn int

	// MaxCaptureLength is the upper length bound for captured text.
	// Default: 500.
	MaxCaptureLength int

	// MinQueryLength is the shortest prompt worth recalling for. Default: 3.
	MinQueryLength int
}

// DefaultConfig returns sensible defaults for the local SDK.
var DefaultConfig = &Config{
	AutoRecall:           true,
	AutoCapture:          true,
	RecallLimit:          6,
	MinRecallScore:       0.25,
	DuplicateThreshold:   0.95,
	MaxCandidatesPerTurn: 5,
	MaxCaptureLength:     DefaultMaxCaptureLen,
	MinQueryLength:       3,
}

// StoreStats reports the record counts of the two indexes.
type StoreStats struct {
	Facts   int `json:"facts"`
	Vectors int `json:"vectors"`
}

// Manager orchestrates recall and capture around the two turn-boundary
// events. Both stores and the embedder are composed behind interfaces; the
// Manager decides what to query, what to store, and how to degrade.
//
// Within one conversation the caller runs turn events sequentially; across
// conversations Manager methods may overlap.
type Manager struct {
	lexical  LexicalStore
	vector   VectorStore
	embedder Embedder
	config   *Config

	// embedCache avoids re-embedding repeated text (queries and duplicate
	// capture candidates within a session).
	embedCache *ristretto.Cache
}

// NewManager creates a Manager. A nil config uses DefaultConfig.
func NewManager(lexical LexicalStore, vector VectorStore, embedder Embedder, config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     32 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embed cache: %w", err)
	}
	return &Manager{
		lexical:    lexical,
		vector:     vector,
		embedder:   embedder,
		config:     config,
		embedCache: cache,
	}, nil
}

// embed returns the embedding for text, consulting the cache first.
func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.embedCache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.embedCache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// Recall queries both indexes with the query text and returns the fused,
// deduplicated ranking, at most limit entries (limit <= 0 uses the config
// default). Store and provider errors are logged and degrade to fewer (or
// zero) results — Recall never fails.
//
// Lexical facts that make the final ranking get their lifetime renewed.
func (m *Manager) Recall(ctx context.Context, query string, limit int) []MergedResult {
	if limit <= 0 {
		limit = m.config.RecallLimit
	}

	lex, err := m.lexical.Search(ctx, query, limit)
	if err != nil {
		log.Printf("[MEMORY] lexical search failed: %v", err)
		lex = nil
	}

	var vec []VectorResult
	if emb, err := m.embed(ctx, query); err != nil {
		log.Printf("[MEMORY] query embedding failed: %v", err)
	} else if vec, err = m.vector.Search(ctx, emb, limit, m.config.MinRecallScore); err != nil {
		log.Printf("[MEMORY] vector search failed: %v", err)
		vec = nil
	}

	merged := MergeRanked(lex, vec)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	// TTL renewal on access, for the facts actually surfaced. The merge
	// dedups by text, so every lexical id carrying a surfaced text is
	// renewed, not just the one the merge kept.
	surfaced := make(map[string]bool, len(merged))
	for _, r := range merged {
		if r.Backend == BackendLexical {
			surfaced[r.Text] = true
		}
	}
	var accessed []string
	for _, r := range lex {
		if surfaced[r.Fact.Text] {
			accessed = append(accessed, r.Fact.ID)
		}
	}
	if len(accessed) > 0 {
		if err := m.lexical.RefreshAccessed(ctx, accessed); err != nil {
			log.Printf("[MEMORY] access refresh failed: %v", err)
		}
	}

	return merged
}

// OnTurnStart is the before-turn hook. It returns a formatted context block
// to prepend to the conversation, or "" when recall is disabled, the prompt
// is too short, or nothing relevant was found. Internal failures degrade to
// "" — a turn never fails because of memory.
func (m *Manager) OnTurnStart(ctx context.Context, prompt string) string {
	if !m.config.AutoRecall {
		return ""
	}
	if len(strings.TrimSpace(prompt)) < m.config.MinQueryLength {
		return ""
	}

	results := m.Recall(ctx, prompt, m.config.RecallLimit)
	log.Printf("[MEMORY] recalled %d memories for turn", len(results))
	if len(results) == 0 {
		return ""
	}
	return FormatContext(results)
}

// OnTurnEnd is the after-turn hook. It scans the turn's user-authored text
// segments and captures the memorable ones, best-effort. At most
// MaxCandidatesPerTurn gate-accepted candidates are embedded and written.
func (m *Manager) OnTurnEnd(ctx context.Context, success bool, msgs []core.Message) {
	if !m.config.AutoCapture {
		return
	}
	if !success {
		log.Printf("[MEMORY] skipping capture for failed turn")
		return
	}

	processed := 0
	for _, text := range core.UserTexts(msgs) {
		if !ShouldCapture(text, m.config.MaxCaptureLength) {
			continue
		}
		processed++
		if processed > m.config.MaxCandidatesPerTurn {
			break
		}
		if err := m.capture(ctx, strings.TrimSpace(text)); err != nil {
			log.Printf("[MEMORY] capture failed: %v", err)
		}
	}
	if processed > 0 {
		log.Printf("[MEMORY] capture scan complete, %d candidates processed", min(processed, m.config.MaxCandidatesPerTurn))
	}
}

// capture writes one gate-accepted candidate to both stores unless the
// vector index already holds a near-duplicate.
func (m *Manager) capture(ctx context.Context, text string) error {
	triple, _ := ExtractTriple(text)

	emb, err := m.embed(ctx, text)
	if err != nil {
		// Provider down: skip rather than store without a duplicate check.
		return fmt.Errorf("embed candidate: %w", err)
	}

	dups, err := m.vector.Search(ctx, emb, 1, m.config.DuplicateThreshold)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if len(dups) > 0 {
		log.Printf("[MEMORY] skipping near-duplicate (score %.3f)", dups[0].Score)
		return nil
	}

	category := inferCategory(triple, text)
	fact, err := m.lexical.Store(ctx, FactDraft{
		Text:       text,
		Category:   category,
		Importance: 0.5,
		Entity:     triple.Entity,
		Attribute:  triple.Attribute,
		Value:      triple.Value,
		Source:     "auto-capture",
		Confidence: 0.75,
	})
	if err != nil {
		return fmt.Errorf("lexical store: %w", err)
	}

	// Best-effort duplication: the vector write is independent and its
	// failure leaves the fact lexical-only. Accepted divergence.
	if _, err := m.vector.Store(ctx, VectorDraft{
		Text:       text,
		Vector:     emb,
		Importance: fact.Importance,
		Category:   category,
	}); err != nil {
		log.Printf("[MEMORY] vector store failed for %s: %v", fact.ID, err)
	}

	log.Printf("[MEMORY] captured %s [%s/%s]", fact.ID, fact.Category, fact.DecayClass)
	return nil
}

// Remember is the explicit store operation of the capability surface.
// It returns "created" with the new fact, or "duplicate" when the vector
// index already holds a near-identical text. Content failing the length
// bounds or the injection screen returns ErrRejected.
func (m *Manager) Remember(ctx context.Context, text string, importance float64, category Category) (string, Fact, error) {
	text = strings.TrimSpace(text)
	if len(text) < MinCaptureLength || len(text) > m.config.MaxCaptureLength {
		return "", Fact{}, ErrRejected
	}
	if RejectedAsInjection(text) {
		return "", Fact{}, ErrRejected
	}

	emb, err := m.embed(ctx, text)
	if err != nil {
		// Degrade to lexical-only: an explicit memory is not lost because
		// the provider is down, but no duplicate check is possible.
		log.Printf("[MEMORY] embedding unavailable, storing lexical-only: %v", err)
		emb = nil
	}

	if emb != nil {
		dups, err := m.vector.Search(ctx, emb, 1, m.config.DuplicateThreshold)
		if err != nil {
			log.Printf("[MEMORY] duplicate check failed: %v", err)
		} else if len(dups) > 0 {
			return "duplicate", Fact{}, nil
		}
	}

	triple, _ := ExtractTriple(text)
	if category == "" {
		category = inferCategory(triple, text)
	}
	if importance <= 0 {
		importance = 0.5
	}

	fact, err := m.lexical.Store(ctx, FactDraft{
		Text:       text,
		Category:   category,
		Importance: clamp01(importance),
		Entity:     triple.Entity,
		Attribute:  triple.Attribute,
		Value:      triple.Value,
		Source:     "explicit",
		Confidence: 0.9,
	})
	if err != nil {
		return "", Fact{}, fmt.Errorf("lexical store: %w", err)
	}

	if emb != nil {
		if _, err := m.vector.Store(ctx, VectorDraft{
			Text:       text,
			Vector:     emb,
			Importance: fact.Importance,
			Category:   category,
		}); err != nil {
			log.Printf("[MEMORY] vector store failed for %s: %v", fact.ID, err)
		}
	}

	return "created", fact, nil
}

// Stats returns the record counts of both stores. Unlike the recall and
// capture paths, storage errors propagate — there is no safe degraded
// answer for an administrative query.
func (m *Manager) Stats(ctx context.Context) (StoreStats, error) {
	facts, err := m.lexical.Count(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("lexical count: %w", err)
	}
	vectors, err := m.vector.Count(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("vector count: %w", err)
	}
	return StoreStats{Facts: facts, Vectors: vectors}, nil
}

// Prune removes expired facts from the lexical store and returns the count.
// The vector index has no pruning parity; that asymmetry is accepted.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	n, err := m.lexical.PruneExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune expired: %w", err)
	}
	return n, nil
}

// inferCategory derives a category from the extracted triple, falling back
// to text markers.
func inferCategory(triple Triple, text string) Category {
	switch {
	case triple.Attribute == "prefer":
		return CategoryPreference
	case triple.Entity == "decision":
		return CategoryDecision
	case triple.Entity == "convention":
		return CategoryDecision
	case triple.Entity != "" && triple.Entity != "user":
		return CategoryEntity
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "prefer") || strings.Contains(lower, "like") || strings.Contains(lower, "love") || strings.Contains(lower, "hate"):
		return CategoryPreference
	case strings.Contains(lower, "decided") || strings.Contains(lower, "chose"):
		return CategoryDecision
	default:
		return CategoryFact
	}
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

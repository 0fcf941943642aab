// Package sqlite implements the lexical fact store on an embedded SQLite
// database with an FTS5 full-text index. The database file is the
// authoritative record of facts; the FTS index is derived via triggers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/engramlabs/engram-go/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id                TEXT PRIMARY KEY,
	text              TEXT NOT NULL,
	category          TEXT NOT NULL,
	importance        REAL NOT NULL,
	entity            TEXT NOT NULL DEFAULT '',
	attribute         TEXT NOT NULL DEFAULT '',
	value             TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL,
	decay_class       TEXT NOT NULL,
	expires_at        INTEGER,
	last_confirmed_at INTEGER NOT NULL,
	confidence        REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_expires ON facts(expires_at);
`

// ftsSchema is applied separately so a SQLite build without FTS5 degrades
// to LIKE search instead of failing to open.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS facts_fts USING fts5(
	text,
	content='facts',
	content_rowid='rowid',
	tokenize='porter unicode61'
);
CREATE TRIGGER IF NOT EXISTS facts_ai AFTER INSERT ON facts BEGIN
	INSERT INTO facts_fts(rowid, text) VALUES (new.rowid, new.text);
END;
CREATE TRIGGER IF NOT EXISTS facts_ad AFTER DELETE ON facts BEGIN
	INSERT INTO facts_fts(facts_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;
CREATE TRIGGER IF NOT EXISTS facts_au AFTER UPDATE OF text ON facts BEGIN
	INSERT INTO facts_fts(facts_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
	INSERT INTO facts_fts(rowid, text) VALUES (new.rowid, new.text);
END;
`

// Store is the SQLite-backed memory.LexicalStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
	fts bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and applies the
// schema. Timestamps are stored as unix seconds.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now, fts: true}
	if _, err := db.Exec(ftsSchema); err != nil {
		log.Printf("[SQLITE] FTS5 unavailable, falling back to substring search: %v", err)
		s.fts = false
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store assigns identity and timestamps, resolves decay class and expiry,
// and inserts the fact. The FTS index entry is maintained by trigger in the
// same implicit transaction.
func (s *Store) Store(ctx context.Context, draft memory.FactDraft) (memory.Fact, error) {
	now := s.now().UTC()

	class := draft.DecayClass
	if class == "" {
		class = memory.ClassifyDecay(draft.Entity, draft.Attribute, draft.Value, draft.Text)
	}

	var expiresAt *time.Time
	if !draft.NoExpiry {
		if ttl, ok := memory.TTL(class); ok {
			t := now.Add(ttl)
			expiresAt = &t
		}
	}

	fact := memory.Fact{
		ID:              uuid.New().String(),
		Text:            draft.Text,
		Category:        draft.Category,
		Importance:      draft.Importance,
		Entity:          draft.Entity,
		Attribute:       draft.Attribute,
		Value:           draft.Value,
		Source:          draft.Source,
		CreatedAt:       now,
		DecayClass:      class,
		ExpiresAt:       expiresAt,
		LastConfirmedAt: now,
		Confidence:      draft.Confidence,
	}

	var expires sql.NullInt64
	if expiresAt != nil {
		expires = sql.NullInt64{Int64: expiresAt.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts (id, text, category, importance, entity, attribute, value,
			source, created_at, decay_class, expires_at, last_confirmed_at, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.Text, string(fact.Category), fact.Importance,
		fact.Entity, fact.Attribute, fact.Value, fact.Source,
		now.Unix(), string(class), expires, now.Unix(), fact.Confidence,
	)
	if err != nil {
		return memory.Fact{}, fmt.Errorf("insert fact: %w", err)
	}
	return fact, nil
}

// Search returns facts matching the query, ranked by relevance, excluding
// expired facts. With FTS5, terms are OR-joined and scored from the bm25
// rank; without it, substring matching with a flat score.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]memory.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	nowSec := s.now().UTC().Unix()

	if !s.fts {
		return s.searchLike(ctx, query, limit, nowSec)
	}

	match := sanitizeQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.text, f.category, f.importance, f.entity, f.attribute, f.value,
			f.source, f.created_at, f.decay_class, f.expires_at, f.last_confirmed_at,
			f.confidence, facts_fts.rank
		FROM facts_fts
		JOIN facts f ON f.rowid = facts_fts.rowid
		WHERE facts_fts MATCH ?
			AND (f.expires_at IS NULL OR f.expires_at >= ?)
		ORDER BY facts_fts.rank
		LIMIT ?`,
		match, nowSec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult
	for rows.Next() {
		var rank float64
		fact, err := scanFact(rows, &rank)
		if err != nil {
			return nil, err
		}
		// bm25 rank is negative, more negative is better; map it to a
		// score increasing in relevance, bounded below 1.
		results = append(results, memory.SearchResult{
			Fact:  fact,
			Score: math.Abs(rank) / (1.0 + math.Abs(rank)),
		})
	}
	return results, rows.Err()
}

func (s *Store) searchLike(ctx context.Context, query string, limit int, nowSec int64) ([]memory.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, category, importance, entity, attribute, value,
			source, created_at, decay_class, expires_at, last_confirmed_at, confidence, 0.0
		FROM facts
		WHERE text LIKE '%' || ? || '%'
			AND (expires_at IS NULL OR expires_at >= ?)
		ORDER BY last_confirmed_at DESC
		LIMIT ?`,
		query, nowSec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("like search: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult
	for rows.Next() {
		var unused float64
		fact, err := scanFact(rows, &unused)
		if err != nil {
			return nil, err
		}
		results = append(results, memory.SearchResult{Fact: fact, Score: 0.5})
	}
	return results, rows.Err()
}

// RefreshAccessed extends the lifetime of the given facts in one statement.
// Only stable and active facts are touched; LastConfirmedAt and ExpiresAt
// move together, so the batch is atomic by construction.
func (s *Store) RefreshAccessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	nowSec := s.now().UTC().Unix()

	stableTTL, _ := memory.TTL(memory.DecayStable)
	activeTTL, _ := memory.TTL(memory.DecayActive)

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, nowSec, nowSec+int64(stableTTL.Seconds()), nowSec+int64(activeTTL.Seconds()))
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE facts SET
			last_confirmed_at = ?,
			expires_at = CASE decay_class
				WHEN 'stable' THEN ?
				WHEN 'active' THEN ?
			END
		WHERE id IN (%s) AND decay_class IN ('stable', 'active')`, placeholders),
		args...,
	)
	if err != nil {
		return fmt.Errorf("refresh accessed: %w", err)
	}
	return nil
}

// PruneExpired deletes facts whose expiry is strictly in the past.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM facts WHERE expires_at IS NOT NULL AND expires_at < ?`,
		s.now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune expired: %w", err)
	}
	return int(n), nil
}

// Count returns the total number of facts, expired included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

// Get returns a single fact by id.
func (s *Store) Get(ctx context.Context, id string) (memory.Fact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, category, importance, entity, attribute, value,
			source, created_at, decay_class, expires_at, last_confirmed_at, confidence, 0.0
		FROM facts WHERE id = ?`, id)
	var unused float64
	fact, err := scanFact(row, &unused)
	if err == sql.ErrNoRows {
		return memory.Fact{}, fmt.Errorf("fact %s: %w", id, err)
	}
	return fact, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFact(row rowScanner, rank *float64) (memory.Fact, error) {
	var (
		fact                     memory.Fact
		category, class          string
		createdAt, lastConfirmed int64
		expiresAt                sql.NullInt64
	)
	err := row.Scan(&fact.ID, &fact.Text, &category, &fact.Importance,
		&fact.Entity, &fact.Attribute, &fact.Value, &fact.Source,
		&createdAt, &class, &expiresAt, &lastConfirmed, &fact.Confidence, rank)
	if err != nil {
		return memory.Fact{}, err
	}
	fact.Category = memory.Category(category)
	fact.DecayClass = memory.DecayClass(class)
	fact.CreatedAt = time.Unix(createdAt, 0).UTC()
	fact.LastConfirmedAt = time.Unix(lastConfirmed, 0).UTC()
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0).UTC()
		fact.ExpiresAt = &t
	}
	return fact, nil
}

// sanitizeQuery turns free text into a safe FTS5 MATCH expression: each
// term is double-quoted (neutralizing operators) and terms are OR-joined so
// a partial match still recalls.
func sanitizeQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}

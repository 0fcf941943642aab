package memory_test

import (
	"testing"

	"github.com/engramlabs/engram-go/memory"
)

func lexHit(text string, score float64) memory.SearchResult {
	return memory.SearchResult{
		Fact:  memory.Fact{Text: text, Category: memory.CategoryFact},
		Score: score,
	}
}

func vecHit(text string, score float64) memory.VectorResult {
	return memory.VectorResult{
		Record: memory.VectorRecord{Text: text, Category: memory.CategoryFact},
		Score:  score,
	}
}

func TestMergeRanked_SortedDescending(t *testing.T) {
	merged := memory.MergeRanked(
		[]memory.SearchResult{lexHit("a", 0.3), lexHit("b", 0.9)},
		[]memory.VectorResult{vecHit("c", 0.6)},
	)
	if len(merged) != 3 {
		t.Fatalf("got %d results, want 3", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Errorf("results not descending at %d: %v", i, merged)
		}
	}
	if merged[0].Text != "b" || merged[1].Text != "c" || merged[2].Text != "a" {
		t.Errorf("unexpected order: %v", merged)
	}
}

func TestMergeRanked_LexicalWinsDuplicate(t *testing.T) {
	// The vector copy scores higher, but the lexical entry is seeded first
	// and the duplicate is dropped.
	merged := memory.MergeRanked(
		[]memory.SearchResult{lexHit("the user prefers tea", 0.4)},
		[]memory.VectorResult{vecHit("the user prefers tea", 0.95)},
	)
	if len(merged) != 1 {
		t.Fatalf("got %d results, want 1", len(merged))
	}
	if merged[0].Backend != memory.BackendLexical {
		t.Errorf("backend = %s, want %s", merged[0].Backend, memory.BackendLexical)
	}
	if merged[0].Score != 0.4 {
		t.Errorf("score = %v, want the lexical score", merged[0].Score)
	}
}

func TestMergeRanked_TieOrderIsStable(t *testing.T) {
	merged := memory.MergeRanked(
		[]memory.SearchResult{lexHit("from lexical", 0.5)},
		[]memory.VectorResult{vecHit("from vector", 0.5)},
	)
	if len(merged) != 2 {
		t.Fatalf("got %d results, want 2", len(merged))
	}
	if merged[0].Backend != memory.BackendLexical {
		t.Errorf("on a tie the lexical entry comes first, got %s", merged[0].Backend)
	}
}

func TestMergeRanked_Empty(t *testing.T) {
	if got := memory.MergeRanked(nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %v", got)
	}
}

func TestMergeRanked_SetsBackend(t *testing.T) {
	merged := memory.MergeRanked(
		[]memory.SearchResult{lexHit("a", 0.9)},
		[]memory.VectorResult{vecHit("b", 0.8)},
	)
	if merged[0].Backend != memory.BackendLexical || merged[1].Backend != memory.BackendVector {
		t.Errorf("backends not recorded: %v", merged)
	}
}

package memory

import "sort"

// MergeRanked fuses lexical and vector results into one deduplicated list,
// sorted by score descending.
//
// Lexical results are seeded first: exact/full-text matches are the higher-
// precision signal, so a vector hit with identical text never displaces the
// lexical entry even when its raw score is higher. The final sort is stable,
// which fixes tie behavior — on equal scores, insertion order (lexical before
// vector) is preserved.
func MergeRanked(lexical []SearchResult, vector []VectorResult) []MergedResult {
	seen := make(map[string]struct{}, len(lexical)+len(vector))
	merged := make([]MergedResult, 0, len(lexical)+len(vector))

	for _, r := range lexical {
		merged = append(merged, MergedResult{
			Text:     r.Fact.Text,
			Category: r.Fact.Category,
			Score:    r.Score,
			Backend:  BackendLexical,
		})
		seen[r.Fact.Text] = struct{}{}
	}
	for _, r := range vector {
		if _, ok := seen[r.Record.Text]; ok {
			continue
		}
		merged = append(merged, MergedResult{
			Text:     r.Record.Text,
			Category: r.Record.Category,
			Score:    r.Score,
			Backend:  BackendVector,
		})
		seen[r.Record.Text] = struct{}{}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

package vectorstore

import (
	"sort"

	"fund-report-rag/internal/models"
)

// rrfConstant dampens the influence of top ranks in Reciprocal Rank Fusion.
const rrfConstant = 60.0

// fuseRanked combines three ranked candidate lists with weighted RRF: each
// strategy an item appears in contributes weight / (60 + rank + 1), ranks
// 0-based. Content and metadata for a fused item come from the first list
// containing it, dense first — the dense copy is the most semantically
// faithful when an item appears in several lists. Ties sort by ascending id
// for deterministic output.
func fuseRanked(dense, lexical, pattern []models.SearchResult, weights models.SearchWeights, k int) []models.SearchResult {
	type entry struct {
		item  models.SearchResult
		score float64
	}
	entries := make(map[int64]*entry)

	accumulate := func(list []models.SearchResult, weight float64) {
		for rank, item := range list {
			e, ok := entries[item.ID]
			if !ok {
				e = &entry{item: item}
				entries[item.ID] = e
			}
			e.score += weight * (1.0 / (rrfConstant + float64(rank) + 1.0))
		}
	}
	accumulate(dense, weights.Dense)
	accumulate(lexical, weights.Lexical)
	accumulate(pattern, weights.Pattern)

	fused := make([]models.SearchResult, 0, len(entries))
	for _, e := range entries {
		item := e.item
		item.Score = e.score
		fused = append(fused, item)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})

	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

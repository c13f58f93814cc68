package retrieval

import (
	"fmt"

	"github.com/siherrmann/hrrag/model"
)

// Strategy reduces ranked candidates to at most one result per source
type Strategy interface {
	// Depth is how many nearest neighbours to fetch for k results out of n indexed vectors.
	Depth(k int, n int) int
	// Apply keeps the results in rank order and assigns their 1-based Rank.
	Apply(candidates []*model.RetrievalResult, k int) []*model.RetrievalResult
}

// NewStrategy returns the strategy for policy. An empty policy means first seen.
func NewStrategy(policy model.DedupPolicy) (Strategy, error) {
	switch policy {
	case "", model.DedupFirstSeen:
		return FirstSeenStrategy{}, nil
	case model.DedupBestScore:
		return BestScoreStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown dedup policy %q", model.ErrConfiguration, policy)
	}
}

// FirstSeenStrategy searches the top k and keeps the first hit of every source.
// Later hits of a source are dropped even when they outrank other sources' hits.
type FirstSeenStrategy struct{}

func (FirstSeenStrategy) Depth(k int, n int) int {
	return min(k, n)
}

func (FirstSeenStrategy) Apply(candidates []*model.RetrievalResult, k int) []*model.RetrievalResult {
	return distinctSources(candidates, k)
}

// BestScoreStrategy searches the whole index and keeps the best hit of every
// source until k distinct sources are collected.
type BestScoreStrategy struct{}

func (BestScoreStrategy) Depth(k int, n int) int {
	return n
}

func (BestScoreStrategy) Apply(candidates []*model.RetrievalResult, k int) []*model.RetrievalResult {
	return distinctSources(candidates, k)
}

// distinctSources walks candidates in rank order and keeps the first result per source, at most k.
func distinctSources(candidates []*model.RetrievalResult, k int) []*model.RetrievalResult {
	seen := make(map[string]bool, len(candidates))
	results := make([]*model.RetrievalResult, 0, min(k, len(candidates)))

	for _, c := range candidates {
		if len(results) == k {
			break
		}
		if seen[c.Record.Source] {
			continue
		}
		seen[c.Record.Source] = true
		c.Rank = len(results) + 1
		results = append(results, c)
	}
	return results
}

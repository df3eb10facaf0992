// Package sample selects a bounded, randomized, per-source-balanced
// subset of articles for the serendipity feed.
package sample

import (
	"math/rand"

	"serendip/internal/domain"
)

// Sample picks up to target articles from the pool, balancing across
// sources: every source gets floor(target/S) slots, the first
// target mod S sources in enumeration order get one extra, and any
// shortfall is filled from a shuffled leftover pool. The randomness
// source is injected so output is reproducible under a fixed seed.
func Sample(pool []domain.Article, target int, rng *rand.Rand) []domain.Article {
	if target <= 0 || len(pool) == 0 {
		return []domain.Article{}
	}
	if len(pool) <= target {
		return shuffled(pool, rng)
	}

	// Group by source, keeping a stable enumeration order: order of
	// first appearance in the pool. Quota ties are broken purely by
	// this order, never by source priority.
	groups := make(map[string][]domain.Article)
	var order []string
	for _, a := range pool {
		if _, ok := groups[a.SourceID]; !ok {
			order = append(order, a.SourceID)
		}
		groups[a.SourceID] = append(groups[a.SourceID], a)
	}

	perSource := target / len(order)
	remainder := target % len(order)

	selected := make([]domain.Article, 0, target)
	taken := make(map[string]struct{}, target)

	for i, sourceID := range order {
		quota := perSource
		if i < remainder {
			quota++
		}
		candidates := shuffled(groups[sourceID], rng)
		if quota > len(candidates) {
			quota = len(candidates)
		}
		for _, a := range candidates[:quota] {
			selected = append(selected, a)
			taken[a.ID] = struct{}{}
		}
	}

	// Shortfall: fill from everything not yet taken, deduplicated
	// against the selected set.
	if needed := target - len(selected); needed > 0 {
		var leftovers []domain.Article
		for _, a := range pool {
			if _, ok := taken[a.ID]; !ok {
				leftovers = append(leftovers, a)
			}
		}
		leftovers = shuffled(leftovers, rng)
		if needed > len(leftovers) {
			needed = len(leftovers)
		}
		for _, a := range leftovers[:needed] {
			selected = append(selected, a)
			taken[a.ID] = struct{}{}
		}
	}

	// Final shuffle and defensive cap.
	selected = shuffled(selected, rng)
	if len(selected) > target {
		selected = selected[:target]
	}
	return selected
}

// shuffled returns a uniformly shuffled copy, leaving the input intact.
func shuffled(articles []domain.Article, rng *rand.Rand) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

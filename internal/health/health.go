// Package health implements the per-source reliability state machine
// driven by fetch outcomes.
package health

import (
	"time"

	"serendip/internal/domain"
)

// DefaultFailureThreshold is how many consecutive failures flip a
// source's status to error.
const DefaultFailureThreshold = 5

// avgAlpha weights the moving average of articles per successful fetch.
const avgAlpha = 0.3

// Apply returns a copy of the source with its health fields advanced by
// one fetch outcome. It is a pure transition; persisting the result is
// the caller's concern. A success from any status reverts the source to
// active and zeroes the failure streak; reaching the threshold sets
// status to error without touching the operator-owned Enabled flag.
func Apply(src domain.Source, outcome domain.FetchOutcome, now time.Time, threshold int) domain.Source {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}

	src.LastFetchedAt = &now
	if outcome.Success {
		src.LastSuccessAt = &now
		src.ConsecutiveFailures = 0
		src.Status = domain.StatusActive
		src.ErrorMessage = ""
		src.TotalArticles += outcome.ArticleCount
		src.AvgArticles = advanceAverage(src.AvgArticles, outcome.ArticleCount)
		return src
	}

	src.ConsecutiveFailures++
	src.ErrorMessage = outcome.Error
	if src.ConsecutiveFailures >= threshold {
		src.Status = domain.StatusError
	}
	return src
}

// advanceAverage folds one successful fetch's count into the moving
// average. The first success seeds the average with its count.
func advanceAverage(avg float64, count int) float64 {
	if avg == 0 {
		return float64(count)
	}
	return avg*(1-avgAlpha) + float64(count)*avgAlpha
}

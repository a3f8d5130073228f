// Package match implements the brute-force similarity search over a loaded
// gallery and the threshold policy that turns a raw score into a
// known/unknown decision.
package match

import (
	"github.com/viterin/vek/vek32"

	"github.com/mahir-majid/tiger-dorm-security/internal/embedding"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
)

// DefaultThreshold is the reference similarity cutoff: scores at or above it
// are treated as an accepted identity match.
const DefaultThreshold = 0.35

// Result is the outcome of comparing a query embedding against a gallery.
// An empty Identifier means the gallery had no entries. The Score always
// carries the best similarity found, clamped to be non-negative, even when
// it is below any acceptance threshold.
type Result struct {
	Identifier string
	Score      float64
}

// Best computes the similarity of query against every gallery row and
// returns the best-scoring entry. Ties go to the entry occurring first in
// identifier-list order. The query must be unit-normalized and match the
// gallery dimension.
func Best(query embedding.Vector, g *gallery.Gallery) (Result, error) {
	if g == nil || g.Len() == 0 {
		return Result{}, nil
	}
	if len(query) != g.Dim() {
		return Result{}, &embedding.DimensionError{Want: g.Dim(), Got: len(query)}
	}

	// Matrix-vector product over the cached row-major matrix. Rows are
	// contiguous so each dot runs over a single slice view.
	bestIdx := 0
	bestScore := vek32.Dot(g.Row(0), query)
	for i := 1; i < g.Len(); i++ {
		if s := vek32.Dot(g.Row(i), query); s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}

	score := float64(bestScore)
	if score < 0 {
		score = 0
	}
	return Result{Identifier: g.Identifier(bestIdx), Score: score}, nil
}

// Accept reports whether a score passes the threshold. The comparison is
// inclusive: a score exactly at the threshold counts as a match.
func Accept(score, threshold float64) bool {
	return score >= threshold
}

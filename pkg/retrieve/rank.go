package retrieve

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

// ErrNaNScore marks a document whose similarity to the query is undefined,
// such as a zero vector on either side.
var ErrNaNScore = errors.New("similarity score is NaN")

// Match is a scored document.
type Match struct {
	ID      string
	Score   float64
	Content string
}

// Skipped records a document left out of a scan and why.
type Skipped struct {
	ID  string
	Err error
}

// Best returns the highest scoring document for query, or nil when the
// collection is empty or no comparison produced a score. The scan starts
// from -Inf, skips documents scoring NaN or whose embedding length differs
// from the query, reporting both, and keeps the first document on ties.
func Best(query []float32, docs []vector.Document) (*Match, []Skipped) {
	var (
		best    *Match
		skipped []Skipped
	)
	bestScore := math.Inf(-1)

	for i := range docs {
		score, err := vector.CosineSimilarity(query, docs[i].Embedding)
		if err != nil {
			skipped = append(skipped, Skipped{ID: docs[i].ID, Err: err})
			continue
		}
		if math.IsNaN(score) {
			skipped = append(skipped, Skipped{ID: docs[i].ID, Err: ErrNaNScore})
			continue
		}
		if score > bestScore {
			bestScore = score
			best = &Match{ID: docs[i].ID, Score: score, Content: docs[i].Content}
		}
	}

	return best, skipped
}

// Rank scores every document against query and returns the topK best by
// descending score. Documents with equal scores keep their collection order.
// topK <= 0 returns every scored document.
func Rank(query []float32, docs []vector.Document, topK int) ([]Match, []Skipped) {
	var skipped []Skipped
	matches := make([]Match, 0, len(docs))

	for i := range docs {
		score, err := vector.CosineSimilarity(query, docs[i].Embedding)
		if err != nil {
			skipped = append(skipped, Skipped{ID: docs[i].ID, Err: err})
			continue
		}
		if math.IsNaN(score) {
			skipped = append(skipped, Skipped{ID: docs[i].ID, Err: ErrNaNScore})
			continue
		}
		matches = append(matches, Match{ID: docs[i].ID, Score: score, Content: docs[i].Content})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, skipped
}

package vector

import (
	"fmt"
	"math"
)

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
//
// Vectors of different lengths are rejected with ErrInvalidInput; they are
// never truncated or padded. If either vector has zero magnitude the result
// is NaN and callers must exclude it from ranking.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d != %d", ErrInvalidInput, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return math.NaN(), nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

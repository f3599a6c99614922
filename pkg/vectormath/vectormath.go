// Package vectormath provides the small amount of vector arithmetic
// the retrieval core needs: cosine similarity and per-dimension means.
package vectormath

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. The
// vectors must have equal length; a length mismatch is an error, not a
// zero score. When either vector has zero norm the similarity is
// defined as 0 rather than NaN.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Mean returns the per-dimension arithmetic mean of the given vectors.
// All vectors must share the same length.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector length mismatch: %d vs %d", len(v), dim)
		}
		for i, x := range v {
			sums[i] += float64(x)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		mean[i] = float32(s / n)
	}
	return mean, nil
}

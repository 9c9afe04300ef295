// Package match ranks the job table against detected skills by cosine similarity of text embeddings
package match

import (
	"context"
	"errors"
	"fmt"
	"math"
)

//go:generate moq -out mocks/embedder.go -pkg mocks -skip-ensure -fmt goimports . Embedder

// Embedder converts short text into a fixed-length vector
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ErrDimensionMismatch returned by Cosine for vectors of different length
var ErrDimensionMismatch = errors.New("vector dimensions mismatch")

// ErrInvalidVector returned by Cosine for vectors with NaN or infinite components
var ErrInvalidVector = errors.New("vector has non-finite components")

// Cosine returns cosine similarity of two vectors clamped to [-1, 1].
// Zero-length or zero-norm vectors give 0, non-finite components give ErrInvalidVector.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	res := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, ErrInvalidVector
	}
	return math.Max(-1, math.Min(1, res)), nil
}

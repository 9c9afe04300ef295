package match

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is a deterministic in-process embedder. Words and character trigrams are hashed
// into a signed bag-of-features vector, normalized to unit length.
type Local struct {
	Dim int
}

const (
	defaultLocalDim = 256
	trigramWeight   = 0.5
)

// NewLocal makes local embedder with given dimension, non-positive dim uses 256
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = defaultLocalDim
	}
	return &Local{Dim: dim}
}

// Name of the embedder
func (l *Local) Name() string { return "local" }

// Embed returns unit vector for text, zero vector for text without words
func (l *Local) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, l.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		l.add(vec, "w:"+w, 1)
		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			l.add(vec, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (l *Local) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(l.Dim)) //nolint:gosec // dim is positive
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

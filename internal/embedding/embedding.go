package embedding

import (
	"errors"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// ErrDegenerateVector is returned when a zero-norm vector cannot be normalized.
var ErrDegenerateVector = errors.New("cannot normalize zero-norm vector")

// DimensionError reports a mismatch between expected and actual embedding dimensions.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Vector is a face embedding. Vectors entering the gallery or used as queries
// are unit-normalized, so the dot product of two vectors is their cosine
// similarity.
type Vector []float32

// Normalize divides v by its L2 norm and returns the result as a new vector.
// The input is never modified.
func Normalize(v []float32) (Vector, error) {
	if len(v) == 0 {
		return nil, ErrDegenerateVector
	}
	norm := math.Sqrt(float64(vek32.Dot(v, v)))
	if norm == 0 {
		return nil, ErrDegenerateVector
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out, nil
}

// Similarity returns the dot product of two vectors of equal dimension.
// For unit vectors this equals the cosine similarity, in [-1, 1].
func Similarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Want: len(a), Got: len(b)}
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(vek32.Dot(a, b)), nil
}

// Package gallery owns the reference set of identified face embeddings: an
// immutable dense matrix aligned row-for-row with an identifier list, its
// on-disk artifacts, and the process-wide cache that serves it to queries.
package gallery

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mahir-majid/tiger-dorm-security/internal/embedding"
)

// ErrCorruptGallery indicates that the persisted artifacts disagree with
// each other and the gallery cannot be trusted.
var ErrCorruptGallery = errors.New("corrupt gallery artifacts")

// DuplicateIdentifierError reports a repeated identifier during a build.
type DuplicateIdentifierError struct {
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate gallery identifier %q", e.Identifier)
}

// Entry pairs a unique identifier with a unit-normalized embedding.
type Entry struct {
	Identifier string
	Embedding  embedding.Vector
}

// Gallery is an immutable set of identified embeddings. The matrix is
// row-major; row i and identifiers[i] always refer to the same entry and are
// never mutated after construction - replacing a gallery means building a
// new one and swapping the pointer.
type Gallery struct {
	identifiers []string
	matrix      []float32
	dim         int
}

// Empty returns a gallery with no entries.
func Empty() *Gallery {
	return &Gallery{}
}

// Build stacks entries into a gallery in input order. All identifiers must
// be unique and all embeddings must share one dimension; violations reject
// the whole build, no partial gallery is produced.
func Build(entries []Entry) (*Gallery, error) {
	g := &Gallery{}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if _, dup := seen[e.Identifier]; dup {
			return nil, &DuplicateIdentifierError{Identifier: e.Identifier}
		}
		seen[e.Identifier] = struct{}{}

		if i == 0 {
			g.dim = len(e.Embedding)
			g.matrix = make([]float32, 0, len(entries)*g.dim)
			g.identifiers = make([]string, 0, len(entries))
		}
		if len(e.Embedding) != g.dim {
			return nil, &embedding.DimensionError{Want: g.dim, Got: len(e.Embedding)}
		}
		g.identifiers = append(g.identifiers, e.Identifier)
		g.matrix = append(g.matrix, e.Embedding...)
	}
	return g, nil
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	return len(g.identifiers)
}

// Dim returns the embedding dimension, 0 for an empty gallery.
func (g *Gallery) Dim() int {
	return g.dim
}

// Identifier returns the identifier for matrix row i.
func (g *Gallery) Identifier(i int) string {
	return g.identifiers[i]
}

// Identifiers returns a copy of the identifier list in row order.
func (g *Gallery) Identifiers() []string {
	return slices.Clone(g.identifiers)
}

// Row returns matrix row i as a read-only slice view. Callers must not
// modify it.
func (g *Gallery) Row(i int) []float32 {
	return g.matrix[i*g.dim : (i+1)*g.dim]
}

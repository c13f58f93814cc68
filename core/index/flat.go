package index

import (
	"fmt"
	"math"
	"sort"
)

// Hit is one search result, the ordinal of the matched vector and its inner product with the query.
type Hit struct {
	Ordinal int
	Score   float32
}

// Flat is an exact inner-product index over vectors stored contiguously.
type Flat struct {
	dim     int
	vectors []float32
}

// NewFlat creates an empty index for vectors of dimension dim.
// A dimension of 0 is allowed for an index that will stay empty.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.vectors) / f.dim
}

// Add appends vectors in order. Their ordinals continue from Len().
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim || f.dim == 0 {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, v...)
	}
	return nil
}

// Vector returns a copy of the vector at ordinal.
func (f *Flat) Vector(ordinal int) []float32 {
	if ordinal < 0 || ordinal >= f.Len() {
		return nil
	}
	out := make([]float32, f.dim)
	copy(out, f.vectors[ordinal*f.dim:(ordinal+1)*f.dim])
	return out
}

// Search returns up to k hits ordered by descending score. Ties go to the lower ordinal.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if n == 0 || k <= 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		var dot float32
		for j, q := range query {
			dot += q * row[j]
		}
		hits[i] = Hit{Ordinal: i, Score: dot}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k > n {
		k = n
	}
	return hits[:k], nil
}

// Normalize scales v to unit Euclidean length in place. A zero vector stays zero.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

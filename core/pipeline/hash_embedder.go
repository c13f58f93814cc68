package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/siherrmann/hrrag/model"
)

// HashEmbedder is a deterministic bag-of-words embedder using feature hashing.
// It needs no model files and maps equal texts to equal vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with dim buckets.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: hash embedder dimension must be positive", model.ErrConfiguration)
	}
	return &HashEmbedder{dim: dim}, nil
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		for _, token := range tokenize(text) {
			h := fnv.New64a()
			_, _ = h.Write([]byte(token))
			sum := h.Sum64()
			bucket := int(sum % uint64(e.dim))
			if sum>>63 == 1 {
				v[bucket]--
			} else {
				v[bucket]++
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

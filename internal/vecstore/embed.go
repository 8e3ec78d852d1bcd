package vecstore

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

const defaultHashDim = 256

// HashEmbedder is a deterministic, dependency-free embedder: tokens are
// hashed into a fixed number of buckets and the counts L2-normalised.
// Identical texts embed identically, which is what the offline backends and
// the tests need; it makes no claim to semantic quality.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDim
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dim() int {
	return e.dim
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

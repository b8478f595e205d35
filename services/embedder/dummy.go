package embedsvc

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/allii5/TextInsight/core/analysis"
)

// DummyEmbedder produces deterministic pseudo-embeddings from a hash of the
// text. Used in DEV/TEST mode where no model server runs: identical texts get
// identical vectors, so similarity math stays stable across runs.
type DummyEmbedder struct {
	Dim int
}

var _ analysis.Embedder = (*DummyEmbedder)(nil)

func NewDummyEmbedder() *DummyEmbedder {
	return &DummyEmbedder{Dim: 16}
}

func (e *DummyEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()

		vec := make([]float64, e.Dim)
		for i := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] = math.Sin(float64(seed % 10007))
		}
		out = append(out, vec)
	}
	return out, nil
}

package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

type Cache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32) error
}

// CachedEmbedder serves repeated texts from a cache. Cache errors are logged and bypassed.
type CachedEmbedder struct {
	next  Embedder
	cache Cache
	model string
}

func NewCachedEmbedder(next Embedder, cache Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model}
}

func (c *CachedEmbedder) key(text string) string {
	return utils.HashString(c.model + "\x00" + text)
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok, err := c.cache.GetEmbedding(ctx, c.key(text))
		if err != nil {
			logger.Warn("Embedding cache read failed", zap.Error(err))
		}
		if ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, ErrCountMismatch
	}

	for j, vec := range fresh {
		out[missingIdx[j]] = vec
		if err := c.cache.SetEmbedding(ctx, c.key(missing[j]), vec); err != nil {
			logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// newEmbeddingServer answers with [len(text), 1] per input, listed in reverse index order.
func newEmbeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})
	}))
}

func TestOpenAIClientEmbedBatch(t *testing.T) {
	var calls int32
	srv := newEmbeddingServer(t, &calls)
	defer srv.Close()

	c := NewOpenAIClient(config.EmbedderConfig{Model: "all-MiniLM-L6-v2", BaseURL: srv.URL + "/v1", BatchSize: 2})
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "bbb", "cccccccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	for i, want := range []float64{1, 3, 8} {
		norm := math.Sqrt(want*want + 1)
		assert.InDelta(t, want/norm, vecs[i][0], 1e-6)
		assert.InDelta(t, 1/norm, vecs[i][1], 1e-6)
	}

	vec, err := c.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, vec[0], 1e-6)
}

func TestOpenAIClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(config.EmbedderConfig{Model: "nope", BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
	fail bool
}

func (m *mapCache) GetEmbedding(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) SetEmbedding(_ context.Context, key string, v []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = v
	return nil
}

type countingEmbedder struct {
	texts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.texts = append(c.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	c := NewCachedEmbedder(inner, cache, "m")
	ctx := context.Background()

	first, err := c.EmbedBatch(ctx, []string{"aa", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {1}}, first)

	second, err := c.EmbedBatch(ctx, []string{"b", "cccc", "aa"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {4}, {2}}, second)
	assert.Equal(t, []string{"aa", "b", "cccc"}, inner.texts)

	cache.fail = true
	v, err := c.Embed(ctx, "aa")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)
}

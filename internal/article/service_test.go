package article

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
)

const samplePage = `<html><head>
<title>Fallback title</title>
<meta name="citation_author" content="Jane Doe">
<meta name="citation_pdf_url" content="/paper.pdf">
</head><body>
<h1>Spaceflight &amp; Bone Health</h1>
<div class="abstract">Short abstract.</div>
<main><p>Body one. Body two.</p></main>
</body></html>`

func newFetcher() *Fetcher {
	return NewFetcher(config.CrawlerConfig{TimeoutSec: 5, UserAgent: "test-agent"})
}

func TestFetcherGzipAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(samplePage))
		_ = gz.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	page, err := newFetcher().Fetch(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "Spaceflight & Bone Health", ExtractTitle(page.Doc))
	assert.Equal(t, srv.URL+"/paper.pdf", ExtractPDFURL(page.Doc, page.URL))
}

func TestFetcherErrors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := newFetcher().Fetch(context.Background(), "ftp://example.org/x")
		assert.ErrorIs(t, err, ErrInvalidURL)

		_, err = newFetcher().Fetch(context.Background(), "not a url")
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := newFetcher().Fetch(context.Background(), srv.URL)
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, "HTTP Error: 404 Not Found for url: "+srv.URL, UserMessage(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		f := newFetcher()
		f.timeout = 50 * time.Millisecond
		_, err := f.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrFetchTimeout)
		assert.Equal(t, "Request timeout - URL took too long to respond", UserMessage(err))
	})
}

type stubSummarizer struct {
	summary   Summary
	fromModel bool
	texts     []string
}

func (s *stubSummarizer) Summarize(_ context.Context, text string) (Summary, bool) {
	s.texts = append(s.texts, text)
	return s.summary, s.fromModel
}

type memoryCache struct {
	items map[string][]byte
	err   error
}

func (c *memoryCache) GetArticle(_ context.Context, key string, v interface{}) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	data, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (c *memoryCache) SetArticle(_ context.Context, key string, v interface{}) error {
	if c.err != nil {
		return c.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func pageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServiceGetArticle(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)

	summarizer := &stubSummarizer{summary: Summary{Conclusion: "**Key Takeaways**\n- ok"}, fromModel: true}
	cache := &memoryCache{items: map[string][]byte{}}
	svc := NewService(newFetcher(), summarizer, cache)

	a, err := svc.GetArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Spaceflight & Bone Health", a.Title)
	assert.Equal(t, []string{"Jane Doe"}, a.Authors)
	assert.Equal(t, srv.URL+"/paper.pdf", a.PDFURL)
	assert.Equal(t, "**Key Takeaways**\n- ok", a.Summary.Conclusion)

	require.Len(t, summarizer.texts, 1)
	assert.Equal(t, "ABSTRACT:\nShort abstract.\n\n\nFULL TEXT:\nSpaceflight & Bone Health Short abstract. Body one. Body two.", summarizer.texts[0])

	again, err := svc.GetArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Len(t, summarizer.texts, 1)
}

func TestServiceDoesNotCacheFallback(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)

	cache := &memoryCache{items: map[string][]byte{}}
	svc := NewService(newFetcher(), &stubSummarizer{summary: Fallback("x")}, cache)

	_, err := svc.GetArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = svc.GetArticle(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Empty(t, cache.items)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestServiceCacheErrorsAreBypassed(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)

	cache := &memoryCache{err: errors.New("redis down")}
	svc := NewService(newFetcher(), &stubSummarizer{fromModel: true}, cache)

	a, err := svc.GetArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Spaceflight & Bone Health", a.Title)
}

func TestServiceFetchError(t *testing.T) {
	svc := NewService(newFetcher(), &stubSummarizer{}, nil)
	_, err := svc.GetArticle(context.Background(), "mailto:someone@example.org")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

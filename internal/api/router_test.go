package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/article"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/chat"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/llm"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/search"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/sqldb"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector/memory"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/retry"
)

type constEmbedder []float32

func (e constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e, nil
}

type fakeArticles struct {
	article *article.Article
	err     error
}

func (f fakeArticles) GetArticle(context.Context, string) (*article.Article, error) {
	return f.article, f.err
}

type fakeCompleter struct {
	reply string
	err   error
}

func (f fakeCompleter) Name() string { return "fake" }

func (f fakeCompleter) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Answer string          `json:"answer"`
}

type testEnv struct {
	db     *sqldb.Client
	store  *vector.Store
	server *Server
}

type envOptions struct {
	articles  fakeArticles
	completer fakeCompleter
	staticDir string
	ready     func(context.Context) error
	rateLimit config.RateLimitConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.NewClient(ctx,
		config.DatabaseConfig{Driver: sqldb.DriverSQLite, Path: filepath.Join(t.TempDir(), "api.db")},
		retry.Fixed(1, time.Millisecond, nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema(ctx))

	store, err := vector.NewStore(ctx, memory.New(2))
	require.NoError(t, err)

	cfg := config.Config{
		Server: config.ServerConfig{
			BodyLimit:    1 << 20,
			AllowOrigins: "*",
			StaticDir:    opts.staticDir,
			Development:  true,
		},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 600, Burst: 100},
	}
	if opts.rateLimit.Burst > 0 {
		cfg.RateLimit = opts.rateLimit
	}

	server := NewServer(cfg, Dependencies{
		Categories: db,
		Search:     search.NewService(constEmbedder{1, 0}, store, db),
		Articles:   opts.articles,
		Chat:       chat.NewService(opts.completer, config.ChatConfig{}),
		Ready:      opts.ready,
	})
	t.Cleanup(func() { server.Shutdown() })

	return &testEnv{db: db, store: store, server: server}
}

func (e *testEnv) addDocument(t *testing.T, category, title, link string, vec []float32) int64 {
	t.Helper()
	ctx := context.Background()
	cat, err := e.db.CreateCategory(ctx, category)
	require.NoError(t, err)
	doc, err := e.db.CreateDocument(ctx, title, title+" summary", link, cat.ID, nil)
	require.NoError(t, err)
	require.NoError(t, e.store.AddDocument(ctx, doc.ID, vec, vec))
	return cat.ID
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := e.server.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp.StatusCode, env
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
}

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{ready: func(context.Context) error { return errors.New("db down") }})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "db down", body.Error)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp, err := env.server.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)
	assert.JSONEq(t, `[]`, string(body.Data))

	env.addDocument(t, "Plants", "Root growth", "http://x/1", []float32{0, 1})

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil))
	assert.JSONEq(t, `[{"id":1,"name":"Plants"}]`, string(body.Data))
}

func TestListCategoryDocuments(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	catID := env.addDocument(t, "Plants", "Root growth", "http://x/1", []float32{0, 1})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/categories/1/documents", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)

	var docs []struct {
		Title      string `json:"title"`
		CategoryID int64  `json:"category_id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Root growth", docs[0].Title)
	assert.Equal(t, catID, docs[0].CategoryID)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/categories/99/documents", nil))
	assert.Equal(t, "success", body.Status)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestListCategoryDocumentsBadID(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/categories/abc/documents", nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body.Status)
}

func TestSearchFewerThanLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.addDocument(t, "Biology", "Cancer cells in orbit", "http://x/1", []float32{1, 0})
	env.addDocument(t, "Biology", "Plant growth", "http://x/2", []float32{0, 1})

	code, body := env.do(t, postJSON("/search", `{"query":"cancer","limit":5}`))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)

	var docs []struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "Cancer cells in orbit", docs[0].Title)
}

func TestSearchEmptyStore(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	_, body := env.do(t, postJSON("/search", `{"query":"cancer"}`))
	assert.Equal(t, "success", body.Status)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestSearchRejectsMalformedBodies(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, body := range []string{`not json`, `{"query":""}`, `{"query":"x","limit":"five"}`, `{"query":"<script>alert(1)</script>"}`} {
		code, resp := env.do(t, postJSON("/search", body))
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "error", resp.Status, body)
	}
}

func TestArticleContent(t *testing.T) {
	a := &article.Article{
		Title:   "Spaceflight & Bone Health",
		Authors: []string{"A. Author"},
		Summary: article.EmptySummary(),
	}
	env := newTestEnv(t, envOptions{articles: fakeArticles{article: a}})

	for _, path := range []string{"/article_content", "/article_content_smart"} {
		code, body := env.do(t, httptest.NewRequest(http.MethodGet, path+"?url=https://example.org/a", nil))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "success", body.Status)

		var got article.Article
		require.NoError(t, json.Unmarshal(body.Data, &got))
		assert.Equal(t, "Spaceflight & Bone Health", got.Title)
		assert.Equal(t, []string{"A. Author"}, got.Authors)
	}
}

func TestArticleContentErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{articles: fakeArticles{err: article.ErrFetchTimeout}})

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/article_content?url=https://example.org/a", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Request timeout - URL took too long to respond", body.Error)

	code, body = env.do(t, httptest.NewRequest(http.MethodGet, "/article_content", nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body.Status)

	code, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/article_content?url=ftp://example.org/a", nil))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChatArticle(t *testing.T) {
	env := newTestEnv(t, envOptions{completer: fakeCompleter{reply: " Bone loss was 1% per month. "}})

	code, body := env.do(t, postJSON("/chat_article",
		`{"question":"How much bone was lost?","article_title":"Bone","article_context":"Crew lost bone."}`))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Bone loss was 1% per month.", body.Answer)
}

func TestChatArticleLLMFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{completer: fakeCompleter{err: errors.New("model offline")}})

	code, body := env.do(t, postJSON("/chat_article", `{"question":"Why?"}`))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body.Status)
	assert.Empty(t, body.Answer)
}

func TestChatArticleRequiresQuestion(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.do(t, postJSON("/chat_article", `{"question":"   "}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body.Status)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp, err := env.server.App.Test(httptest.NewRequest(http.MethodGet, "/ws/chat_article", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

// serve runs the app on a loopback port and returns its ws:// base URL.
func (e *testEnv) serve(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go e.server.App.Listener(ln)
	return "ws://" + ln.Addr().String()
}

type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Answer  string `json:"answer"`
	Error   string `json:"error"`
}

func readUntil(t *testing.T, conn *fastws.Conn, types ...string) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		for _, want := range types {
			if f.Type == want {
				return f
			}
		}
	}
}

func TestWebSocketStreamsAnswer(t *testing.T) {
	env := newTestEnv(t, envOptions{completer: fakeCompleter{reply: "Bone loss was\n1% per month."}})

	conn, _, err := fastws.DefaultDialer.Dial(env.serve(t)+"/ws/chat_article", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "question", "question": "How much?"}))

	var chunks strings.Builder
	for {
		f := readUntil(t, conn, "chunk", "complete", "error")
		require.NotEqual(t, "error", f.Type, f.Error)
		if f.Type == "complete" {
			assert.Equal(t, "Bone loss was\n1% per month.", f.Answer)
			break
		}
		chunks.WriteString(f.Content)
	}
	assert.Equal(t, "Bone loss was\n1% per month.", chunks.String())
}

func TestWebSocketQuestionsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, envOptions{
		completer: fakeCompleter{reply: "Yes."},
		rateLimit: config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1},
	})

	conn, _, err := fastws.DefaultDialer.Dial(env.serve(t)+"/ws/chat_article", nil)
	require.NoError(t, err)
	defer conn.Close()

	question := map[string]string{"type": "question", "question": "Was bone lost?"}

	require.NoError(t, conn.WriteJSON(question))
	first := readUntil(t, conn, "complete", "error")
	assert.Equal(t, "complete", first.Type)

	require.NoError(t, conn.WriteJSON(question))
	second := readUntil(t, conn, "complete", "error")
	assert.Equal(t, "error", second.Type)
	assert.Contains(t, second.Error, "Rate limit exceeded")
}

func TestFrontendFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	env := newTestEnv(t, envOptions{staticDir: dir})

	for path, want := range map[string]string{
		"/app.js":              "console.log(1)",
		"/articles/some/route": "<html>app</html>",
	} {
		resp, err := env.server.App.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
	}
}

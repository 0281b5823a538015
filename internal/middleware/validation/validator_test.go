package validation

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	v := New(Config{MaxQueryLength: 20})
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }

	app := fiber.New()
	app.Use(v.ContentType())
	app.Post("/search", v.Search(), ok)
	app.Post("/chat_article", v.Chat(), ok)
	app.Get("/article_content", v.ArticleURL(), ok)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]interface{}
	if resp.StatusCode != fiber.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestSearchValidation(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"query":"cancer","limit":5}`, fiber.StatusOK},
		{"no limit", `{"query":"cancer"}`, fiber.StatusOK},
		{"malformed", `{"query":`, fiber.StatusBadRequest},
		{"missing query", `{"limit":5}`, fiber.StatusBadRequest},
		{"blank query", `{"query":"   "}`, fiber.StatusBadRequest},
		{"numeric query", `{"query":7}`, fiber.StatusBadRequest},
		{"too long", `{"query":"` + strings.Repeat("a", 21) + `"}`, fiber.StatusBadRequest},
		{"script", `{"query":"<script>x"}`, fiber.StatusBadRequest},
		{"fractional limit", `{"query":"a","limit":2.5}`, fiber.StatusBadRequest},
		{"string limit", `{"query":"a","limit":"5"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/search", tt.body)
			assert.Equal(t, tt.status, status)
			if tt.status != fiber.StatusOK {
				assert.Equal(t, "error", body["status"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestChatValidation(t *testing.T) {
	app := newApp()

	status, _ := do(t, app, "POST", "/chat_article", `{"question":"why?","article_title":"T","article_context":"C"}`)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "POST", "/chat_article", `{"question":""}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "POST", "/chat_article", `{"question":"q","article_context":["x"]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestArticleURLValidation(t *testing.T) {
	app := newApp()

	status, _ := do(t, app, "GET", "/article_content?url=https%3A%2F%2Fexample.org%2Fa", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, "GET", "/article_content", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "url query parameter is required", body["error"])

	status, _ = do(t, app, "GET", "/article_content?url=file%3A%2F%2F%2Fetc%2Fpasswd", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestContentType(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("POST", "/search", strings.NewReader("query=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

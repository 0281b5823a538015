package article

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

var (
	ErrInvalidURL   = errors.New("url must be an absolute http or https address")
	ErrFetchTimeout = errors.New("request timeout: url took too long to respond")
)

// HTTPError is a 4xx or 5xx answer from the article host.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

// Page is a fetched and parsed article page.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	timeout   time.Duration
	log       *zap.Logger
}

func NewFetcher(cfg config.CrawlerConfig) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Fetcher{
		client:    &http.Client{},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		timeout:   timeout,
		log:       logger.GetLogger(),
	}
}

// ParseArticleURL accepts only absolute http(s) URLs.
func ParseArticleURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// Fetch downloads and parses the page at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := ParseArticleURL(rawURL)
	if err != nil {
		return nil, err
	}

	page, err := f.fetch(ctx, u)
	switch {
	case err == nil:
		metrics.ArticleFetches.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrFetchTimeout):
		metrics.ArticleFetches.WithLabelValues("timeout").Inc()
	default:
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			metrics.ArticleFetches.WithLabelValues("http_error").Inc()
		} else {
			metrics.ArticleFetches.WithLabelValues("error").Inc()
		}
	}
	return page, err
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	f.log.Info("Fetching article", zap.String("url", u.String()))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: u.String()}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, f.maxBytes))
	if err != nil {
		return nil, f.classify(ctx, err)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	f.log.Info("Fetched article", zap.Int("status", resp.StatusCode), zap.String("url", final.String()))
	return &Page{URL: final, Doc: doc}, nil
}

func (f *Fetcher) classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrFetchTimeout
	}
	return fmt.Errorf("failed to fetch article: %w", err)
}

// decodeBody undoes gzip or brotli transfer compression and converts the body to UTF-8.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	}

	utf8Reader, err := charset.NewReader(r, resp.Header.Get("Content-Type"))
	if err != nil {
		return r, nil
	}
	return utf8Reader, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{client: client, ttl: time.Duration(cfg.TTLMinutes) * time.Minute}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32) error {
	return c.setJSON(ctx, "embedding:"+textHash, embedding)
}

// GetEmbedding reports false on a miss.
func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	var embedding []float32
	ok, err := c.getJSON(ctx, "embedding", "embedding:"+textHash, &embedding)
	if !ok || err != nil {
		return nil, ok, err
	}
	return embedding, true, nil
}

// SetArticle stores any JSON-encodable article under its url hash.
func (c *Client) SetArticle(ctx context.Context, urlHash string, article interface{}) error {
	return c.setJSON(ctx, "article:"+urlHash, article)
}

func (c *Client) GetArticle(ctx context.Context, urlHash string, article interface{}) (bool, error) {
	return c.getJSON(ctx, "article", "article:"+urlHash, article)
}

// InvalidateArticles removes every cached article.
func (c *Client) InvalidateArticles(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "article:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Article cache invalidated")
	return nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	logger.Debug("Cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) getJSON(ctx context.Context, kind, key string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(kind).Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	metrics.CacheHits.WithLabelValues(kind).Inc()
	logger.Debug("Cache hit", zap.String("key", key))
	return true, nil
}

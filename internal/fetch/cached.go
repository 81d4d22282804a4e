// Package fetch provides generic URL fetching with optional caching.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a cached page body stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores response bodies on disk keyed by the SHA-256 of the URL.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	URL         string    `json:"url"`
	FetchedAt   time.Time `json:"fetched_at"`
	ContentType string    `json:"content_type,omitempty"`
	StatusCode  int       `json:"status_code"`
	Body        string    `json:"body"`
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) path(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns a fresh entry. Expired or unreadable entries are removed and
// reported as misses.
func (c *Cache) Get(urlStr string) (*Result, bool) {
	p := c.path(urlStr)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.URL != urlStr {
		_ = os.Remove(p)
		return nil, false
	}
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		_ = os.Remove(p)
		return nil, false
	}

	return &Result{
		URL:         entry.URL,
		HTML:        entry.Body,
		ContentType: entry.ContentType,
		StatusCode:  entry.StatusCode,
	}, true
}

// Put stores a result. The write is atomic so readers never see a partial entry.
func (c *Cache) Put(result *Result) error {
	data, err := json.Marshal(cacheEntry{
		URL:         result.URL,
		FetchedAt:   c.now().UTC(),
		ContentType: result.ContentType,
		StatusCode:  result.StatusCode,
		Body:        result.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(result.URL)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// CachedFetcher wraps a Getter with the disk cache.
type CachedFetcher struct {
	getter    Getter
	cache     *Cache
	skipCache bool // For testing or forcing fresh fetches
	logger    zerolog.Logger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheDir  string
	CacheTTL  time.Duration
	SkipCache bool
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheDir:  filepath.Join(".cache", "pages"),
		CacheTTL:  DefaultCacheTTL,
		SkipCache: false,
	}
}

// NewCachedFetcher creates a new cached fetcher.
func NewCachedFetcher(getter Getter, config *CachedFetcherConfig, logger zerolog.Logger) (*CachedFetcher, error) {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.CacheDir == "" {
		config.CacheDir = DefaultCachedFetcherConfig().CacheDir
	}
	cache, err := NewCache(config.CacheDir, config.CacheTTL)
	if err != nil {
		return nil, err
	}
	return &CachedFetcher{
		getter:    getter,
		cache:     cache,
		skipCache: config.SkipCache,
		logger:    logger.With().Str("component", "cache").Logger(),
	}, nil
}

// Get returns a fresh cached body when one exists, without touching the
// network or the rate limiter. Otherwise it fetches and caches the result.
func (f *CachedFetcher) Get(ctx context.Context, urlStr string) (*Result, error) {
	if !f.skipCache {
		if cached, ok := f.cache.Get(urlStr); ok {
			f.logger.Debug().Str("url", urlStr).Msg("cache hit")
			return cached, nil
		}
	}

	result, err := f.getter.Get(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Put(result); err != nil {
		// The fetch succeeded; a cache write failure only costs a refetch.
		f.logger.Warn().Err(err).Str("url", urlStr).Msg("failed to cache page")
	}
	return result, nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Common errors
var (
	ErrFetchFailed     = errors.New("fetch failed")
	ErrInvalidResponse = errors.New("invalid response")
)

// Config configures the fetcher behavior.
type Config struct {
	// HTTP client timeout
	Timeout time.Duration
	// Maximum response size in bytes
	MaxResponseSize int64
	// User-Agent header
	UserAgent string
	// Whether to cache successful responses in memory
	UseCache bool
	// Cache TTL
	CacheTTL time.Duration

	// RetryConfig provides retry behavior with exponential backoff.
	// If nil, DefaultRetryConfig is used.
	RetryConfig *RetryConfig

	// HTTPClient overrides the client used for requests. If nil, a secure
	// client is built from Timeout.
	HTTPClient *http.Client
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		MaxResponseSize: 10 * 1024 * 1024,
		UserAgent:       "sigpdf/1.0",
		UseCache:        true,
		CacheTTL:        1 * time.Hour,
		RetryConfig:     QuickRetryConfig(),
	}
}

// Fetcher downloads resources over HTTP(S) with size limits and caching.
type Fetcher struct {
	config *Config
	client *http.Client
	cache  *responseCache
}

// NewFetcher creates a new fetcher.
func NewFetcher(config *Config) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}

	client := config.HTTPClient
	if client == nil {
		client = NewSecureHTTPClient(config.Timeout)
	}

	return &Fetcher{
		config: config,
		client: client,
		cache:  newResponseCache(config.CacheTTL),
	}
}

// responseCache implements a simple in-memory cache.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

func (c *responseCache) set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		data:    data,
		expires: time.Now().Add(c.ttl),
	}
}

// ClearCache removes all cached responses.
func (f *Fetcher) ClearCache() {
	f.cache.mu.Lock()
	defer f.cache.mu.Unlock()
	f.cache.entries = make(map[string]cacheEntry)
}

// Fetch downloads the resource at urlStr. Only http and https schemes are
// allowed. Successful responses are cached when caching is enabled.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	if f.config.UseCache {
		if data, ok := f.cache.get(urlStr); ok {
			return data, nil
		}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrFetchFailed, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme: %s", ErrFetchFailed, parsedURL.Scheme)
	}

	data, result := Retry(ctx, f.config.RetryConfig, func(ctx context.Context) ([]byte, error) {
		return f.doFetch(ctx, urlStr)
	})
	if !result.Success {
		return nil, result.LastError()
	}

	if f.config.UseCache {
		f.cache.set(urlStr, data)
	}
	return data, nil
}

// FetchAny downloads from the first of urls that responds, falling back
// through the list in order.
func (f *Fetcher) FetchAny(ctx context.Context, urls []string) ([]byte, *MultiURLResult) {
	return RetryMultiURL(ctx, f.config.RetryConfig, urls, func(ctx context.Context, url string) ([]byte, error) {
		return f.Fetch(ctx, url)
	})
}

func (f *Fetcher) doFetch(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	reader := io.LimitReader(resp.Body, f.config.MaxResponseSize)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}

	return data, nil
}

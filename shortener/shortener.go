// Package shortener wraps third-party URL shortening endpoints behind a
// memoizing client that never fails: any problem yields the original URL.
package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Endpoints of the supported public shortening services. Each answers a GET
// with the short URL as plain text.
var Endpoints = map[string]string{
	"tinyurl": "https://tinyurl.com/api-create.php",
	"isgd":    "https://is.gd/create.php",
	"vgd":     "https://v.gd/create.php",
}

// simpleFormat lists services that need format=simple for a plain-text body.
var simpleFormat = map[string]bool{
	"isgd": true,
	"vgd":  true,
}

// maxBodyBytes caps how much of a shortener response is read.
const maxBodyBytes = 4096

// Cache maps long URLs to their shortened form for the lifetime of the owner.
// Entries are never evicted. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached short URL for longURL, if any.
func (c *Cache) Get(longURL string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[longURL]
	return v, ok
}

// Put records the short URL for longURL.
func (c *Cache) Put(longURL, shortURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[longURL] = shortURL
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Options configures a Service.
type Options struct {
	// Service is one of the Endpoints keys, or "custom" with Endpoint set.
	Service  string
	Endpoint string
	Disabled bool
	Timeout  time.Duration
	Client   *http.Client
	Cache    *Cache
}

// Service shortens URLs through a single configured endpoint.
type Service struct {
	endpoint string
	simple   bool
	disabled bool
	cache    *Cache
	client   *http.Client
	log      *slog.Logger
	inflight singleflight.Group
}

// New builds a Service. An unknown service name is an error.
func New(opts Options, log *slog.Logger) (*Service, error) {
	endpoint := opts.Endpoint
	if opts.Service != "" && opts.Service != "custom" {
		e, ok := Endpoints[opts.Service]
		if !ok {
			return nil, fmt.Errorf("unknown shortener service %q", opts.Service)
		}
		endpoint = e
	}
	if endpoint == "" && !opts.Disabled {
		endpoint = Endpoints["tinyurl"]
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewCache()
	}

	return &Service{
		endpoint: endpoint,
		simple:   simpleFormat[opts.Service],
		disabled: opts.Disabled,
		cache:    cache,
		client:   client,
		log:      log,
	}, nil
}

// Shorten returns the shortened form of longURL. Cached results are returned
// without network access, and concurrent misses for the same URL share one
// request. On any failure the input is returned unchanged and nothing is
// cached.
func (s *Service) Shorten(ctx context.Context, longURL string) string {
	if s.disabled {
		return longURL
	}
	if short, ok := s.cache.Get(longURL); ok {
		return short
	}

	v, err, _ := s.inflight.Do(longURL, func() (interface{}, error) {
		if short, ok := s.cache.Get(longURL); ok {
			return short, nil
		}
		if !isSecure(longURL) {
			s.log.Warn("shortening a non-https url", "url", longURL)
		}
		short, err := s.create(ctx, longURL)
		if err != nil {
			return nil, err
		}
		s.cache.Put(longURL, short)
		s.log.Debug("short url created", "url", longURL, "short", short)
		return short, nil
	})
	if err != nil {
		s.log.Error("failed to create short url", "url", longURL, "error", err)
		return longURL
	}
	return v.(string)
}

// create issues the single GET against the shortening endpoint.
func (s *Service) create(ctx context.Context, longURL string) (string, error) {
	q := url.Values{}
	if s.simple {
		q.Set("format", "simple")
	}
	q.Set("url", longURL)

	sep := "?"
	if strings.Contains(s.endpoint, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+sep+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortener GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read shortener body: %w", err)
	}
	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", fmt.Errorf("shortener returned an empty body")
	}
	return short, nil
}

// isSecure reports whether raw parses as an https URL.
func isSecure(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https"
}

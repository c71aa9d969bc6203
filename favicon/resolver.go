// Package favicon locates a usable site icon for a page and loads icon
// images for compositing. Resolution never fails: when every candidate is
// unreachable a generated placeholder data URI is returned.
package favicon

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

	"github.com/PuerkitoBio/goquery"
)

// iconSelectors are tried in order; the first matching element of each
// selector is a candidate.
var iconSelectors = []string{
	`link[rel*="icon"][href]`,
	`link[rel="shortcut icon"][href]`,
	`link[rel="apple-touch-icon"][href]`,
	`link[rel="apple-touch-icon-precomposed"][href]`,
	`link[rel="mask-icon"][href]`,
	`link[rel="fluid-icon"][href]`,
}

// maxDocumentBytes caps how much of a page is read when looking for links.
const maxDocumentBytes = 2 << 20

// Page identifies the document whose icon is wanted. HTML is optional; when
// empty the document is fetched from URL.
type Page struct {
	URL  string
	HTML string
}

// Domain returns the page's host name without port, or "" if the URL does
// not parse.
func (p Page) Domain() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Resolver finds a favicon URL for a page.
type Resolver struct {
	client *http.Client
	log    *slog.Logger

	mu        sync.Mutex
	reachable map[string]bool
}

// NewResolver returns a Resolver that probes candidates with client. A nil
// client gets a 3 second timeout.
func NewResolver(client *http.Client, log *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &Resolver{
		client:    client,
		log:       log,
		reachable: make(map[string]bool),
	}
}

// Resolve returns the first reachable icon URL for page, a data: URI found in
// the document, or the placeholder for the page's domain.
func (r *Resolver) Resolve(ctx context.Context, page Page) string {
	base, err := url.Parse(page.URL)
	if err != nil || base.Host == "" {
		r.log.Warn("cannot resolve favicon for invalid page url", "url", page.URL)
		return Placeholder(page.Domain())
	}

	doc, err := r.document(ctx, page)
	if err != nil {
		r.log.Warn("failed to read page for favicon links", "url", page.URL, "error", err)
	}

	if doc != nil {
		for _, selector := range iconSelectors {
			href, ok := doc.Find(selector).First().Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" {
				continue
			}
			if strings.HasPrefix(href, "data:") {
				return href
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			candidate := base.ResolveReference(ref).String()
			if r.probe(ctx, candidate) {
				return candidate
			}
		}
	}

	root := (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String()
	if r.probe(ctx, root) {
		return root
	}

	return Placeholder(base.Hostname())
}

// probe reports whether candidate answered at all. Any HTTP response counts,
// whatever its status; only transport failures make a candidate unreachable.
func (r *Resolver) probe(ctx context.Context, candidate string) bool {
	r.mu.Lock()
	ok := r.reachable[candidate]
	r.mu.Unlock()
	if ok {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		r.log.Warn("failed to fetch icon", "url", candidate, "error", err)
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("failed to fetch icon", "url", candidate, "error", err)
		return false
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentBytes))
	resp.Body.Close()

	r.mu.Lock()
	r.reachable[candidate] = true
	r.mu.Unlock()
	return true
}

// document parses page.HTML, fetching it first when absent.
func (r *Resolver) document(ctx context.Context, page Page) (*goquery.Document, error) {
	if page.HTML != "" {
		return goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

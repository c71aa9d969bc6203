package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, endpoint string) *Service {
	t.Helper()
	s, err := New(Options{Service: "custom", Endpoint: endpoint}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestShortenCachesResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("url"); got != "https://example.com/a?b=c" {
			t.Errorf("url param = %q", got)
		}
		fmt.Fprint(w, "https://tinyurl.com/abc123\n")
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL)
	ctx := context.Background()

	first := s.Shorten(ctx, "https://example.com/a?b=c")
	second := s.Shorten(ctx, "https://example.com/a?b=c")

	if first != "https://tinyurl.com/abc123" || second != first {
		t.Fatalf("got %q then %q", first, second)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("endpoint called %d times, want 1", n)
	}
}

func TestShortenConcurrentMissesShareRequest(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		fmt.Fprint(w, "https://tinyurl.com/abc123")
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL)
	ctx := context.Background()

	const n = 8
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Shorten(ctx, "https://example.com/")
		}(i)
	}

	<-arrived
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "https://tinyurl.com/abc123" {
			t.Fatalf("result %d = %q", i, r)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("endpoint called %d times, want 1", got)
	}
}

func TestShortenFallsBackToOriginal(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-ok status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			s := newTestService(t, srv.URL)
			const long = "https://example.com/page"
			if got := s.Shorten(context.Background(), long); got != long {
				t.Fatalf("Shorten = %q, want original", got)
			}
			if s.cache.Len() != 0 {
				t.Fatal("failures must not be cached")
			}
			s.Shorten(context.Background(), long)
			if n := calls.Load(); n != 2 {
				t.Fatalf("endpoint called %d times, want 2 (no memo after failure)", n)
			}
		})
	}
}

func TestShortenNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	s := newTestService(t, endpoint)
	const long = "http://insecure.example.com/"
	if got := s.Shorten(context.Background(), long); got != long {
		t.Fatalf("Shorten = %q, want original", got)
	}
}

func TestShortenDisabled(t *testing.T) {
	s, err := New(Options{Disabled: true}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Shorten(context.Background(), "https://example.com"); got != "https://example.com" {
		t.Fatalf("Shorten = %q", got)
	}
}

func TestSimpleFormatServices(t *testing.T) {
	formats := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		formats <- r.URL.Query().Get("format")
		fmt.Fprint(w, "https://is.gd/xyz")
	}))
	defer srv.Close()

	s, err := New(Options{Service: "isgd"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.endpoint = srv.URL

	if got := s.Shorten(context.Background(), "https://example.com"); got != "https://is.gd/xyz" {
		t.Fatalf("Shorten = %q", got)
	}
	if gotFormat := <-formats; gotFormat != "simple" {
		t.Fatalf("format = %q, want simple", gotFormat)
	}
}

func TestNewRejectsUnknownService(t *testing.T) {
	if _, err := New(Options{Service: "bitly"}, testLogger()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSharedCacheAcrossServices(t *testing.T) {
	cache := NewCache()
	cache.Put("https://example.com", "https://tinyurl.com/cached")

	s, err := New(Options{Service: "custom", Endpoint: "http://127.0.0.1:1", Cache: cache}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Shorten(context.Background(), "https://example.com"); got != "https://tinyurl.com/cached" {
		t.Fatalf("Shorten = %q", got)
	}
}

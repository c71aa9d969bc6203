package widget

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/openclaw/pageqr/favicon"
	"github.com/openclaw/pageqr/render"
	"github.com/openclaw/pageqr/store"
)

// Messages shown in the QR container when generation fails.
const (
	MsgRetrying = "QR generation failed, trying a short link..."
	MsgFailed   = "QR generation failed, please try a URL shortener"
)

// ErrNoShortLink is the retry failure when the shortener returned the page
// URL unchanged.
var ErrNoShortLink = errors.New("no short link available")

// Shortener maps a long URL to a short one, returning the input on failure.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// FaviconResolver finds an icon source for a page. It never fails.
type FaviconResolver interface {
	Resolve(ctx context.Context, page favicon.Page) string
}

// Renderer draws the QR image.
type Renderer interface {
	Render(ctx context.Context, text string, opts render.Options) (*render.Result, error)
}

// Outcome is the result of one generation attempt.
type Outcome struct {
	// Text is the string encoded in the QR code.
	Text    string
	Favicon string
	Result  *render.Result
	// Message is the user-facing failure text, empty on success.
	Message string
	Err     error
	// Retry asks the caller to call Generator.Retry after the retry delay.
	Retry bool
}

// OK reports whether a QR image was produced.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// DataURI returns the rendered PNG as a data: URI, or "" when there is none.
func (o Outcome) DataURI() string {
	if !o.OK() {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(o.Result.PNG)
}

// Generator runs the QR pipeline: shorten, resolve favicon, render.
type Generator struct {
	shortener Shortener
	resolver  FaviconResolver
	renderer  Renderer
	log       *slog.Logger
}

// NewGenerator returns a Generator.
func NewGenerator(shortener Shortener, resolver FaviconResolver, renderer Renderer, log *slog.Logger) *Generator {
	return &Generator{
		shortener: shortener,
		resolver:  resolver,
		renderer:  renderer,
		log:       log,
	}
}

// Generate produces the QR code for page. A render failure yields an Outcome
// with MsgRetrying and Retry set.
func (g *Generator) Generate(ctx context.Context, page Page, settings store.Settings) Outcome {
	out := g.attempt(ctx, page, settings)
	if out.Err != nil {
		g.log.Error("error generating QR code", "url", page.URL, "error", out.Err)
		out.Message = MsgRetrying
		out.Retry = true
	}
	return out
}

// Retry is the single follow-up to a failed Generate: it regenerates only
// when the shortener yields a URL different from the page URL.
func (g *Generator) Retry(ctx context.Context, page Page, settings store.Settings) Outcome {
	short := g.shortener.Shorten(ctx, page.URL)
	if short == page.URL {
		g.log.Warn("no short link available, giving up on QR generation", "url", page.URL)
		return Outcome{Text: page.URL, Message: MsgFailed, Err: ErrNoShortLink}
	}

	out := g.attempt(ctx, page, settings)
	if out.Err != nil {
		g.log.Error("QR generation retry failed", "url", page.URL, "error", out.Err)
		out.Message = MsgFailed
	}
	return out
}

// Run is Generate followed, if needed, by one Retry after delay. It blocks.
func (g *Generator) Run(ctx context.Context, page Page, settings store.Settings, delay time.Duration) Outcome {
	out := g.Generate(ctx, page, settings)
	if !out.Retry {
		return out
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		out.Message = MsgFailed
		out.Retry = false
		return out
	case <-t.C:
	}
	return g.Retry(ctx, page, settings)
}

// Favicon resolves the icon for page.
func (g *Generator) Favicon(ctx context.Context, page Page) string {
	return g.resolver.Resolve(ctx, page.faviconPage())
}

func (g *Generator) attempt(ctx context.Context, page Page, settings store.Settings) Outcome {
	text := g.shortener.Shorten(ctx, page.URL)

	opts := render.Options{ShowLogo: settings.ShowLogo, Domain: page.SiteName()}
	if settings.ShowLogo {
		opts.FaviconSource = g.Favicon(ctx, page)
	}

	res, err := g.renderer.Render(ctx, text, opts)
	if err != nil {
		return Outcome{Text: text, Favicon: opts.FaviconSource, Err: err}
	}
	return Outcome{Text: text, Favicon: opts.FaviconSource, Result: res}
}

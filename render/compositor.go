// Package render produces the QR image shown by the widget: a fixed-size QR
// bitmap from an external encoder, optionally with the site favicon set in a
// circular badge at its centre.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/openclaw/pageqr/favicon"
)

// Badge geometry, in pixels of the Size×Size canvas.
const (
	Size          = 256
	LogoSize      = 48
	LogoRadius    = LogoSize / 2
	BackingRadius = LogoRadius + 2
	shadowBlur    = 4
	shadowAlpha   = 0.1
)

// ErrEncoderUnavailable is returned when no QR encoder is configured.
var ErrEncoderUnavailable = errors.New("qr encoder unavailable")

// ImageLoader loads a favicon image from a URL or data URI.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// Options controls one render.
type Options struct {
	ShowLogo      bool
	FaviconSource string
	// Domain names the site for the placeholder badge.
	Domain string
}

// Result is the output of a render.
type Result struct {
	Text  string
	Image image.Image
	PNG   []byte
	// Composited is true when the favicon badge made it into PNG.
	Composited bool
	// LogoFallback is true when the placeholder replaced the favicon.
	LogoFallback bool
}

// Compositor renders QR codes and overlays favicon badges.
type Compositor struct {
	encoder Encoder
	loader  ImageLoader
	log     *slog.Logger

	encodePNG func(w io.Writer, img image.Image) error
}

// NewCompositor returns a Compositor. A nil encoder makes every Render fail
// with ErrEncoderUnavailable.
func NewCompositor(encoder Encoder, loader ImageLoader, log *slog.Logger) *Compositor {
	return &Compositor{
		encoder:   encoder,
		loader:    loader,
		log:       log,
		encodePNG: png.Encode,
	}
}

// Render encodes text as a Size×Size QR code. With opts.ShowLogo the favicon
// badge is drawn over the centre; if exporting the composited canvas fails
// the plain QR bitmap is returned instead.
func (c *Compositor) Render(ctx context.Context, text string, opts Options) (*Result, error) {
	if c.encoder == nil {
		c.log.Error("QR encoder is not available")
		return nil, ErrEncoderUnavailable
	}

	qr, err := c.encoder.Encode(text, Size)
	if err != nil {
		return nil, err
	}

	raw, err := c.export(qr)
	if err != nil {
		return nil, fmt.Errorf("export qr: %w", err)
	}
	res := &Result{Text: text, Image: qr, PNG: raw}
	if !opts.ShowLogo {
		return res, nil
	}

	logo, fallback := c.logo(ctx, opts)
	composed := composite(qr, logo)

	out, err := c.export(composed)
	if err != nil {
		c.log.Error("failed to export canvas", "error", err)
		return res, nil
	}

	res.Image = composed
	res.PNG = out
	res.Composited = true
	res.LogoFallback = fallback
	return res, nil
}

// logo loads the favicon, substituting the placeholder when it cannot be
// loaded.
func (c *Compositor) logo(ctx context.Context, opts Options) (image.Image, bool) {
	placeholder := func() image.Image {
		return favicon.PlaceholderImage(opts.Domain, LogoSize*2)
	}

	if opts.FaviconSource == "" || c.loader == nil || favicon.IsPlaceholder(opts.FaviconSource, opts.Domain) {
		return placeholder(), true
	}

	img, err := c.loader.Load(ctx, opts.FaviconSource)
	if err != nil {
		c.log.Info("failed to load favicon, using default icon", "src", truncate(opts.FaviconSource, 120), "error", err)
		return placeholder(), true
	}
	return img, false
}

func (c *Compositor) export(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// composite draws a shadowed white disc at the centre of qr and the logo
// clipped to a circle on top of it.
func composite(qr, logo image.Image) image.Image {
	dc := gg.NewContext(Size, Size)
	b := qr.Bounds()
	dc.DrawImage(qr, -b.Min.X, -b.Min.Y)

	cx, cy := float64(Size)/2, float64(Size)/2

	// Soft shadow: stacked translucent rings fading outwards.
	for i := shadowBlur; i > 0; i-- {
		dc.SetRGBA(0, 0, 0, shadowAlpha/shadowBlur)
		dc.DrawCircle(cx, cy, BackingRadius+float64(i))
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(cx, cy, BackingRadius)
	dc.Fill()

	dc.DrawCircle(cx, cy, LogoRadius)
	dc.Clip()
	dc.DrawImage(scale(logo, LogoSize), int(cx)-LogoRadius, int(cy)-LogoRadius)
	dc.ResetClip()

	return dc.Image()
}

// scale resamples img to size×size.
func scale(img image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package favicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when icon bytes match no known format.
var ErrUnsupportedImage = errors.New("unsupported icon image")

// svgRasterSize is the edge length SVG icons are rasterised at.
const svgRasterSize = 96

// MaxDimension bounds the width and height an icon header may declare.
// Larger images are rejected before any pixel buffer is allocated.
const MaxDimension = 1024

// Loader fetches and decodes icon images.
type Loader struct {
	client   *http.Client
	maxBytes int64
}

// NewLoader returns a Loader. A nil client gets a 5 second timeout; maxBytes
// <= 0 means 1 MiB.
func NewLoader(client *http.Client, maxBytes int64) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Loader{client: client, maxBytes: maxBytes}
}

// Load returns the decoded image behind src, which is either a data: URI or
// an http(s) URL.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode sniffs data and decodes it as SVG, ICO or any registered raster
// format (PNG, JPEG, GIF, BMP, WebP).
func Decode(data []byte) (image.Image, error) {
	switch {
	case isICO(data):
		return decodeICO(data)
	case isSVG(data):
		return decodeSVG(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrUnsupportedImage, w, h, MaxDimension, MaxDimension)
	}
	return nil
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return parseDataURI(src)
	}

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported icon source %q", src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build icon request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch icon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch icon: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read icon: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("icon larger than %d bytes", l.maxBytes)
	}
	return data, nil
}

// parseDataURI decodes "data:[<mediatype>][;base64],<data>".
func parseDataURI(src string) ([]byte, error) {
	rest := strings.TrimPrefix(src, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unescape data uri: %w", err)
	}
	return []byte(unescaped), nil
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

func decodeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: svg: %v", ErrUnsupportedImage, err)
	}
	icon.SetTarget(0, 0, svgRasterSize, svgRasterSize)

	rgba := image.NewRGBA(image.Rect(0, 0, svgRasterSize, svgRasterSize))
	scanner := rasterx.NewScannerGV(svgRasterSize, svgRasterSize, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(svgRasterSize, svgRasterSize, scanner)
	icon.Draw(raster, 1.0)
	return rgba, nil
}

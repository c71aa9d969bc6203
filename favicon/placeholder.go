package favicon

import (
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	placeholderBackground = "#f0f0f0"
	placeholderForeground = "#666666"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` +
	`<rect width="100" height="100" rx="20" fill="%s"/>` +
	`<text x="50" y="50" font-family="Arial" font-size="40" fill="%s" ` +
	`text-anchor="middle" dominant-baseline="central">%s</text></svg>`

// Placeholder returns an SVG data URI showing the first letter of domain on
// a rounded grey square. It never fails.
func Placeholder(domain string) string {
	svg := fmt.Sprintf(placeholderSVG, placeholderBackground, placeholderForeground, initial(domain))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// IsPlaceholder reports whether src is the placeholder generated for domain.
func IsPlaceholder(src, domain string) bool {
	return src == Placeholder(domain)
}

// PlaceholderImage rasterises the placeholder at size×size pixels, letter
// included.
func PlaceholderImage(domain string, size int) image.Image {
	s := float64(size)
	dc := gg.NewContext(size, size)
	dc.DrawRoundedRectangle(0, 0, s, s, s*0.2)
	dc.SetHexColor(placeholderBackground)
	dc.Fill()

	if face, err := placeholderFace(s * 0.4); err == nil {
		dc.SetFontFace(face)
		dc.SetHexColor(placeholderForeground)
		dc.DrawStringAnchored(initial(domain), s/2, s/2, 0.5, 0.35)
	}
	return dc.Image()
}

// initial returns the upper-cased first rune of domain, or "?" when empty.
func initial(domain string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(domain))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

func placeholderFace(points float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

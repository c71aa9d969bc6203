package widget

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/openclaw/pageqr/favicon"
)

// maxTitleLength is the longest page title shown under the QR code.
const maxTitleLength = 50

// Page is the document the widget is attached to.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	// HTML is the page document. When empty the favicon resolver fetches it.
	HTML string `json:"html,omitempty"`
}

// SiteName returns the host name of the page, or "" for an invalid URL.
func (p Page) SiteName() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Secure reports whether the page is served over HTTPS.
func (p Page) Secure() bool {
	u, err := url.Parse(p.URL)
	return err == nil && u.Scheme == "https"
}

// DisplayTitle returns the title shortened to maxTitleLength characters. A
// cut title loses its trailing partial word and gains "...".
func (p Page) DisplayTitle() string {
	return truncateTitle(p.Title, maxTitleLength)
}

func (p Page) faviconPage() favicon.Page {
	return favicon.Page{URL: p.URL, HTML: p.HTML}
}

func truncateTitle(title string, max int) string {
	if utf8.RuneCountInString(title) <= max {
		return title
	}
	cut := string([]rune(title)[:max])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + "..."
}

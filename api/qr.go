package api

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"

	"github.com/openclaw/pageqr/favicon"
	"github.com/openclaw/pageqr/store"
	"github.com/openclaw/pageqr/widget"
)

type qrDataResponse struct {
	Text         string `json:"text"`
	QRPNG        string `json:"qr_png,omitempty"`
	Favicon      string `json:"favicon,omitempty"`
	Composited   bool   `json:"composited"`
	LogoFallback bool   `json:"logo_fallback"`
	Message      string `json:"message,omitempty"`
}

type faviconResponse struct {
	URL         string `json:"url"`
	Favicon     string `json:"favicon"`
	Placeholder bool   `json:"placeholder"`
}

type shortenResponse struct {
	URL   string `json:"url"`
	Short string `json:"short"`
}

func (s *Server) handleQRImage(w http.ResponseWriter, r *http.Request) {
	page, settings, ok := s.pageFromQuery(w, r)
	if !ok {
		return
	}

	out := s.Generator.Run(r.Context(), page, settings, s.RetryDelay)
	if !out.OK() {
		writeError(w, http.StatusBadGateway, out.Message)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-QR-Text", out.Text)
	w.WriteHeader(http.StatusOK)
	w.Write(out.Result.PNG)
}

func (s *Server) handleQRData(w http.ResponseWriter, r *http.Request) {
	page, settings, ok := s.pageFromQuery(w, r)
	if !ok {
		return
	}

	out := s.Generator.Run(r.Context(), page, settings, s.RetryDelay)
	resp := qrDataResponse{
		Text:    out.Text,
		Favicon: out.Favicon,
		Message: out.Message,
	}
	if !out.OK() {
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	resp.QRPNG = base64.StdEncoding.EncodeToString(out.Result.PNG)
	resp.Composited = out.Result.Composited
	resp.LogoFallback = out.Result.LogoFallback
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	raw, ok := requireURL(w, r)
	if !ok {
		return
	}
	page := widget.Page{URL: raw}
	src := s.Generator.Favicon(r.Context(), page)
	writeJSON(w, http.StatusOK, faviconResponse{
		URL:         raw,
		Favicon:     src,
		Placeholder: favicon.IsPlaceholder(src, page.SiteName()),
	})
}

func (s *Server) handleShorten(w http.ResponseWriter, r *http.Request) {
	raw, ok := requireURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, shortenResponse{
		URL:   raw,
		Short: s.Shortener.Shorten(r.Context(), raw),
	})
}

// --- helpers ----------------------------------------------------------------

// pageFromQuery reads url, title and logo query parameters. logo overrides
// the stored showLogo setting for this request only.
func (s *Server) pageFromQuery(w http.ResponseWriter, r *http.Request) (widget.Page, store.Settings, bool) {
	raw, ok := requireURL(w, r)
	if !ok {
		return widget.Page{}, store.Settings{}, false
	}

	settings := s.Settings.Get(r.Context())
	if v := r.URL.Query().Get("logo"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "logo must be a boolean")
			return widget.Page{}, store.Settings{}, false
		}
		settings.ShowLogo = show
	}

	return widget.Page{URL: raw, Title: r.URL.Query().Get("title")}, settings, true
}

func requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return "", false
	}
	return raw, true
}

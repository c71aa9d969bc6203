package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/pageqr/widget"
)

type createWidgetResponse struct {
	ID    string           `json:"id"`
	State widget.ViewState `json:"state"`
}

func (s *Server) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var page widget.Page
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if page.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	presenter := widget.NewSnapshotPresenter()
	wd := widget.New(page, s.Settings, s.Generator, presenter, s.Widget, s.Log)
	if err := wd.Mount(r.Context()); err != nil {
		s.Log.Error("failed to mount widget", "url", page.URL, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := s.Sessions.Add(wd, presenter)
	s.Log.Info("widget session created", "id", id, "url", page.URL)
	writeJSON(w, http.StatusCreated, createWidgetResponse{ID: id, State: wd.State()})
}

func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	state, _ := sess.presenter.Snapshot()
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "widget session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleWidgetEnter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.widget.PointerEnter()
	writeJSON(w, http.StatusOK, sess.widget.State())
}

func (s *Server) handleWidgetLeave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.widget.PointerLeave()
	writeJSON(w, http.StatusOK, sess.widget.State())
}

func (s *Server) handleWidgetToggleLogo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.widget.ToggleLogo(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.widget.State())
}

func (s *Server) handleWidgetCopy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	err := sess.widget.Copy(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sess.widget.State())
	case errors.Is(err, widget.ErrNothingToCopy), errors.Is(err, widget.ErrNotMounted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleWidgetPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(widgetPageHTML))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "widget session not found")
		return nil, false
	}
	return sess, true
}

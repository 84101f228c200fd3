package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/importer"
	"reports/internal/service"
)

type handler struct {
	reports  *service.ReportService
	exporter *export.Exporter
}

// session opens (or reuses) the editor session named in the URL.
func (h *handler) session(r *http.Request) (*service.EditorSession, error) {
	return h.reports.Open(r.Context(), chi.URLParam(r, "report"))
}

// withSession runs fn against the URL's session and replies with the
// resulting session state.
func (h *handler) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(*service.EditorSession) (any, error)) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	extra, err := fn(sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if extra != nil {
		writeJSON(w, status, extra)
		return
	}
	writeJSON(w, status, sess.State())
}

type createdResponse struct {
	ID    string               `json:"id"`
	State service.SessionState `json:"state"`
}

// ── Reports ────────────────────────────────────────────────

func (h *handler) listBlockTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.BlockTypes())
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.ReportSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.reports.Create(r.Context(), req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// importReport creates a report from a markdown request body.
func (h *handler) importReport(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: read body: %v", errBadRequest, err))
		return
	}
	res, err := importer.Markdown(src, importer.Options{Status: domain.SectionStatus(r.URL.Query().Get("status"))})
	if err != nil {
		writeError(w, r, err)
		return
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		title = res.Title
	}
	rep, err := h.reports.CreateFromTree(r.Context(), title, res.Tree)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(*service.EditorSession) (any, error) { return nil, nil })
}

func (h *handler) renameReport(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "report")
	if err := h.reports.Rename(r.Context(), id, req.Title); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), chi.URLParam(r, "report")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) closeReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Close(r.Context(), chi.URLParam(r, "report")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) saveReport(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.Save(r.Context())
	})
}

func (h *handler) undo(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		_, err := s.Undo(r.Context())
		return nil, err
	})
}

func (h *handler) redo(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		_, err := s.Redo(r.Context())
		return nil, err
	})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		labels := s.History()
		if labels == nil {
			labels = []string{}
		}
		return map[string]any{"labels": labels}, nil
	})
}

func (h *handler) exportReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(export.FormatMarkdown)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, sess.Title(), sess.Tree(), f); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(sess.Title(), f)))
	_, _ = w.Write(buf.Bytes())
}

func fileName(title string, f export.Format) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "report"
	}
	return name + "." + f.Extension()
}

// ── Versions ───────────────────────────────────────────────

func (h *handler) listVersions(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		versions, err := s.ListVersions(r.Context())
		if versions == nil {
			versions = []domain.Version{}
		}
		return versions, err
	})
}

type versionRequest struct {
	Label string `json:"label"`
}

func (h *handler) createVersion(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusCreated, func(s *service.EditorSession) (any, error) {
		v, err := s.SaveVersion(r.Context(), req.Label)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (h *handler) restoreVersion(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.RestoreVersion(r.Context(), chi.URLParam(r, "version"))
	})
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reports/internal/content"
	"reports/internal/domain"
	"reports/internal/service"
)

// ── Sections ───────────────────────────────────────────────

type addSectionRequest struct {
	content.SectionSpec
	ParentID string `json:"parentId,omitempty"`
}

func (h *handler) addSection(w http.ResponseWriter, r *http.Request) {
	var req addSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusCreated, func(s *service.EditorSession) (any, error) {
		id, err := s.AddSection(r.Context(), req.SectionSpec, req.ParentID)
		if err != nil {
			return nil, err
		}
		return createdResponse{ID: id, State: s.State()}, nil
	})
}

func (h *handler) updateSection(w http.ResponseWriter, r *http.Request) {
	var patch content.SectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.UpdateSection(r.Context(), chi.URLParam(r, "section"), patch)
	})
}

func (h *handler) deleteSection(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.DeleteSection(r.Context(), chi.URLParam(r, "section"))
	})
}

func (h *handler) duplicateSection(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *service.EditorSession) (any, error) {
		id, err := s.DuplicateSection(r.Context(), chi.URLParam(r, "section"))
		if err != nil {
			return nil, err
		}
		return createdResponse{ID: id, State: s.State()}, nil
	})
}

func (h *handler) toggleLock(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.ToggleLock(r.Context(), chi.URLParam(r, "section"))
	})
}

func (h *handler) toggleCollapse(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.ToggleCollapse(r.Context(), chi.URLParam(r, "section"))
	})
}

type reorderRequest struct {
	MovedID  string `json:"movedId"`
	TargetID string `json:"targetId"`
}

func (h *handler) reorderSections(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.ReorderSections(r.Context(), req.MovedID, req.TargetID)
	})
}

// ── Blocks ─────────────────────────────────────────────────

type addBlockRequest struct {
	Type    domain.BlockType    `json:"type"`
	Index   *int                `json:"index,omitempty"`
	Options domain.BlockOptions `json:"options"`
	// Block, when set, is inserted as is instead of a default block.
	Block *domain.Block `json:"block,omitempty"`
}

func (h *handler) addBlock(w http.ResponseWriter, r *http.Request) {
	var req addBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sectionID := chi.URLParam(r, "section")
	h.withSession(w, r, http.StatusCreated, func(s *service.EditorSession) (any, error) {
		if req.Block != nil {
			if err := s.InsertBlock(r.Context(), sectionID, *req.Block, req.Index); err != nil {
				return nil, err
			}
			return createdResponse{ID: req.Block.ID, State: s.State()}, nil
		}
		id, err := s.AddBlock(r.Context(), sectionID, req.Type, req.Index, req.Options)
		if err != nil {
			return nil, err
		}
		return createdResponse{ID: id, State: s.State()}, nil
	})
}

func (h *handler) updateBlock(w http.ResponseWriter, r *http.Request) {
	var patch content.BlockPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.UpdateBlock(r.Context(), chi.URLParam(r, "section"), chi.URLParam(r, "block"), patch)
	})
}

// replaceBlock swaps the whole payload. The body is a block document:
// a type plus that type's fields.
func (h *handler) replaceBlock(w http.ResponseWriter, r *http.Request) {
	var b domain.Block
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.ReplacePayload(r.Context(), chi.URLParam(r, "section"), chi.URLParam(r, "block"), b.Payload)
	})
}

func (h *handler) deleteBlock(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.DeleteBlock(r.Context(), chi.URLParam(r, "section"), chi.URLParam(r, "block"))
	})
}

func (h *handler) duplicateBlock(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusCreated, func(s *service.EditorSession) (any, error) {
		id, err := s.DuplicateBlock(r.Context(), chi.URLParam(r, "section"), chi.URLParam(r, "block"))
		if err != nil {
			return nil, err
		}
		return createdResponse{ID: id, State: s.State()}, nil
	})
}

type moveBlockRequest struct {
	ToSectionID string `json:"toSectionId"`
	ToIndex     int    `json:"toIndex"`
}

func (h *handler) moveBlock(w http.ResponseWriter, r *http.Request) {
	var req moveBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return nil, s.MoveBlock(r.Context(), chi.URLParam(r, "section"), chi.URLParam(r, "block"), req.ToSectionID, req.ToIndex)
	})
}

// ── Editor ─────────────────────────────────────────────────

func (h *handler) getEditor(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		return s.Editor(), nil
	})
}

type selectionRequest struct {
	SectionID string `json:"sectionId"`
	BlockID   string `json:"blockId"`
}

func (h *handler) selectTarget(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		if err := s.Select(r.Context(), req.SectionID, req.BlockID); err != nil {
			return nil, err
		}
		return s.Editor(), nil
	})
}

type editingRequest struct {
	BlockID string `json:"blockId"`
}

func (h *handler) startEditing(w http.ResponseWriter, r *http.Request) {
	var req editingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		if err := s.StartEditing(r.Context(), req.BlockID); err != nil {
			return nil, err
		}
		return s.Editor(), nil
	})
}

func (h *handler) stopEditing(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		if err := s.StopEditing(r.Context()); err != nil {
			return nil, err
		}
		return s.Editor(), nil
	})
}

type viewModeRequest struct {
	Mode domain.ViewMode `json:"mode"`
}

func (h *handler) setViewMode(w http.ResponseWriter, r *http.Request) {
	var req viewModeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		if err := s.SetViewMode(r.Context(), req.Mode); err != nil {
			return nil, err
		}
		return s.Editor(), nil
	})
}

type zoomRequest struct {
	Zoom json.Number `json:"zoom"`
}

func (h *handler) setZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	zoom, err := req.Zoom.Int64()
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: zoom must be an integer percent", errBadRequest))
		return
	}
	h.withSession(w, r, http.StatusOK, func(s *service.EditorSession) (any, error) {
		if err := s.SetZoom(r.Context(), int(zoom)); err != nil {
			return nil, err
		}
		return s.Editor(), nil
	})
}

package service

import (
	"context"
	"fmt"
	"strconv"

	"reports/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Editor Preference Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the view mode and zoom of each report between
// sessions, as key/value rows in app_settings.

// EditorPrefsService persists per-report editor preferences.
type EditorPrefsService struct {
	store domain.SettingsStore
}

func NewEditorPrefsService(store domain.SettingsStore) *EditorPrefsService {
	return &EditorPrefsService{store: store}
}

func viewModeKey(reportID string) string { return "editor." + reportID + ".view_mode" }
func zoomKey(reportID string) string     { return "editor." + reportID + ".zoom" }

// Load returns the saved preferences for reportID, or defaults for anything
// missing or unreadable.
func (s *EditorPrefsService) Load(ctx context.Context, reportID string) domain.EditorPrefs {
	prefs := domain.EditorPrefs{ViewMode: domain.ViewEdit, Zoom: domain.DefaultZoom}
	if s == nil || s.store == nil {
		return prefs
	}
	if v, ok, err := s.store.GetSetting(ctx, viewModeKey(reportID)); err == nil && ok {
		if mode := domain.ViewMode(v); mode.Valid() {
			prefs.ViewMode = mode
		}
	}
	if v, ok, err := s.store.GetSetting(ctx, zoomKey(reportID)); err == nil && ok {
		if z, err := strconv.Atoi(v); err == nil && z >= domain.MinZoom && z <= domain.MaxZoom {
			prefs.Zoom = z
		}
	}
	return prefs
}

// Save persists prefs for reportID.
func (s *EditorPrefsService) Save(ctx context.Context, reportID string, prefs domain.EditorPrefs) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("editor prefs: no store")
	}
	if err := s.store.SetSetting(ctx, viewModeKey(reportID), string(prefs.ViewMode)); err != nil {
		return fmt.Errorf("save view mode: %w", err)
	}
	if err := s.store.SetSetting(ctx, zoomKey(reportID), strconv.Itoa(prefs.Zoom)); err != nil {
		return fmt.Errorf("save zoom: %w", err)
	}
	return nil
}

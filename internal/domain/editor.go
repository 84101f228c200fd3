package domain

type ViewMode string

const (
	ViewEdit    ViewMode = "edit"
	ViewPreview ViewMode = "preview"
	ViewOutline ViewMode = "outline"
)

func (m ViewMode) Valid() bool {
	switch m {
	case ViewEdit, ViewPreview, ViewOutline:
		return true
	}
	return false
}

// Zoom bounds, in percent.
const (
	MinZoom     = 50
	MaxZoom     = 200
	DefaultZoom = 100
)

// EditorState is what renderers need besides the tree itself.
// The mutation functions never read it.
type EditorState struct {
	SelectedSectionID string   `json:"selectedSectionId,omitempty"`
	SelectedBlockID   string   `json:"selectedBlockId,omitempty"`
	EditingBlockID    string   `json:"editingBlockId,omitempty"`
	ViewMode          ViewMode `json:"viewMode"`
	Zoom              int      `json:"zoom"`
}

func DefaultEditorState() EditorState {
	return EditorState{ViewMode: ViewEdit, Zoom: DefaultZoom}
}

// EditorPrefs is the part of EditorState persisted across sessions.
type EditorPrefs struct {
	ViewMode ViewMode `json:"viewMode"`
	Zoom     int      `json:"zoom"`
}

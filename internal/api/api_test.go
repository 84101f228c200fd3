package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/api"
	"reports/internal/domain"
	"reports/internal/service"
	"reports/internal/storage"
)

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func newClient(t *testing.T) *client {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{
		Driver: storage.DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "reports.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reports := service.NewReportService(storage.NewReportStore(db), service.ReportServiceConfig{
		Prefs:   service.NewEditorPrefsService(storage.NewSettingsStore(db)),
		Clock:   clockwork.NewFakeClock(),
		Emitter: &service.MockEmitter{},
		Log:     zerolog.New(zerolog.NewTestWriter(t)),
	})
	t.Cleanup(func() { reports.CloseAll(context.Background()) })

	router := api.ConfigureRouter(zerolog.New(zerolog.NewTestWriter(t)), api.Dependencies{Reports: reports})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &client{t: t, srv: srv}
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rd)
	require.NoError(c.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func (c *client) expect(status int, method, path string, body any) []byte {
	c.t.Helper()
	resp, data := c.do(method, path, body)
	require.Equal(c.t, status, resp.StatusCode, "%s %s: %s", method, path, data)
	return data
}

type created struct {
	ID    string               `json:"id"`
	State service.SessionState `json:"state"`
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestAPI_Health(t *testing.T) {
	c := newClient(t)
	c.expect(http.StatusOK, http.MethodGet, "/health", nil)
}

func TestAPI_ReportLifecycle(t *testing.T) {
	c := newClient(t)

	rep := decode[domain.Report](t, c.expect(http.StatusCreated, http.MethodPost, "/api/v1/reports", map[string]string{"title": "Q3"}))
	base := "/api/v1/reports/" + rep.ID

	list := decode[[]domain.ReportSummary](t, c.expect(http.StatusOK, http.MethodGet, "/api/v1/reports", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Q3", list[0].Title)

	sec := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections", map[string]any{"title": "Summary"}))
	require.Len(t, sec.State.Tree.Sections, 1)
	assert.True(t, sec.State.Dirty)

	blk := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections/"+sec.ID+"/blocks",
		map[string]any{"type": "kpi"}))
	blockPath := base + "/sections/" + sec.ID + "/blocks/" + blk.ID

	state := decode[service.SessionState](t, c.expect(http.StatusOK, http.MethodPatch, blockPath, map[string]any{"value": 42, "label": "ARR"}))
	kpi := state.Tree.Sections[0].Blocks[0].Payload.(domain.KPIPayload)
	assert.Equal(t, 42.0, kpi.Value)
	assert.Equal(t, "ARR", kpi.Label)

	state = decode[service.SessionState](t, c.expect(http.StatusOK, http.MethodPost, base+"/undo", nil))
	assert.Equal(t, 0.0, state.Tree.Sections[0].Blocks[0].Payload.(domain.KPIPayload).Value)
	assert.True(t, state.CanRedo)
	c.expect(http.StatusOK, http.MethodPost, base+"/redo", nil)

	state = decode[service.SessionState](t, c.expect(http.StatusOK, http.MethodPost, base+"/save", nil))
	assert.False(t, state.Dirty)
	require.NotNil(t, state.LastSavedAt)

	c.expect(http.StatusCreated, http.MethodPost, base+"/versions", map[string]string{"label": "Board draft"})
	versions := decode[[]domain.Version](t, c.expect(http.StatusOK, http.MethodGet, base+"/versions", nil))
	require.Len(t, versions, 2)
	assert.Equal(t, "Board draft", versions[1].Label)

	resp, data := c.do(http.MethodGet, base+"/export?format=md", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, string(data), "# Summary")
	assert.Contains(t, string(data), "ARR: 42")

	c.expect(http.StatusNoContent, http.MethodDelete, base, nil)
	c.expect(http.StatusNotFound, http.MethodGet, base, nil)
}

func TestAPI_ErrorMapping(t *testing.T) {
	c := newClient(t)
	rep := decode[domain.Report](t, c.expect(http.StatusCreated, http.MethodPost, "/api/v1/reports", map[string]string{"title": "Errors"}))
	base := "/api/v1/reports/" + rep.ID

	sec := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections", map[string]any{"title": "Locked"}))
	blk := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections/"+sec.ID+"/blocks", map[string]any{"type": "paragraph"}))
	blockPath := base + "/sections/" + sec.ID + "/blocks/" + blk.ID

	c.expect(http.StatusUnprocessableEntity, http.MethodPatch, blockPath, map[string]any{"colour": "red"})
	c.expect(http.StatusUnprocessableEntity, http.MethodPost, base+"/sections/"+sec.ID+"/blocks", map[string]any{"type": "video"})
	c.expect(http.StatusBadRequest, http.MethodPost, base+"/sections", map[string]any{"title": "Deep", "level": 9})
	c.expect(http.StatusBadRequest, http.MethodPut, base+"/editor/zoom", map[string]any{"zoom": 500})
	c.expect(http.StatusBadRequest, http.MethodPut, base+"/editor/view-mode", map[string]any{"mode": "fullscreen"})
	c.expect(http.StatusBadRequest, http.MethodPost, base+"/sections", `{"title":`)
	c.expect(http.StatusNotFound, http.MethodDelete, base+"/sections/nope", nil)
	c.expect(http.StatusNotFound, http.MethodGet, "/api/v1/reports/missing", nil)

	c.expect(http.StatusOK, http.MethodPost, base+"/sections/"+sec.ID+"/lock", nil)
	body := c.expect(http.StatusLocked, http.MethodPatch, blockPath, map[string]any{"content": "x"})
	assert.Contains(t, string(body), `"code":"locked"`)
	c.expect(http.StatusLocked, http.MethodDelete, base+"/sections/"+sec.ID, nil)
}

func TestAPI_ReplaceBlockAndEditor(t *testing.T) {
	c := newClient(t)
	rep := decode[domain.Report](t, c.expect(http.StatusCreated, http.MethodPost, "/api/v1/reports", map[string]string{"title": "Editor"}))
	base := "/api/v1/reports/" + rep.ID

	sec := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections", map[string]any{"title": "Body"}))
	blk := decode[created](t, c.expect(http.StatusCreated, http.MethodPost, base+"/sections/"+sec.ID+"/blocks", map[string]any{"type": "quote"}))
	blockPath := base + "/sections/" + sec.ID + "/blocks/" + blk.ID

	state := decode[service.SessionState](t, c.expect(http.StatusOK, http.MethodPut, blockPath,
		map[string]any{"type": "quote", "content": "Ship it", "author": "Ops"}))
	assert.Equal(t, domain.QuotePayload{Content: "Ship it", Author: "Ops"}, state.Tree.Sections[0].Blocks[0].Payload)

	c.expect(http.StatusUnprocessableEntity, http.MethodPut, blockPath, map[string]any{"type": "divider", "style": "solid"})

	editor := decode[domain.EditorState](t, c.expect(http.StatusOK, http.MethodPut, base+"/editor/selection",
		map[string]string{"sectionId": sec.ID, "blockId": blk.ID}))
	assert.Equal(t, blk.ID, editor.SelectedBlockID)

	editor = decode[domain.EditorState](t, c.expect(http.StatusOK, http.MethodPut, base+"/editor/zoom", map[string]any{"zoom": 150}))
	assert.Equal(t, 150, editor.Zoom)

	c.expect(http.StatusOK, http.MethodDelete, blockPath, nil)
	editor = decode[domain.EditorState](t, c.expect(http.StatusOK, http.MethodGet, base+"/editor", nil))
	assert.Empty(t, editor.SelectedBlockID, "selection follows deletion")
}

func TestAPI_ImportMarkdown(t *testing.T) {
	c := newClient(t)
	rep := decode[domain.Report](t, c.expect(http.StatusCreated, http.MethodPost, "/api/v1/reports/import",
		"# Plan\n\nShip the thing.\n\n## Risks\n\n- Time\n"))
	assert.Equal(t, "Plan", rep.Title)

	state := decode[service.SessionState](t, c.expect(http.StatusOK, http.MethodGet, "/api/v1/reports/"+rep.ID, nil))
	require.Len(t, state.Tree.Sections, 1)
	assert.Equal(t, "Risks", state.Tree.Sections[0].Children[0].Title)
	assert.False(t, state.Dirty)
}

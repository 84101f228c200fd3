package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
	"reports/internal/plugins"
	"reports/internal/service"
	"reports/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{
		Driver: storage.DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "reports.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, opts ...ApprovalOption) *Server {
	t.Helper()
	db := openTestDB(t)
	log := zerolog.New(zerolog.NewTestWriter(t))

	registry := service.NewPluginRegistry()
	registry.Register(plugins.NewChartPalettePlugin([]string{"#112233", "#445566"}, log))

	reports := service.NewReportService(storage.NewReportStore(db), service.ReportServiceConfig{
		Prefs:   service.NewEditorPrefsService(storage.NewSettingsStore(db)),
		Plugins: registry,
		Clock:   clockwork.NewFakeClock(),
		Emitter: &service.MockEmitter{},
		Log:     log,
	})
	t.Cleanup(func() { reports.CloseAll(context.Background()) })

	return New(context.Background(), Deps{Reports: reports, Log: log, Approval: opts})
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &v))
	return v
}

type created struct {
	ID    string               `json:"id"`
	State service.SessionState `json:"state"`
}

// seedReport creates an active report with one section and returns the section id.
func seedReport(t *testing.T, s *Server) string {
	t.Helper()
	ctx := context.Background()
	_, err := s.handleCreateReport(ctx, call("create_report", map[string]any{"title": "Quarterly"}))
	require.NoError(t, err)
	res, err := s.handleAddSection(ctx, call("add_section", map[string]any{"title": "Summary"}))
	require.NoError(t, err)
	return decodeResult[created](t, res).ID
}

func TestTools_EditReportThroughActiveReport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	sectionID := seedReport(t, s)

	res, err := s.handleAddBlock(ctx, call("add_block", map[string]any{"sectionId": sectionID, "type": "paragraph"}))
	require.NoError(t, err)
	blockID := decodeResult[created](t, res).ID

	// sectionId is looked up from the block when omitted.
	res, err = s.handleUpdateBlock(ctx, call("update_block", map[string]any{
		"blockId": blockID,
		"patch":   map[string]any{"content": "Revenue grew 12%."},
	}))
	require.NoError(t, err)
	state := decodeResult[service.SessionState](t, res)
	assert.Equal(t, domain.ParagraphPayload{Content: "Revenue grew 12%."}, state.Tree.Sections[0].Blocks[0].Payload)
	assert.True(t, state.Dirty)

	res, err = s.handleUpdateSection(ctx, call("update_section", map[string]any{
		"sectionId": sectionID,
		"patch":     `{"title":"Executive summary","status":"edited"}`,
	}))
	require.NoError(t, err)
	state = decodeResult[service.SessionState](t, res)
	assert.Equal(t, "Executive summary", state.Tree.Sections[0].Title)
	assert.Equal(t, domain.StatusEdited, state.Tree.Sections[0].Status)

	res, err = s.handleUndo(ctx, call("undo", nil))
	require.NoError(t, err)
	state = decodeResult[service.SessionState](t, res)
	assert.Equal(t, "Summary", state.Tree.Sections[0].Title)

	res, err = s.handleHistory(ctx, call("get_history", nil))
	require.NoError(t, err)
	assert.Len(t, decodeResult[[]string](t, res), 3)

	res, err = s.handleExportReport(ctx, call("export_report", map[string]any{"format": "markdown"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Revenue grew 12%.")
}

func TestTools_TypedErrorsSurface(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	sectionID := seedReport(t, s)

	_, err := s.handleAddBlock(ctx, call("add_block", map[string]any{"sectionId": sectionID, "type": "video"}))
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = s.handleGetBlock(ctx, call("get_block", map[string]any{"blockId": "missing"}))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.handleToggleLock(ctx, call("toggle_section_lock", map[string]any{"sectionId": sectionID}))
	require.NoError(t, err)
	_, err = s.handleAddBlock(ctx, call("add_block", map[string]any{"sectionId": sectionID, "type": "kpi"}))
	assert.ErrorIs(t, err, domain.ErrLocked)

	_, err = s.handleUpdateSection(ctx, call("update_section", map[string]any{
		"sectionId": sectionID,
		"patch":     map[string]any{"colour": "red"},
	}))
	assert.Error(t, err, "unknown patch fields are rejected")
}

func TestTools_NoActiveReport(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleGetReport(context.Background(), call("get_report", nil))
	assert.ErrorContains(t, err, "no active report")
}

func TestTools_CreateChartUsesPalette(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	sectionID := seedReport(t, s)

	res, err := s.handleCreateChart(ctx, call("create_chart", map[string]any{
		"sectionId": sectionID,
		"chartType": "line",
		"title":     "Revenue",
		"labels":    []any{"Q1", "Q2", "Q3"},
		"series":    []any{map[string]any{"name": "EU", "values": []any{1.0, 2.0, 3.0}}},
	}))
	require.NoError(t, err)
	out := decodeResult[created](t, res)
	chart := out.State.Tree.Sections[0].Blocks[0].Payload.(domain.ChartPayload)
	assert.Equal(t, domain.ChartLine, chart.ChartType)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, chart.Data.Labels)
	assert.Equal(t, []string{"#112233", "#445566"}, chart.Config.Colors)

	_, err = s.handleCreateChart(ctx, call("create_chart", map[string]any{
		"sectionId": sectionID,
		"chartType": "bar",
		"labels":    []any{"Q1"},
		"series":    []any{map[string]any{"name": "EU", "values": []any{1.0, 2.0}}},
	}))
	assert.ErrorIs(t, err, domain.ErrBounds)

	res, err = s.handleCreateKPI(ctx, call("create_kpi", map[string]any{
		"sectionId": sectionID, "label": "ARR", "value": 4.2, "unit": "M", "trend": "up", "target": 5.0,
	}))
	require.NoError(t, err)
	out = decodeResult[created](t, res)
	kpi := out.State.Tree.Sections[0].Blocks[1].Payload.(domain.KPIPayload)
	assert.Equal(t, 4.2, kpi.Value)
	require.NotNil(t, kpi.TargetValue)
	assert.Equal(t, 5.0, *kpi.TargetValue)
}

func TestTools_CreateTable(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	sectionID := seedReport(t, s)

	res, err := s.handleCreateTable(ctx, call("create_table", map[string]any{
		"sectionId": sectionID,
		"csv":       "region,revenue\nEU,120\nUS,200\n",
		"caption":   "Revenue by region",
	}))
	require.NoError(t, err)
	out := decodeResult[created](t, res)
	table := out.State.Tree.Sections[0].Blocks[0].Payload.(domain.TablePayload)
	assert.Equal(t, []string{"region", "revenue"}, table.Headers)
	assert.Equal(t, [][]string{{"EU", "120"}, {"US", "200"}}, table.Rows)
	assert.Equal(t, "Revenue by region", table.Caption)

	res, err = s.handleCreateTable(ctx, call("create_table", map[string]any{
		"sectionId": sectionID,
		"json":      `[{"name":"ARR","value":4.2}]`,
		"index":     0,
	}))
	require.NoError(t, err)
	out = decodeResult[created](t, res)
	assert.Equal(t, out.ID, out.State.Tree.Sections[0].Blocks[0].ID)

	_, err = s.handleCreateTable(ctx, call("create_table", map[string]any{"sectionId": sectionID}))
	assert.ErrorContains(t, err, "csv or json is required")
}

func TestTools_ImportMarkdown(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	res, err := s.handleImportMarkdown(ctx, call("import_markdown", map[string]any{
		"markdown": "# Plan\n\nShip it.\n\n## Risks\n\n- Time\n",
	}))
	require.NoError(t, err)
	out := decodeResult[map[string]any](t, res)
	assert.Equal(t, "Plan", out["title"])
	reportID := out["id"].(string)

	_, err = s.handleImportMarkdown(ctx, call("import_markdown", map[string]any{
		"markdown": "# Appendix\n\nNumbers.\n",
		"reportId": reportID,
	}))
	require.NoError(t, err)

	res, err = s.handleGetReport(ctx, call("get_report", nil))
	require.NoError(t, err)
	state := decodeResult[service.SessionState](t, res)
	require.Len(t, state.Tree.Sections, 2)
	assert.Equal(t, "Appendix", state.Tree.Sections[1].Title)
	assert.Equal(t, domain.StatusGenerated, state.Tree.Sections[1].Status)
}

func TestTools_DestructiveNeedsApproval(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	sectionID := seedReport(t, s)

	type outcome struct {
		res *mcp.CallToolResult
		err error
	}
	run := func() <-chan outcome {
		done := make(chan outcome, 1)
		go func() {
			res, err := s.handleDeleteSection(ctx, call("delete_section", map[string]any{"sectionId": sectionID}))
			done <- outcome{res, err}
		}()
		return done
	}
	waitPending := func() domain.PendingAction {
		var pending []domain.PendingAction
		require.Eventually(t, func() bool {
			pending, _ = s.Approvals().Pending(ctx)
			return len(pending) == 1
		}, 2*time.Second, 5*time.Millisecond)
		return pending[0]
	}

	done := run()
	action := waitPending()
	assert.Equal(t, "delete_section", action.Tool)
	assert.Equal(t, `Delete section "Summary" with 0 blocks and 0 subsections`, action.Description)
	assert.Contains(t, action.Metadata, sectionID)
	require.NoError(t, s.Approvals().Reject(ctx, action.ID))
	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "Action rejected by user", resultText(t, got.res))

	res, err := s.handleGetReport(ctx, call("get_report", nil))
	require.NoError(t, err)
	assert.Len(t, decodeResult[service.SessionState](t, res).Tree.Sections, 1)

	done = run()
	require.NoError(t, s.Approvals().Approve(ctx, waitPending().ID))
	got = <-done
	require.NoError(t, got.err)
	assert.Empty(t, decodeResult[service.SessionState](t, got.res).Tree.Sections)
}

func TestTools_AutoApprove(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, WithAutoApprove(true))
	sectionID := seedReport(t, s)

	res, err := s.handleDeleteSection(ctx, call("delete_section", map[string]any{"sectionId": sectionID}))
	require.NoError(t, err)
	assert.Empty(t, decodeResult[service.SessionState](t, res).Tree.Sections)
}

func TestTools_VersionsAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, WithAutoApprove(true))
	seedReport(t, s)

	res, err := s.handleSaveVersion(ctx, call("save_version", map[string]any{"label": "Draft"}))
	require.NoError(t, err)
	versionID := decodeResult[map[string]any](t, res)["id"].(string)

	_, err = s.handleAddSection(ctx, call("add_section", map[string]any{"title": "Extra"}))
	require.NoError(t, err)

	res, err = s.handleListVersions(ctx, call("list_versions", nil))
	require.NoError(t, err)
	versions := decodeResult[[]versionSummary](t, res)
	require.Len(t, versions, 1)
	assert.Equal(t, "Draft", versions[0].Label)

	res, err = s.handleRestoreVersion(ctx, call("restore_version", map[string]any{"versionId": versionID}))
	require.NoError(t, err)
	state := decodeResult[service.SessionState](t, res)
	require.Len(t, state.Tree.Sections, 1)
	assert.True(t, state.CanUndo, "restore is undoable")
}

func TestReportIDFromURI(t *testing.T) {
	assert.Equal(t, "abc-123", reportIDFromURI("reports://report/abc-123"))
	assert.Equal(t, "abc-123", reportIDFromURI("reports://report/abc-123/markdown"))
	assert.Equal(t, "", reportIDFromURI("notes://page/abc/blocks"))
}

func TestResources_ReportMarkdown(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	seedReport(t, s)
	s.mu.Lock()
	id := s.activeReportID
	s.mu.Unlock()

	var req mcp.ReadResourceRequest
	req.Params.URI = reportURIPrefix + id + markdownURISuffix
	contents, err := s.handleReportMarkdownResource(ctx, req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, "text/markdown", text.MIMEType)
	assert.Contains(t, text.Text, "# Summary")
}

func TestServer_RegistersToolsAndPluginTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	tools := s.MCP().ListTools()
	for _, name := range []string{
		"create_report", "add_section", "add_block", "update_block", "move_block",
		"undo", "redo", "save_version", "restore_version", "import_markdown",
		"create_chart", "create_table", "chart_palette", "set_chart_palette",
	} {
		assert.Contains(t, tools, name)
	}
	assert.True(t, *tools["delete_section"].Tool.Annotations.DestructiveHint)
	assert.Equal(t, []string{"colors"}, tools["set_chart_palette"].Tool.InputSchema.Required)

	res, err := tools["set_chart_palette"].Handler(ctx, call("set_chart_palette", map[string]any{
		"colors": []any{"#000000"},
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "#000000")

	sectionID := seedReport(t, s)
	res, err = s.handleCreateChart(ctx, call("create_chart", map[string]any{
		"sectionId": sectionID,
		"chartType": "pie",
		"labels":    []any{"A"},
		"series":    []any{map[string]any{"name": "S", "values": []any{1.0}}},
	}))
	require.NoError(t, err)
	chart := decodeResult[created](t, res).State.Tree.Sections[0].Blocks[0].Payload.(domain.ChartPayload)
	assert.Equal(t, []string{"#000000"}, chart.Config.Colors)
}

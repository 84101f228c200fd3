package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	reportArg := mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)"))

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the report"),
		reportArg,
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		reportArg,
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the labels of the undoable changes, oldest first"),
		reportArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleHistory)

	s.mcp.AddTool(mcp.NewTool("save_report",
		mcp.WithDescription("Save the report now. Every save also records an unlabeled version."),
		reportArg,
	), s.handleSaveReport)

	s.mcp.AddTool(mcp.NewTool("save_version",
		mcp.WithDescription("Save the report and tag the resulting version with a label. Labeled versions are never pruned."),
		reportArg,
		mcp.WithString("label", mcp.Description("Version label, e.g. \"Board draft\""), mcp.Required()),
	), s.handleSaveVersion)

	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List saved versions of the report, oldest first"),
		reportArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListVersions)

	// ── restore_version (destructive) ──────────────────
	s.mcp.AddTool(mcp.NewTool("restore_version",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the report content with a saved version. The restore can be undone. Requires user approval."),
		reportArg,
		mcp.WithString("versionId", mcp.Description("Version ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreVersion)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	ok, err := sess.Undo(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return textResult("Nothing to undo"), nil
	}
	return stateResult(sess)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	ok, err := sess.Redo(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return textResult("Nothing to redo"), nil
	}
	return stateResult(sess)
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(sess.History())
}

func (s *Server) handleSaveReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := sess.Save(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Report %s saved", sess.ReportID())), nil
}

func (s *Server) handleSaveVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	label, err := req.RequireString("label")
	if err != nil {
		return nil, err
	}
	v, err := sess.SaveVersion(ctx, label)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"id": v.ID, "label": v.Label, "createdAt": v.CreatedAt})
}

type versionSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	CreatedAt string `json:"createdAt"`
	Sections  int    `json:"sections"`
}

func (s *Server) handleListVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	versions, err := sess.ListVersions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]versionSummary, len(versions))
	for i, v := range versions {
		out[i] = versionSummary{
			ID:        v.ID,
			Label:     v.Label,
			CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
			Sections:  len(v.Tree.Sections),
		}
	}
	return jsonResult(out)
}

func (s *Server) handleRestoreVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	versionID, err := req.RequireString("versionId")
	if err != nil {
		return nil, err
	}
	if res := s.approve(ctx, "restore_version",
		fmt.Sprintf("Replace the content of report %s with version %s", sess.ReportID(), versionID),
		map[string]string{"reportId": sess.ReportID(), "versionId": versionID}); res != nil {
		return res, nil
	}
	if err := sess.RestoreVersion(ctx, versionID); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

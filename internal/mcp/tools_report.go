package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerReportTools() {
	// ── list_reports ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List all reports, most recently updated first"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListReports)

	// ── create_report ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_report",
		mcp.WithDescription("Create a new empty report and make it the active report"),
		mcp.WithString("title", mcp.Description("Report title"), mcp.Required()),
	), s.handleCreateReport)

	// ── set_active_report ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_report",
		mcp.WithDescription("Set the active report for subsequent tool calls. Tools that accept reportId will default to this."),
		mcp.WithString("reportId", mcp.Description("ID of the report to make active"), mcp.Required()),
	), s.handleSetActiveReport)

	// ── get_report ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Get the full state of a report: content tree, selection, dirty flag and undo/redo availability"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetReport)

	// ── rename_report ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_report",
		mcp.WithDescription("Change a report's title"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleRenameReport)

	// ── delete_report (destructive) ────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_report",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a report and all its versions. Requires user approval."),
		mcp.WithString("reportId", mcp.Description("Report ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteReport)
}

func (s *Server) handleListReports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.reports.List(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(list)
}

func (s *Server) handleCreateReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	rep, err := s.reports.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	// Auto-set as active report
	s.setActiveReport(rep.ID)
	return jsonResult(rep)
}

func (s *Server) handleSetActiveReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("reportId")
	if err != nil {
		return nil, err
	}
	if _, err := s.reports.Open(ctx, id); err != nil {
		return nil, err
	}
	s.setActiveReport(id)
	return textResult(fmt.Sprintf("Active report set to %s", id)), nil
}

func (s *Server) handleGetReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleRenameReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveReportID(req)
	if err != nil {
		return nil, err
	}
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	if err := s.reports.Rename(ctx, id, title); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Report %s renamed to %q", id, title)), nil
}

func (s *Server) handleDeleteReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("reportId")
	if err != nil {
		return nil, err
	}
	if res := s.approve(ctx, "delete_report", fmt.Sprintf("Delete report %s and all of its versions", id),
		map[string]string{"reportId": id}); res != nil {
		return res, nil
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.activeReportID == id {
		s.activeReportID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Report %s deleted", id)), nil
}

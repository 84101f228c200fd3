package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/importer"
)

func (s *Server) registerMarkdownTools() {
	s.mcp.AddTool(mcp.NewTool("import_markdown",
		mcp.WithDescription("Turn a markdown document into report sections. Headings become sections, everything else becomes blocks. "+
			"Creates a new report unless reportId is given, in which case the sections are appended to that report."),
		mcp.WithString("markdown", mcp.Description("Markdown source"), mcp.Required()),
		mcp.WithString("reportId", mcp.Description("Existing report to append to (optional)")),
		mcp.WithString("title", mcp.Description("Title for a new report (optional, defaults to the first level-1 heading)")),
		mcp.WithString("status", mcp.Description("Status label for the imported sections (default generated)"),
			mcp.Enum(string(domain.StatusGenerated), string(domain.StatusEdited), string(domain.StatusManual))),
	), s.handleImportMarkdown)

	s.mcp.AddTool(mcp.NewTool("export_report",
		mcp.WithDescription("Render the report as markdown or HTML"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("format", mcp.Description("Output format"), mcp.Enum("markdown", "html"), mcp.DefaultString("markdown")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleExportReport)
}

func (s *Server) handleImportMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("markdown")
	if err != nil {
		return nil, err
	}
	status := domain.SectionStatus(req.GetString("status", string(domain.StatusGenerated)))
	res, err := importer.Markdown([]byte(src), importer.Options{Status: status})
	if err != nil {
		return nil, fmt.Errorf("import markdown: %w", err)
	}

	if reportID := req.GetString("reportId", ""); reportID != "" {
		sess, err := s.reports.Open(ctx, reportID)
		if err != nil {
			return nil, err
		}
		if err := sess.ImportSections(ctx, res.Tree.Sections); err != nil {
			return nil, err
		}
		return textResult(fmt.Sprintf("Appended %d sections to report %s", len(res.Tree.Sections), reportID)), nil
	}

	title := req.GetString("title", res.Title)
	rep, err := s.reports.CreateFromTree(ctx, title, res.Tree)
	if err != nil {
		return nil, err
	}
	s.setActiveReport(rep.ID)
	return jsonResult(map[string]any{"id": rep.ID, "title": rep.Title, "sections": len(rep.Tree.Sections)})
}

func (s *Server) handleExportReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(req.GetString("format", "markdown"))
	if err != nil {
		return nil, err
	}
	if format == export.FormatDOCX {
		return nil, fmt.Errorf("docx is a binary format, use the HTTP export endpoint")
	}
	var b strings.Builder
	if err := s.exporter.Export(&b, sess.Title(), sess.Tree(), format); err != nil {
		return nil, err
	}
	return textResult(b.String()), nil
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/content"
	"reports/internal/domain"
)

func (s *Server) registerSectionTools() {
	statuses := []string{
		string(domain.StatusGenerated),
		string(domain.StatusManual),
		string(domain.StatusEdited),
	}

	// ── add_section ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Add a section at the end of the report, or as the last child of parentId"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("title", mcp.Description("Section title"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Parent section ID (optional, adds a top-level section if omitted)")),
		mcp.WithNumber("level", mcp.Description("Heading level 1-6 (optional, defaults to one below the parent)"), mcp.Min(1), mcp.Max(6)),
		mcp.WithString("status", mcp.Description("Provenance label"), mcp.Enum(statuses...)),
		mcp.WithString("icon", mcp.Description("Icon name (optional)")),
	), s.handleAddSection)

	// ── update_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_section",
		mcp.WithDescription("Update section fields. Only the fields present in patch change: title, level, status, icon, isLocked, isCollapsed, metadata."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithObject("patch", mcp.Description("Fields to change"), mcp.Required()),
	), s.handleUpdateSection)

	// ── delete_section (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a section with its blocks and subsections. Requires user approval."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSection)

	// ── duplicate_section ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_section",
		mcp.WithDescription("Deep-copy a section right after the original, with fresh IDs"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
	), s.handleDuplicateSection)

	// ── reorder_sections ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_sections",
		mcp.WithDescription("Move a section to the position of a sibling section"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("movedId", mcp.Description("Section to move"), mcp.Required()),
		mcp.WithString("targetId", mcp.Description("Sibling whose position it takes"), mcp.Required()),
	), s.handleReorderSections)

	// ── toggle_section_lock ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("toggle_section_lock",
		mcp.WithDescription("Lock or unlock a section. Locked sections reject content edits."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
	), s.handleToggleLock)

	// ── toggle_section_collapse ────────────────────────
	s.mcp.AddTool(mcp.NewTool("toggle_section_collapse",
		mcp.WithDescription("Collapse or expand a section in the outline"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
	), s.handleToggleCollapse)
}

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	spec := content.SectionSpec{
		Title:  title,
		Level:  req.GetInt("level", 0),
		Status: domain.SectionStatus(req.GetString("status", "")),
		Icon:   req.GetString("icon", ""),
	}
	id, err := sess.AddSection(ctx, spec, req.GetString("parentId", ""))
	if err != nil {
		return nil, err
	}
	return createdResult(id, sess)
}

func (s *Server) handleUpdateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	var patch content.SectionPatch
	if ok, err := decodeArg(req, "patch", &patch); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("patch is required")
	}
	if err := sess.UpdateSection(ctx, id, patch); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleDeleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	sec, ok := content.FindSection(sess.Tree(), id)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "section", ID: id}
	}
	subtree := domain.ContentTree{Sections: []domain.Section{sec}}
	desc := fmt.Sprintf("Delete section %q with %d blocks and %d subsections",
		sec.Title, content.CountBlocks(subtree), content.CountSections(subtree)-1)
	if res := s.approve(ctx, "delete_section", desc,
		map[string]string{"reportId": sess.ReportID(), "sectionId": id}); res != nil {
		return res, nil
	}
	if err := sess.DeleteSection(ctx, id); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleDuplicateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	dup, err := sess.DuplicateSection(ctx, id)
	if err != nil {
		return nil, err
	}
	return createdResult(dup, sess)
}

func (s *Server) handleReorderSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	moved, err := req.RequireString("movedId")
	if err != nil {
		return nil, err
	}
	target, err := req.RequireString("targetId")
	if err != nil {
		return nil, err
	}
	if err := sess.ReorderSections(ctx, moved, target); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleToggleLock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	if err := sess.ToggleLock(ctx, id); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleToggleCollapse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	if err := sess.ToggleCollapse(ctx, id); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

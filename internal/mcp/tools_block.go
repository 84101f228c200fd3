package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/content"
	"reports/internal/domain"
)

func blockTypeNames() []string {
	types := domain.BlockTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func (s *Server) registerBlockTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block types with the default payload each one starts with"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListBlockTypes)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block with its default payload to a section. Use update_block afterwards to fill it in."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Block type"), mcp.Enum(blockTypeNames()...), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Insert position (optional, appends if omitted; clamped to the block count)")),
		mcp.WithObject("options", mcp.Description("Default payload options: headingLevel, listType, calloutVariant, chartType")),
	), s.handleAddBlock)

	// ── get_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get one block with its payload"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Patch payload fields of a block. Fields must belong to the block's type."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Owning section ID (optional, looked up if omitted)")),
		mcp.WithObject("patch", mcp.Description("Payload fields to change, e.g. {\"content\": \"...\"}"), mcp.Required()),
	), s.handleUpdateBlock)

	// ── replace_block ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("replace_block",
		mcp.WithDescription("Replace a block's whole payload. The block document must have the same type as the block."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Owning section ID (optional, looked up if omitted)")),
		mcp.WithObject("block", mcp.Description("Block document: type plus that type's payload fields"), mcp.Required()),
	), s.handleReplaceBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block. Requires user approval."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Owning section ID (optional, looked up if omitted)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── duplicate_block ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Copy a block right after the original"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Owning section ID (optional, looked up if omitted)")),
	), s.handleDuplicateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a position in the same or another section"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Current section ID (optional, looked up if omitted)")),
		mcp.WithString("toSectionId", mcp.Description("Destination section ID"), mcp.Required()),
		mcp.WithNumber("toIndex", mcp.Description("Destination position, clamped to the block count"), mcp.Required()),
	), s.handleMoveBlock)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type blockType struct {
		Type    domain.BlockType `json:"type"`
		Default domain.Block     `json:"default"`
	}
	var out []blockType
	for _, t := range domain.BlockTypes() {
		b, err := content.NewBlock(t, domain.BlockOptions{})
		if err != nil {
			return nil, err
		}
		out = append(out, blockType{Type: t, Default: b})
	}
	return jsonResult(out)
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	blockType, err := req.RequireString("type")
	if err != nil {
		return nil, err
	}
	var opts domain.BlockOptions
	if _, err := decodeArg(req, "options", &opts); err != nil {
		return nil, err
	}
	id, err := sess.AddBlock(ctx, sectionID, domain.BlockType(blockType), optionalInt(req, "index"), opts)
	if err != nil {
		return nil, err
	}
	return createdResult(id, sess)
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return nil, err
	}
	owner, b, ok := content.FindBlock(sess.Tree(), blockID)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "block", ID: blockID}
	}
	return jsonResult(struct {
		SectionID string       `json:"sectionId"`
		Block     domain.Block `json:"block"`
	}{owner, b})
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, blockID, err := blockTarget(sess, req)
	if err != nil {
		return nil, err
	}
	patch, ok := req.GetArguments()["patch"].(map[string]any)
	if !ok {
		// The patch may also arrive as a JSON string.
		var decoded map[string]any
		if found, err := decodeArg(req, "patch", &decoded); err != nil {
			return nil, err
		} else if !found {
			return nil, fmt.Errorf("patch is required")
		}
		patch = decoded
	}
	if err := sess.UpdateBlock(ctx, sectionID, blockID, content.BlockPatch(patch)); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleReplaceBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, blockID, err := blockTarget(sess, req)
	if err != nil {
		return nil, err
	}
	var b domain.Block
	if ok, err := decodeArg(req, "block", &b); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("block is required")
	}
	if err := sess.ReplacePayload(ctx, sectionID, blockID, b.Payload); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, blockID, err := blockTarget(sess, req)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Delete block %s from section %s", blockID, sectionID)
	if _, b, ok := content.FindBlock(sess.Tree(), blockID); ok {
		desc = fmt.Sprintf("Delete %s block %s from section %s", b.Type, blockID, sectionID)
	}
	if res := s.approve(ctx, "delete_block", desc, map[string]string{
		"reportId": sess.ReportID(), "sectionId": sectionID, "blockId": blockID,
	}); res != nil {
		return res, nil
	}
	if err := sess.DeleteBlock(ctx, sectionID, blockID); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

func (s *Server) handleDuplicateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, blockID, err := blockTarget(sess, req)
	if err != nil {
		return nil, err
	}
	id, err := sess.DuplicateBlock(ctx, sectionID, blockID)
	if err != nil {
		return nil, err
	}
	return createdResult(id, sess)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, blockID, err := blockTarget(sess, req)
	if err != nil {
		return nil, err
	}
	toSection, err := req.RequireString("toSectionId")
	if err != nil {
		return nil, err
	}
	toIndex, err := req.RequireInt("toIndex")
	if err != nil {
		return nil, err
	}
	if err := sess.MoveBlock(ctx, sectionID, blockID, toSection, toIndex); err != nil {
		return nil, err
	}
	return stateResult(sess)
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"reports/internal/content"
	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/service"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// Server is the MCP server for the report editor.
// It exposes tools, resources, and prompts so AI agents can edit reports.
type Server struct {
	mcp      *server.MCPServer
	approval *ApprovalQueue
	log      zerolog.Logger

	reports  *service.ReportService
	plugins  *service.PluginRegistry
	exporter *export.Exporter

	// Active report context (set by set_active_report)
	mu             sync.Mutex
	activeReportID string
}

// Deps holds everything the composition root passes to the MCP server.
type Deps struct {
	Emitter  service.EventEmitter
	Reports  *service.ReportService
	Exporter *export.Exporter
	Log      zerolog.Logger
	Approval []ApprovalOption
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.New()
	}
	s := &Server{
		approval: NewApprovalQueue(ctx, deps.Emitter, deps.Approval...),
		log:      deps.Log,
		reports:  deps.Reports,
		plugins:  deps.Reports.Plugins(),
		exporter: exporter,
	}

	s.mcp = server.NewMCPServer(
		"reports-mcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerReportTools()
	s.registerSectionTools()
	s.registerBlockTools()
	s.registerHistoryTools()
	s.registerMarkdownTools()
	s.registerChartTools()
	s.registerResources()
	s.registerPrompts()

	// Plugin-extensible tools (auto-discovered)
	s.registerPluginTools()

	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Approvals returns the queue destructive tools wait on.
func (s *Server) Approvals() *ApprovalQueue { return s.approval }

// ServeStdio serves MCP over in and out until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info().Msg("starting MCP stdio server")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// HTTPHandler serves MCP over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) setActiveReport(id string) {
	s.mu.Lock()
	s.activeReportID = id
	s.mu.Unlock()
}

// resolveReportID returns the reportId from tool args or falls back to the active report.
func (s *Server) resolveReportID(req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("reportId", ""); id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeReportID != "" {
		return s.activeReportID, nil
	}
	return "", fmt.Errorf("no reportId provided and no active report set (use set_active_report first)")
}

// session opens the report a tool call targets.
func (s *Server) session(ctx context.Context, req mcp.CallToolRequest) (*service.EditorSession, error) {
	id, err := s.resolveReportID(req)
	if err != nil {
		return nil, err
	}
	return s.reports.Open(ctx, id)
}

// blockTarget returns the owning section and block id for a block tool.
// sectionId may be omitted, in which case the owner is looked up.
func blockTarget(sess *service.EditorSession, req mcp.CallToolRequest) (string, string, error) {
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return "", "", err
	}
	if sectionID := req.GetString("sectionId", ""); sectionID != "" {
		return sectionID, blockID, nil
	}
	owner, _, ok := content.FindBlock(sess.Tree(), blockID)
	if !ok {
		return "", "", &domain.NotFoundError{Kind: "block", ID: blockID}
	}
	return owner, blockID, nil
}

// stateResult returns the session state after a command.
func stateResult(sess *service.EditorSession) (*mcp.CallToolResult, error) {
	return jsonResult(sess.State())
}

// createdResult returns the new id together with the session state.
func createdResult(id string, sess *service.EditorSession) (*mcp.CallToolResult, error) {
	return jsonResult(struct {
		ID    string               `json:"id"`
		State service.SessionState `json:"state"`
	}{id, sess.State()})
}

// approve asks a human before a destructive tool runs. A refusal is returned
// as a tool result, not an error, so the agent sees why nothing happened.
func (s *Server) approve(ctx context.Context, tool, description string, meta map[string]string) *mcp.CallToolResult {
	data := []byte("{}")
	if meta != nil {
		data, _ = json.Marshal(meta)
	}
	approved, err := s.approval.Request(ctx, tool, description, string(data))
	if err != nil || !approved {
		s.log.Info().Str("tool", tool).Err(err).Msg("destructive action not approved")
		return textResult("Action rejected by user")
	}
	return nil
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_report",
		mcp.WithPromptDescription("Guide through drafting a structured report with sections, KPIs and a chart"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title for the report"),
			mcp.RequiredArgument(),
		),
	), s.handleDraftReportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_report",
		mcp.WithPromptDescription("Review an existing report section by section and tighten its wording"),
		mcp.WithArgument("reportId",
			mcp.ArgumentDescription("ID of the report to review"),
			mcp.RequiredArgument(),
		),
	), s.handleReviewReportPrompt)
}

func (s *Server) handleDraftReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a report about: %s", topic),
		Messages: []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(fmt.Sprintf(`Draft a report about "%s". Follow these steps:

1. Use create_report with the title "%s"
2. Add an "Executive Summary" section (add_section) with a paragraph block and two or three kpi blocks
3. Add one section per main finding, each with a paragraph and, where numbers are involved, a chart or table block
4. Fill every block with update_block; leave no default placeholders
5. Finish with a "Next Steps" section holding a checklist list block
6. Call save_version with the label "First draft"

Mark generated sections with status "generated" so a reviewer can tell them apart.`, topic, topic))),
		},
	}, nil
}

func (s *Server) handleReviewReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	reportID := req.Params.Arguments["reportId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review report %s", reportID),
		Messages: []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(fmt.Sprintf(`Review report %s. Follow these steps:

1. Use set_active_report, then read it with get_report or the reports://report/%s/markdown resource
2. Skip locked sections; they are final
3. For each other section, tighten paragraph wording with update_block and check that KPI values, units and trends agree with the text
4. Set the status of every section you changed to "edited" with update_section
5. Call save_version with the label "Reviewed"

Do not delete content. If something should go, say so in your reply instead.`, reportID, reportID))),
		},
	}, nil
}

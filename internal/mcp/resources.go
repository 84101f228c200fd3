package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/export"
)

const (
	reportsURI        = "reports://reports"
	reportURIPrefix   = "reports://report/"
	markdownURISuffix = "/markdown"
)

func (s *Server) registerResources() {
	// ── reports://reports ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		reportsURI,
		"All Reports",
		mcp.WithMIMEType("application/json"),
	), s.handleReportsResource)

	// ── reports://report/{reportId} ────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			reportURIPrefix+"{reportId}",
			"Report State",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReportResource,
	)

	// ── reports://report/{reportId}/markdown ───────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			reportURIPrefix+"{reportId}"+markdownURISuffix,
			"Report as Markdown",
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReportMarkdownResource,
	)
}

func (s *Server) handleReportsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := s.reports.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      reportsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReportResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := reportIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract reportId from URI: %s", uri)
	}
	sess, err := s.reports.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(sess.State(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) handleReportMarkdownResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := reportIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract reportId from URI: %s", uri)
	}
	sess, err := s.reports.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/markdown", Text: export.Markdown(sess.Title(), sess.Tree())},
	}, nil
}

// reportIDFromURI extracts the id from "reports://report/{id}" and
// "reports://report/{id}/markdown".
func reportIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, reportURIPrefix)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

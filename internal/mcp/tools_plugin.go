package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/service"
)

// registerPluginTools iterates all registered block plugins and registers
// the MCP tools of those that implement MCPCapablePlugin.
func (s *Server) registerPluginTools() {
	if s.plugins == nil {
		return
	}

	s.plugins.ForEach(func(p service.BlockPlugin) {
		mcpPlugin, ok := p.(service.MCPCapablePlugin)
		if !ok {
			return
		}
		for _, def := range mcpPlugin.MCPTools() {
			s.mcp.AddTool(pluginTool(def), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				if def.Destructive {
					if res := s.approve(ctx, def.Name, def.Description, nil); res != nil {
						return res, nil
					}
				}
				result, err := def.Handler(ctx, req.GetArguments())
				if err != nil {
					return nil, fmt.Errorf("%s: %w", def.Name, err)
				}
				return jsonResult(result)
			})
		}
	})
}

func pluginTool(def service.MCPToolDef) mcp.Tool {
	desc := def.Description
	opts := []mcp.ToolOption{}
	if def.Destructive {
		desc = "🛑 DESTRUCTIVE: " + desc
		opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}))
	}
	opts = append(opts, mcp.WithDescription(desc))
	tool := mcp.NewTool(def.Name, opts...)
	if props, ok := def.InputSchema["properties"].(map[string]any); ok {
		tool.InputSchema.Properties = props
	}
	if required, ok := def.InputSchema["required"].([]string); ok {
		tool.InputSchema.Required = required
	}
	return tool
}

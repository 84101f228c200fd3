package plugins

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"reports/internal/domain"
	"reports/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Chart Palette Plugin
// ─────────────────────────────────────────────────────────────

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ChartPalettePlugin seeds new chart blocks with the configured color
// palette and lets agents inspect or change it over MCP.
type ChartPalettePlugin struct {
	mu      sync.RWMutex
	palette []string
	log     zerolog.Logger
}

var _ service.MCPCapablePlugin = (*ChartPalettePlugin)(nil)

// NewChartPalettePlugin creates the chart plugin. Invalid colors are
// dropped with a warning.
func NewChartPalettePlugin(palette []string, log zerolog.Logger) *ChartPalettePlugin {
	p := &ChartPalettePlugin{log: log}
	if err := p.SetPalette(palette); err != nil {
		log.Warn().Err(err).Msg("chart palette rejected, charts start without colors")
	}
	return p
}

func (p *ChartPalettePlugin) BlockType() domain.BlockType { return domain.BlockTypeChart }

// Palette returns a copy of the current palette.
func (p *ChartPalettePlugin) Palette() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.palette...)
}

// SetPalette replaces the palette used for future chart blocks.
func (p *ChartPalettePlugin) SetPalette(colors []string) error {
	for _, c := range colors {
		if !hexColor.MatchString(c) {
			return fmt.Errorf("invalid color %q: want #rgb or #rrggbb", c)
		}
	}
	p.mu.Lock()
	p.palette = append([]string(nil), colors...)
	p.mu.Unlock()
	return nil
}

func (p *ChartPalettePlugin) OnCreate(_ context.Context, reportID, _ string, b domain.Block) (domain.Payload, error) {
	chart, ok := b.Payload.(domain.ChartPayload)
	if !ok {
		return nil, &domain.TypeMismatchError{BlockType: b.Type, Reason: "chart plugin received a non-chart payload"}
	}
	palette := p.Palette()
	if len(palette) == 0 || len(chart.Config.Colors) > 0 {
		return nil, nil
	}
	chart.Config.Colors = palette
	p.log.Debug().Str("report", reportID).Str("block", b.ID).Int("colors", len(palette)).Msg("seeded chart palette")
	return chart, nil
}

func (p *ChartPalettePlugin) OnDelete(context.Context, string, domain.Block) error {
	return nil
}

// MCPTools exposes the palette to agents.
func (p *ChartPalettePlugin) MCPTools() []service.MCPToolDef {
	return []service.MCPToolDef{
		{
			Name:        "chart_palette",
			Description: "Return the color palette that new chart blocks start with",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"colors": p.Palette()}, nil
			},
		},
		{
			Name:        "set_chart_palette",
			Description: "Replace the color palette used for new chart blocks. Existing charts keep their colors.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"colors": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Hex colors such as #2563eb",
					},
				},
				"required": []string{"colors"},
			},
			Handler: func(_ context.Context, params map[string]any) (any, error) {
				raw, ok := params["colors"].([]any)
				if !ok {
					return nil, fmt.Errorf("colors must be an array of strings")
				}
				colors := make([]string, 0, len(raw))
				for _, c := range raw {
					s, ok := c.(string)
					if !ok {
						return nil, fmt.Errorf("colors must be an array of strings")
					}
					colors = append(colors, s)
				}
				if err := p.SetPalette(colors); err != nil {
					return nil, err
				}
				return map[string]any{"colors": p.Palette()}, nil
			},
		},
	}
}

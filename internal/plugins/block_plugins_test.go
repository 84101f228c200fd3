package plugins

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
	"reports/internal/service"
)

func newChartBlock(t *testing.T) domain.Block {
	t.Helper()
	b, err := domain.NewDefaultBlock(domain.BlockTypeChart, domain.BlockOptions{})
	require.NoError(t, err)
	return b
}

func TestChartPalettePlugin_SeedsColors(t *testing.T) {
	p := NewChartPalettePlugin([]string{"#111111", "#222"}, zerolog.Nop())
	reg := service.NewPluginRegistry()
	reg.Register(p)

	seeded, err := reg.Seed(context.Background(), "r1", "s1", newChartBlock(t))
	require.NoError(t, err)
	chart := seeded.Payload.(domain.ChartPayload)
	assert.Equal(t, []string{"#111111", "#222"}, chart.Config.Colors)
}

func TestChartPalettePlugin_KeepsExplicitColors(t *testing.T) {
	p := NewChartPalettePlugin([]string{"#111111"}, zerolog.Nop())
	b := newChartBlock(t)
	chart := b.Payload.(domain.ChartPayload)
	chart.Config.Colors = []string{"#abcdef"}
	b.Payload = chart

	payload, err := p.OnCreate(context.Background(), "r1", "s1", b)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestChartPalettePlugin_InvalidPalette(t *testing.T) {
	p := NewChartPalettePlugin([]string{"blue"}, zerolog.Nop())
	assert.Empty(t, p.Palette())

	payload, err := p.OnCreate(context.Background(), "r1", "s1", newChartBlock(t))
	require.NoError(t, err)
	assert.Nil(t, payload, "nothing to seed without a palette")
}

func TestChartPalettePlugin_MCPTools(t *testing.T) {
	p := NewChartPalettePlugin([]string{"#111111"}, zerolog.Nop())
	tools := map[string]service.MCPToolDef{}
	for _, tool := range p.MCPTools() {
		tools[tool.Name] = tool
	}
	require.Contains(t, tools, "chart_palette")
	require.Contains(t, tools, "set_chart_palette")

	ctx := context.Background()
	_, err := tools["set_chart_palette"].Handler(ctx, map[string]any{"colors": []any{"#000", "#ffffff"}})
	require.NoError(t, err)

	got, err := tools["chart_palette"].Handler(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"colors": []string{"#000", "#ffffff"}}, got)

	_, err = tools["set_chart_palette"].Handler(ctx, map[string]any{"colors": []any{"red"}})
	assert.Error(t, err)
	_, err = tools["set_chart_palette"].Handler(ctx, map[string]any{"colors": "#000"})
	assert.Error(t, err)
	assert.Equal(t, []string{"#000", "#ffffff"}, p.Palette())
}

package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/content"
	"reports/internal/domain"
	"reports/internal/importer"
)

const chartSeriesDescription = `JSON array of series, one value per label. Each series has a "name", "values" and an optional "color" (#rrggbb).
Example: [{"name":"Revenue","values":[120,135,150]},{"name":"Cost","values":[80,82,90]}]`

func (s *Server) registerChartTools() {
	s.mcp.AddTool(mcp.NewTool("create_chart",
		mcp.WithDescription("Create a chart block with its data in one step. Series without a color take the configured palette."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("chartType", mcp.Description("Chart type"),
			mcp.Enum(string(domain.ChartBar), string(domain.ChartLine), string(domain.ChartPie), string(domain.ChartArea), string(domain.ChartDonut)),
			mcp.Required()),
		mcp.WithString("title", mcp.Description("Chart title (optional)")),
		mcp.WithArray("labels", mcp.Description("Category labels"), mcp.WithStringItems(), mcp.Required()),
		mcp.WithArray("series", mcp.Description(chartSeriesDescription), mcp.Required()),
		mcp.WithBoolean("stacked", mcp.Description("Stack the series (optional)")),
		mcp.WithString("xAxisLabel", mcp.Description("X axis label (optional)")),
		mcp.WithString("yAxisLabel", mcp.Description("Y axis label (optional)")),
		mcp.WithNumber("index", mcp.Description("Insert position (optional, appends if omitted)")),
	), s.handleCreateChart)

	s.mcp.AddTool(mcp.NewTool("create_kpi",
		mcp.WithDescription("Create a KPI block with its value in one step"),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("label", mcp.Description("What is measured"), mcp.Required()),
		mcp.WithNumber("value", mcp.Description("Current value"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Value format"),
			mcp.Enum(string(domain.KPIFormatNumber), string(domain.KPIFormatCurrency), string(domain.KPIFormatPercent))),
		mcp.WithString("unit", mcp.Description("Unit or currency code (optional)")),
		mcp.WithNumber("target", mcp.Description("Target value (optional)")),
		mcp.WithString("trend", mcp.Description("Trend (optional)"),
			mcp.Enum(string(domain.TrendUp), string(domain.TrendDown), string(domain.TrendFlat))),
		mcp.WithNumber("index", mcp.Description("Insert position (optional, appends if omitted)")),
	), s.handleCreateKPI)

	s.mcp.AddTool(mcp.NewTool("create_table",
		mcp.WithDescription("Create a table block from CSV text or a JSON array of objects. Pass exactly one of csv or json."),
		mcp.WithString("reportId", mcp.Description("Report ID (optional, defaults to active report)")),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("csv", mcp.Description("CSV text, first row is the header unless hasHeader is false")),
		mcp.WithString("delimiter", mcp.Description("CSV column delimiter (optional, default comma)")),
		mcp.WithBoolean("hasHeader", mcp.Description("Whether the first CSV row holds column names (default true)")),
		mcp.WithString("json", mcp.Description("JSON array of objects; keys become columns")),
		mcp.WithString("dataPath", mcp.Description("Dot-separated path to the array inside the JSON, e.g. data.items")),
		mcp.WithString("caption", mcp.Description("Table caption (optional)")),
		mcp.WithBoolean("striped", mcp.Description("Striped rows (optional)")),
		mcp.WithNumber("index", mcp.Description("Insert position (optional, appends if omitted)")),
	), s.handleCreateTable)
}

func (s *Server) handleCreateChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	chartType, err := req.RequireString("chartType")
	if err != nil {
		return nil, err
	}
	labels, err := req.RequireStringSlice("labels")
	if err != nil {
		return nil, err
	}
	var series []domain.ChartSeries
	if ok, err := decodeArg(req, "series", &series); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("series is required")
	}

	b, err := content.NewBlock(domain.BlockTypeChart, domain.BlockOptions{ChartType: domain.ChartType(chartType)})
	if err != nil {
		return nil, err
	}
	b, err = s.plugins.Seed(ctx, sess.ReportID(), sectionID, b)
	if err != nil {
		return nil, err
	}
	chart := b.Payload.(domain.ChartPayload)
	chart.Title = req.GetString("title", "")
	chart.Data = domain.ChartData{Labels: labels, Series: series}
	chart.Config.Stacked = req.GetBool("stacked", false)
	chart.Config.XAxisLabel = req.GetString("xAxisLabel", "")
	chart.Config.YAxisLabel = req.GetString("yAxisLabel", "")
	b.Payload = chart
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := sess.InsertBlock(ctx, sectionID, b, optionalInt(req, "index")); err != nil {
		return nil, err
	}
	return createdResult(b.ID, sess)
}

func (s *Server) handleCreateKPI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	label, err := req.RequireString("label")
	if err != nil {
		return nil, err
	}
	value, err := req.RequireFloat("value")
	if err != nil {
		return nil, err
	}

	b, err := content.NewBlock(domain.BlockTypeKPI, domain.BlockOptions{})
	if err != nil {
		return nil, err
	}
	b, err = s.plugins.Seed(ctx, sess.ReportID(), sectionID, b)
	if err != nil {
		return nil, err
	}
	kpi := b.Payload.(domain.KPIPayload)
	kpi.Label = label
	kpi.Value = value
	kpi.Unit = req.GetString("unit", "")
	kpi.Format = domain.KPIFormat(req.GetString("format", string(domain.KPIFormatNumber)))
	kpi.Trend = domain.Trend(req.GetString("trend", ""))
	if _, ok := req.GetArguments()["target"]; ok {
		target := req.GetFloat("target", 0)
		kpi.TargetValue = &target
	}
	b.Payload = kpi
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := sess.InsertBlock(ctx, sectionID, b, optionalInt(req, "index")); err != nil {
		return nil, err
	}
	return createdResult(b.ID, sess)
}

func (s *Server) handleCreateTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}

	opts := importer.TableOptions{
		NoHeader: !req.GetBool("hasHeader", true),
		DataPath: req.GetString("dataPath", ""),
		Caption:  req.GetString("caption", ""),
		Striped:  req.GetBool("striped", false),
	}
	if d := []rune(req.GetString("delimiter", "")); len(d) > 0 {
		opts.Delimiter = d[0]
	}

	var table domain.TablePayload
	csvText, jsonText := req.GetString("csv", ""), req.GetString("json", "")
	switch {
	case csvText != "" && jsonText != "":
		return nil, fmt.Errorf("pass either csv or json, not both")
	case csvText != "":
		table, err = importer.CSVTable(strings.NewReader(csvText), opts)
	case jsonText != "":
		table, err = importer.JSONTable([]byte(jsonText), opts)
	default:
		return nil, fmt.Errorf("csv or json is required")
	}
	if err != nil {
		return nil, err
	}

	b, err := content.NewBlock(domain.BlockTypeTable, domain.BlockOptions{})
	if err != nil {
		return nil, err
	}
	b, err = s.plugins.Seed(ctx, sess.ReportID(), sectionID, b)
	if err != nil {
		return nil, err
	}
	b.Payload = table
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := sess.InsertBlock(ctx, sectionID, b, optionalInt(req, "index")); err != nil {
		return nil, err
	}
	return createdResult(b.ID, sess)
}

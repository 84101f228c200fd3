// Package export renders report trees into portable document formats.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"reports/internal/content"
	"reports/internal/domain"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unknown export format %q (want markdown, html or docx)", s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/markdown; charset=utf-8"
}

// Exporter writes a report in one of the supported formats.
type Exporter struct {
	md goldmark.Markdown
}

func New() *Exporter {
	return &Exporter{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Export validates tree and writes it to w in format f.
func (e *Exporter) Export(w io.Writer, title string, tree domain.ContentTree, f Format) error {
	if err := content.Validate(tree); err != nil {
		return fmt.Errorf("export: invalid tree: %w", err)
	}
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(title, tree))
		return err
	case FormatHTML:
		return e.html(w, title, tree)
	case FormatDOCX:
		return writeDOCX(w, title, tree)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatKPI renders a KPI value according to its display format.
func formatKPI(k domain.KPIPayload) string {
	switch k.Format {
	case domain.KPIFormatCurrency:
		s := strconv.FormatFloat(k.Value, 'f', 2, 64)
		if k.Unit != "" {
			return k.Unit + " " + s
		}
		return s
	case domain.KPIFormatPercent:
		return formatNumber(k.Value) + "%"
	}
	if k.Unit != "" {
		return formatNumber(k.Value) + " " + k.Unit
	}
	return formatNumber(k.Value)
}

func trendArrow(t domain.Trend) string {
	switch t {
	case domain.TrendUp:
		return "▲"
	case domain.TrendDown:
		return "▼"
	case domain.TrendFlat:
		return "▶"
	}
	return ""
}

// kpiLine is the one-line summary shared by every format.
func kpiLine(k domain.KPIPayload) string {
	s := k.Label + ": " + formatKPI(k)
	if a := trendArrow(k.Trend); a != "" {
		s += " " + a
	}
	if k.TargetValue != nil {
		target := k
		target.Value = *k.TargetValue
		s += " (target " + formatKPI(target) + ")"
	}
	return s
}

// chartTable flattens chart data into a header row and one row per label.
func chartTable(c domain.ChartPayload) ([]string, [][]string) {
	headers := []string{""}
	for _, s := range c.Data.Series {
		headers = append(headers, s.Name)
	}
	rows := make([][]string, 0, len(c.Data.Labels))
	for i, label := range c.Data.Labels {
		row := []string{label}
		for _, s := range c.Data.Series {
			if i < len(s.Values) {
				row = append(row, formatNumber(s.Values[i]))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

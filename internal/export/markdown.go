package export

import (
	"fmt"
	"strings"

	"reports/internal/domain"
)

// pageBreakMarker separates pages in markdown output.
const pageBreakMarker = "<!-- pagebreak -->"

// Markdown renders tree as GitHub flavoured markdown. Sections become
// headings at their own level.
func Markdown(title string, tree domain.ContentTree) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	tree.Walk(func(s *domain.Section, _ int) bool {
		fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", s.Level), s.Title)
		for _, blk := range s.Blocks {
			writeMarkdownBlock(&b, blk)
		}
		return true
	})
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeMarkdownBlock(b *strings.Builder, blk domain.Block) {
	switch p := blk.Payload.(type) {
	case domain.ParagraphPayload:
		text := p.Content
		if p.Format != nil && p.Format.Bold && text != "" {
			text = "**" + text + "**"
		}
		if p.Format != nil && p.Format.Italic && text != "" {
			text = "_" + text + "_"
		}
		writePara(b, text)
	case domain.HeadingPayload:
		writePara(b, strings.Repeat("#", p.Level)+" "+p.Content)
	case domain.ListPayload:
		for i, item := range p.Items {
			text := strings.ReplaceAll(item.Text, "\n", " ")
			switch p.ListType {
			case domain.ListNumbered:
				fmt.Fprintf(b, "%d. %s\n", i+1, text)
			case domain.ListChecklist:
				mark := " "
				if item.Checked {
					mark = "x"
				}
				fmt.Fprintf(b, "- [%s] %s\n", mark, text)
			default:
				fmt.Fprintf(b, "- %s\n", text)
			}
		}
		b.WriteString("\n")
	case domain.QuotePayload:
		writePara(b, quoteLines(p.Content))
		if p.Author != "" || p.Source != "" {
			writePara(b, "> -- "+strings.TrimSpace(strings.Join([]string{p.Author, p.Source}, " ")))
		}
	case domain.CalloutPayload:
		text := "[!" + calloutMarker(p.Variant) + "]"
		if p.Title != "" {
			text += "\n**" + p.Title + "**"
		}
		writePara(b, quoteLines(text+"\n"+p.Content))
	case domain.TablePayload:
		writeMarkdownTable(b, p.Headers, p.Rows)
		if p.Caption != "" {
			writePara(b, "_"+p.Caption+"_")
		}
	case domain.ChartPayload:
		if p.Title != "" {
			writePara(b, "**"+p.Title+"**")
		}
		headers, rows := chartTable(p)
		writeMarkdownTable(b, headers, rows)
	case domain.KPIPayload:
		writePara(b, "**"+kpiLine(p)+"**")
	case domain.ImagePayload:
		if p.Caption != "" {
			writePara(b, fmt.Sprintf("![%s](%s %q)", p.Alt, p.Src, p.Caption))
		} else {
			writePara(b, fmt.Sprintf("![%s](%s)", p.Alt, p.Src))
		}
	case domain.DividerPayload:
		writePara(b, "---")
	case domain.PageBreakPayload:
		writePara(b, pageBreakMarker)
	}
}

func writePara(b *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

func quoteLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}

func calloutMarker(v domain.CalloutVariant) string {
	switch v {
	case domain.CalloutSuccess:
		return "TIP"
	case domain.CalloutWarning:
		return "WARNING"
	case domain.CalloutError:
		return "CAUTION"
	}
	return "NOTE"
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeMarkdownTable(b *strings.Builder, headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	row := func(cells []string) {
		b.WriteString("|")
		for i := range headers {
			v := ""
			if i < len(cells) {
				v = cell(cells[i])
			}
			b.WriteString(" " + v + " |")
		}
		b.WriteString("\n")
	}
	row(headers)
	b.WriteString("|")
	for range headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows {
		row(r)
	}
	b.WriteString("\n")
}

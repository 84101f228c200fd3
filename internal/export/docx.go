package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"reports/internal/domain"
)

// docxCalloutFill shades callout paragraphs by variant.
var docxCalloutFill = map[domain.CalloutVariant]string{
	domain.CalloutInfo:    "DBEAFE",
	domain.CalloutWarning: "FEF3C7",
	domain.CalloutSuccess: "DCFCE7",
	domain.CalloutError:   "FEE2E2",
}

func writeDOCX(w io.Writer, title string, tree domain.ContentTree) error {
	doc := docx.New().WithDefaultTheme()
	if title != "" {
		doc.AddParagraph().Style("Title").AddText(title)
	}
	tree.Walk(func(s *domain.Section, _ int) bool {
		doc.AddParagraph().Style(fmt.Sprintf("Heading%d", s.Level)).AddText(s.Title)
		for _, b := range s.Blocks {
			writeDOCXBlock(doc, b)
		}
		return true
	})
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func writeDOCXBlock(doc *docx.Docx, b domain.Block) {
	switch p := b.Payload.(type) {
	case domain.ParagraphPayload:
		para := doc.AddParagraph()
		if p.Format != nil && p.Format.Align != "" {
			para.Justification(docxAlign(p.Format.Align))
		}
		run := para.AddText(p.Content)
		if p.Format != nil && p.Format.Bold {
			run.Bold()
		}
		if p.Format != nil && p.Format.Italic {
			run.Italic()
		}
	case domain.HeadingPayload:
		doc.AddParagraph().Style(fmt.Sprintf("Heading%d", p.Level)).AddText(p.Content)
	case domain.ListPayload:
		for i, item := range p.Items {
			var prefix string
			switch p.ListType {
			case domain.ListNumbered:
				prefix = fmt.Sprintf("%d. ", i+1)
			case domain.ListChecklist:
				prefix = "☐ "
				if item.Checked {
					prefix = "☑ "
				}
			default:
				prefix = "• "
			}
			doc.AddParagraph().AddText(prefix + item.Text)
		}
	case domain.QuotePayload:
		doc.AddParagraph().AddText(p.Content).Italic()
		if p.Author != "" || p.Source != "" {
			doc.AddParagraph().Justification("end").
				AddText("-- " + strings.TrimSpace(p.Author+" "+p.Source)).Size("18")
		}
	case domain.CalloutPayload:
		para := doc.AddParagraph()
		fill := docxCalloutFill[p.Variant]
		if p.Title != "" {
			para.AddText(p.Title + ": ").Bold().Shade("clear", "auto", fill)
		}
		para.AddText(p.Content).Shade("clear", "auto", fill)
	case domain.TablePayload:
		writeDOCXTable(doc, p.Headers, p.Rows)
		if p.Caption != "" {
			doc.AddParagraph().AddText(p.Caption).Italic()
		}
	case domain.ChartPayload:
		if p.Title != "" {
			doc.AddParagraph().AddText(p.Title).Bold()
		}
		headers, rows := chartTable(p)
		writeDOCXTable(doc, headers, rows)
	case domain.KPIPayload:
		doc.AddParagraph().AddText(kpiLine(p)).Bold().Size("28")
	case domain.ImagePayload:
		label := p.Alt
		if label == "" {
			label = p.Src
		}
		para := doc.AddParagraph()
		para.AddLink(label, p.Src)
		if p.Caption != "" {
			doc.AddParagraph().AddText(p.Caption).Italic()
		}
	case domain.DividerPayload:
		doc.AddParagraph().Justification("center").AddText(strings.Repeat("─", 24)).Color("999999")
	case domain.PageBreakPayload:
		doc.AddParagraph().AddPageBreaks()
	}
}

func writeDOCXTable(doc *docx.Docx, headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	tbl := doc.AddTable(len(rows)+1, len(headers), 0, nil)
	for c, h := range headers {
		tbl.TableRows[0].TableCells[c].AddParagraph().AddText(h).Bold()
	}
	for r, row := range rows {
		for c := range headers {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			tbl.TableRows[r+1].TableCells[c].AddParagraph().AddText(v)
		}
	}
}

func docxAlign(a domain.TextAlign) string {
	switch a {
	case domain.AlignCenter:
		return "center"
	case domain.AlignRight:
		return "end"
	case domain.AlignJustify:
		return "both"
	}
	return "start"
}

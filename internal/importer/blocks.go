package importer

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"reports/internal/domain"
)

// convertBlock maps one top-level markdown node onto block payloads.
// Nodes without a block equivalent yield nothing.
func convertBlock(n ast.Node, src []byte) ([]domain.Payload, error) {
	switch node := n.(type) {
	case *ast.Paragraph:
		if img, ok := soleImage(node, src); ok {
			return []domain.Payload{img}, nil
		}
		t := inlineText(node, src)
		if t == "" {
			return nil, nil
		}
		return []domain.Payload{domain.ParagraphPayload{Content: t}}, nil
	case *ast.List:
		return []domain.Payload{convertList(node, src)}, nil
	case *ast.Blockquote:
		return []domain.Payload{convertQuote(node, src)}, nil
	case *ast.ThematicBreak:
		return []domain.Payload{domain.DividerPayload{Style: domain.DividerSolid}}, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		t := strings.TrimRight(rawLines(n, src), "\n")
		if t == "" {
			return nil, nil
		}
		return []domain.Payload{domain.ParagraphPayload{Content: t}}, nil
	case *east.Table:
		return []domain.Payload{convertTable(node, src)}, nil
	}
	return nil, nil
}

func convertList(l *ast.List, src []byte) domain.ListPayload {
	p := domain.ListPayload{ListType: domain.ListBullet}
	if l.IsOrdered() {
		p.ListType = domain.ListNumbered
	}
	checklist := false
	var walk func(l *ast.List)
	walk = func(l *ast.List) {
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			var li domain.ListItem
			var nested []*ast.List
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if sub, ok := c.(*ast.List); ok {
					nested = append(nested, sub)
					continue
				}
				if box, ok := c.FirstChild().(*east.TaskCheckBox); ok {
					checklist = true
					li.Checked = box.IsChecked
				}
				t := inlineText(c, src)
				if li.Text == "" {
					li.Text = t
				} else if t != "" {
					li.Text += "\n" + t
				}
			}
			p.Items = append(p.Items, li)
			// Nested lists are flattened after their parent item.
			for _, sub := range nested {
				walk(sub)
			}
		}
	}
	walk(l)
	if checklist {
		p.ListType = domain.ListChecklist
	}
	if len(p.Items) == 0 {
		p.Items = []domain.ListItem{}
	}
	return p
}

// calloutMarkers maps GitHub alert markers onto callout variants.
var calloutMarkers = map[string]domain.CalloutVariant{
	"[!NOTE]":      domain.CalloutInfo,
	"[!TIP]":       domain.CalloutSuccess,
	"[!IMPORTANT]": domain.CalloutWarning,
	"[!WARNING]":   domain.CalloutWarning,
	"[!CAUTION]":   domain.CalloutError,
}

func convertQuote(q *ast.Blockquote, src []byte) domain.Payload {
	var parts []string
	for c := q.FirstChild(); c != nil; c = c.NextSibling() {
		if t := inlineText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	body := strings.Join(parts, "\n\n")

	first, rest, _ := strings.Cut(body, "\n")
	if v, ok := calloutMarkers[strings.ToUpper(strings.TrimSpace(first))]; ok {
		return domain.CalloutPayload{Variant: v, Content: strings.TrimSpace(rest)}
	}
	return domain.QuotePayload{Content: body}
}

func convertTable(t *east.Table, src []byte) domain.TablePayload {
	p := domain.TablePayload{Headers: []string{}, Rows: [][]string{}}
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, inlineText(c, src))
		}
		if _, ok := r.(*east.TableHeader); ok {
			p.Headers = cells
			continue
		}
		if len(cells) > len(p.Headers) {
			cells = cells[:len(p.Headers)]
		}
		for len(cells) < len(p.Headers) {
			cells = append(cells, "")
		}
		p.Rows = append(p.Rows, cells)
	}
	return p
}

// soleImage reports whether a paragraph holds nothing but one image.
func soleImage(p *ast.Paragraph, src []byte) (domain.ImagePayload, bool) {
	img, ok := p.FirstChild().(*ast.Image)
	if !ok || img.NextSibling() != nil {
		return domain.ImagePayload{}, false
	}
	return domain.ImagePayload{
		Src:     string(img.Destination),
		Alt:     inlineText(img, src),
		Caption: string(img.Title),
	}, true
}

// inlineText flattens the inline children of n into plain text.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *east.TaskCheckBox:
		default:
			writeInline(buf, c, src)
		}
	}
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

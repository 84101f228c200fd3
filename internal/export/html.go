package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"reports/internal/domain"
)

const htmlStyle = `body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;line-height:1.5}
table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.25rem .5rem}
blockquote{border-left:4px solid #ddd;margin-left:0;padding-left:1rem;color:#555}
.page-break{page-break-after:always;break-after:page}`

// html renders the markdown form through goldmark. Raw HTML in block
// content is not trusted, so page breaks are stitched in between the
// converted chunks.
func (e *Exporter) html(w io.Writer, title string, tree domain.ContentTree) error {
	var body bytes.Buffer
	chunks := strings.Split(Markdown("", tree), pageBreakMarker)
	for i, chunk := range chunks {
		if i > 0 {
			body.WriteString("<div class=\"page-break\"></div>\n")
		}
		if err := e.md.Convert([]byte(chunk), &body); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	}

	escaped := html.EscapeString(title)
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s
</style>
</head>
<body>
%s%s</body>
</html>
`, escaped, htmlStyle, titleHeading(escaped), body.String())
	return err
}

func titleHeading(escaped string) string {
	if escaped == "" {
		return ""
	}
	return "<h1 class=\"report-title\">" + escaped + "</h1>\n"
}

package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"reports/internal/domain"
)

// ── Table data ─────────────────────────────────────────────
// Reads CSV text or a JSON array of objects into a table payload.

// TableOptions controls how tabular data becomes a table block.
type TableOptions struct {
	// Delimiter separates CSV columns, comma when zero.
	Delimiter rune
	// NoHeader treats the first CSV row as data; columns are named col_1, col_2, ...
	NoHeader bool
	// DataPath is a dot-separated path to the JSON array, e.g. "data.items".
	DataPath string
	Caption  string
	Striped  bool
}

// CSVTable reads delimited text into a table payload.
func CSVTable(r io.Reader, opts TableOptions) (domain.TablePayload, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return domain.TablePayload{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return domain.TablePayload{}, fmt.Errorf("parse csv: no rows")
	}

	var headers []string
	rows := records
	if !opts.NoHeader {
		headers = records[0]
		rows = records[1:]
	}
	width := len(headers)
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i := len(headers); i < width; i++ {
		headers = append(headers, fmt.Sprintf("col_%d", i+1))
	}

	return domain.TablePayload{
		Headers: headers,
		Rows:    append([][]string{}, rows...),
		Caption: opts.Caption,
		Striped: opts.Striped,
	}, nil
}

// JSONTable reads a JSON array of objects, or a single object, into a
// table payload. Columns appear in the order keys are first seen, sorted
// within each object.
func JSONTable(data []byte, opts TableOptions) (domain.TablePayload, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.TablePayload{}, fmt.Errorf("parse json: %w", err)
	}
	if opts.DataPath != "" {
		for _, part := range strings.Split(opts.DataPath, ".") {
			m, ok := raw.(map[string]any)
			if !ok {
				return domain.TablePayload{}, fmt.Errorf("invalid data path: %q not found", part)
			}
			raw = m[part]
		}
	}

	var objects []map[string]any
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				objects = append(objects, m)
			}
		}
	case map[string]any:
		objects = []map[string]any{v}
	default:
		return domain.TablePayload{}, fmt.Errorf("parse json: want an array of objects, got %T", raw)
	}

	var headers []string
	seen := make(map[string]bool)
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			headers = append(headers, k)
		}
	}

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = cellText(obj[h])
		}
		rows[i] = row
	}
	return domain.TablePayload{Headers: headers, Rows: rows, Caption: opts.Caption, Striped: opts.Striped}, nil
}

// cellText renders a scalar as text; nested values are kept as JSON.
func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

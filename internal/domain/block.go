package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeChart     BlockType = "chart"
	BlockTypeTable     BlockType = "table"
	BlockTypeKPI       BlockType = "kpi"
	BlockTypeList      BlockType = "list"
	BlockTypeImage     BlockType = "image"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeCallout   BlockType = "callout"
	BlockTypeDivider   BlockType = "divider"
	BlockTypePageBreak BlockType = "pageBreak"
)

// Block is one typed unit of content inside a section. Type is the
// discriminant: Payload always holds the struct registered for it.
type Block struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Payload   Payload   `json:"-"`
}

// Payload is the variant-specific part of a block. The interface is sealed:
// only the payload types in this package implement it.
type Payload interface {
	BlockType() BlockType
	// Fields lists the JSON field names valid for this variant.
	Fields() []string

	clonePayload() Payload
	validate() error
}

// blockHeaderFields are shared by every variant and never part of a payload.
var blockHeaderFields = []string{"id", "type", "createdAt", "updatedAt"}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	if b.Payload != nil {
		out.Payload = b.Payload.clonePayload()
	}
	return out
}

// Validate checks that the payload matches the discriminant and holds legal values.
func (b Block) Validate() error {
	if !b.Type.Valid() {
		return &TypeMismatchError{BlockType: b.Type, Reason: "unknown block type"}
	}
	if b.Payload == nil {
		return &TypeMismatchError{BlockType: b.Type, Reason: "missing payload"}
	}
	if b.Payload.BlockType() != b.Type {
		return &TypeMismatchError{
			BlockType: b.Type,
			Reason:    fmt.Sprintf("payload belongs to %q", b.Payload.BlockType()),
		}
	}
	return b.Payload.validate()
}

func (b Block) MarshalJSON() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", b.Type, err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("flatten %s payload: %w", b.Type, err)
	}
	header := struct {
		ID        string    `json:"id"`
		Type      BlockType `json:"type"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}{b.ID, b.Type, b.CreatedAt, b.UpdatedAt}
	head, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(head, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var header struct {
		ID        string    `json:"id"`
		Type      BlockType `json:"type"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range blockHeaderFields {
		delete(fields, k)
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	payload, err := decodePayload(header.Type, body)
	if err != nil {
		return err
	}
	*b = Block{
		ID:        header.ID,
		Type:      header.Type,
		CreatedAt: header.CreatedAt,
		UpdatedAt: header.UpdatedAt,
		Payload:   payload,
	}
	return b.Validate()
}

// decodeStrict decodes data into v and rejects fields v does not declare.
func decodeStrict(t BlockType, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return asTypeMismatch(t, err)
	}
	return nil
}

func asTypeMismatch(t BlockType, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &TypeMismatchError{
			BlockType: t,
			Field:     typeErr.Field,
			Reason:    fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &TypeMismatchError{BlockType: t, Reason: err.Error()}
}

// ── Paragraph ──────────────────────────────────────────────

type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"
)

type TextFormat struct {
	Bold   bool      `json:"bold,omitempty"`
	Italic bool      `json:"italic,omitempty"`
	Align  TextAlign `json:"align,omitempty"`
}

type ParagraphPayload struct {
	Content string      `json:"content"`
	Format  *TextFormat `json:"format,omitempty"`
}

func (ParagraphPayload) BlockType() BlockType { return BlockTypeParagraph }
func (ParagraphPayload) Fields() []string     { return []string{"content", "format"} }

func (p ParagraphPayload) clonePayload() Payload {
	if p.Format != nil {
		f := *p.Format
		p.Format = &f
	}
	return p
}

func (p ParagraphPayload) validate() error {
	if p.Format == nil {
		return nil
	}
	switch p.Format.Align {
	case "", AlignLeft, AlignCenter, AlignRight, AlignJustify:
		return nil
	}
	return &TypeMismatchError{BlockType: BlockTypeParagraph, Field: "format.align", Reason: fmt.Sprintf("unknown alignment %q", p.Format.Align)}
}

// ── Heading ────────────────────────────────────────────────

type HeadingPayload struct {
	Content string `json:"content"`
	Level   int    `json:"level"`
}

func (HeadingPayload) BlockType() BlockType { return BlockTypeHeading }
func (HeadingPayload) Fields() []string     { return []string{"content", "level"} }
func (p HeadingPayload) clonePayload() Payload {
	return p
}

func (p HeadingPayload) validate() error {
	if p.Level < MinLevel || p.Level > MaxLevel {
		return &BoundsError{What: "heading level", Value: p.Level, Min: MinLevel, Max: MaxLevel}
	}
	return nil
}

// ── Chart ──────────────────────────────────────────────────

type ChartType string

const (
	ChartBar   ChartType = "bar"
	ChartLine  ChartType = "line"
	ChartPie   ChartType = "pie"
	ChartArea  ChartType = "area"
	ChartDonut ChartType = "donut"
)

type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Color  string    `json:"color,omitempty"`
}

type ChartData struct {
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

type ChartConfig struct {
	ShowLegend bool     `json:"showLegend"`
	ShowGrid   bool     `json:"showGrid"`
	Stacked    bool     `json:"stacked"`
	XAxisLabel string   `json:"xAxisLabel,omitempty"`
	YAxisLabel string   `json:"yAxisLabel,omitempty"`
	Colors     []string `json:"colors,omitempty"`
}

type ChartPayload struct {
	ChartType ChartType   `json:"chartType"`
	Title     string      `json:"title"`
	Data      ChartData   `json:"data"`
	Config    ChartConfig `json:"config"`
}

func (ChartPayload) BlockType() BlockType { return BlockTypeChart }
func (ChartPayload) Fields() []string {
	return []string{"chartType", "title", "data", "config"}
}

func (p ChartPayload) clonePayload() Payload {
	p.Data.Labels = cloneSlice(p.Data.Labels)
	if p.Data.Series != nil {
		series := make([]ChartSeries, len(p.Data.Series))
		for i, s := range p.Data.Series {
			s.Values = cloneSlice(s.Values)
			series[i] = s
		}
		p.Data.Series = series
	}
	p.Config.Colors = cloneSlice(p.Config.Colors)
	return p
}

func (p ChartPayload) validate() error {
	switch p.ChartType {
	case ChartBar, ChartLine, ChartPie, ChartArea, ChartDonut:
	default:
		return &TypeMismatchError{BlockType: BlockTypeChart, Field: "chartType", Reason: fmt.Sprintf("unknown chart type %q", p.ChartType)}
	}
	for _, s := range p.Data.Series {
		if len(s.Values) > len(p.Data.Labels) {
			return &BoundsError{What: "series " + s.Name + " length", Value: len(s.Values), Min: 0, Max: len(p.Data.Labels)}
		}
		if err := checkFinite(BlockTypeChart, "data", s.Values...); err != nil {
			return err
		}
	}
	return nil
}

// checkFinite rejects NaN and infinities, which JSON cannot carry.
func checkFinite(t BlockType, field string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &TypeMismatchError{BlockType: t, Field: field, Reason: fmt.Sprintf("%v is not a finite number", v)}
		}
	}
	return nil
}

func finitePtr(t BlockType, field string, v *float64) error {
	if v == nil {
		return nil
	}
	return checkFinite(t, field, *v)
}

// ── Table ──────────────────────────────────────────────────

type TablePayload struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption,omitempty"`
	Striped bool       `json:"striped"`
}

func (TablePayload) BlockType() BlockType { return BlockTypeTable }
func (TablePayload) Fields() []string {
	return []string{"headers", "rows", "caption", "striped"}
}

func (p TablePayload) clonePayload() Payload {
	p.Headers = cloneSlice(p.Headers)
	if p.Rows != nil {
		rows := make([][]string, len(p.Rows))
		for i, r := range p.Rows {
			rows[i] = cloneSlice(r)
		}
		p.Rows = rows
	}
	return p
}

func (p TablePayload) validate() error {
	for i, r := range p.Rows {
		if len(r) > len(p.Headers) {
			return &BoundsError{What: fmt.Sprintf("row %d width", i), Value: len(r), Min: 0, Max: len(p.Headers)}
		}
	}
	return nil
}

// ── KPI card ───────────────────────────────────────────────

type KPIFormat string

const (
	KPIFormatNumber   KPIFormat = "number"
	KPIFormatCurrency KPIFormat = "currency"
	KPIFormatPercent  KPIFormat = "percent"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type KPIThresholds struct {
	Warning  *float64 `json:"warning,omitempty"`
	Critical *float64 `json:"critical,omitempty"`
}

type KPIPayload struct {
	Label         string        `json:"label"`
	Value         float64       `json:"value"`
	Unit          string        `json:"unit,omitempty"`
	Format        KPIFormat     `json:"format"`
	TargetValue   *float64      `json:"targetValue,omitempty"`
	Trend         Trend         `json:"trend,omitempty"`
	Thresholds    KPIThresholds `json:"thresholds"`
	SparklineData []float64     `json:"sparklineData"`
}

func (KPIPayload) BlockType() BlockType { return BlockTypeKPI }
func (KPIPayload) Fields() []string {
	return []string{"label", "value", "unit", "format", "targetValue", "trend", "thresholds", "sparklineData"}
}

func (p KPIPayload) clonePayload() Payload {
	p.TargetValue = clonePtr(p.TargetValue)
	p.Thresholds.Warning = clonePtr(p.Thresholds.Warning)
	p.Thresholds.Critical = clonePtr(p.Thresholds.Critical)
	p.SparklineData = cloneSlice(p.SparklineData)
	return p
}

func (p KPIPayload) validate() error {
	switch p.Format {
	case KPIFormatNumber, KPIFormatCurrency, KPIFormatPercent:
	default:
		return &TypeMismatchError{BlockType: BlockTypeKPI, Field: "format", Reason: fmt.Sprintf("unknown format %q", p.Format)}
	}
	if err := checkFinite(BlockTypeKPI, "value", p.Value); err != nil {
		return err
	}
	if err := finitePtr(BlockTypeKPI, "targetValue", p.TargetValue); err != nil {
		return err
	}
	if err := finitePtr(BlockTypeKPI, "thresholds", p.Thresholds.Warning); err != nil {
		return err
	}
	if err := finitePtr(BlockTypeKPI, "thresholds", p.Thresholds.Critical); err != nil {
		return err
	}
	if err := checkFinite(BlockTypeKPI, "sparklineData", p.SparklineData...); err != nil {
		return err
	}
	switch p.Trend {
	case "", TrendUp, TrendDown, TrendFlat:
		return nil
	}
	return &TypeMismatchError{BlockType: BlockTypeKPI, Field: "trend", Reason: fmt.Sprintf("unknown trend %q", p.Trend)}
}

// ── List ───────────────────────────────────────────────────

type ListType string

const (
	ListBullet    ListType = "bullet"
	ListNumbered  ListType = "numbered"
	ListChecklist ListType = "checklist"
)

type ListItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked,omitempty"`
}

type ListPayload struct {
	ListType ListType   `json:"listType"`
	Items    []ListItem `json:"items"`
}

func (ListPayload) BlockType() BlockType { return BlockTypeList }
func (ListPayload) Fields() []string     { return []string{"listType", "items"} }

func (p ListPayload) clonePayload() Payload {
	p.Items = cloneSlice(p.Items)
	return p
}

func (p ListPayload) validate() error {
	switch p.ListType {
	case ListBullet, ListNumbered, ListChecklist:
		return nil
	}
	return &TypeMismatchError{BlockType: BlockTypeList, Field: "listType", Reason: fmt.Sprintf("unknown list type %q", p.ListType)}
}

// ── Image ──────────────────────────────────────────────────

type ImagePayload struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
	Width   int    `json:"width,omitempty"` // percent of the page width, 0 = natural
}

func (ImagePayload) BlockType() BlockType { return BlockTypeImage }
func (ImagePayload) Fields() []string     { return []string{"src", "alt", "caption", "width"} }
func (p ImagePayload) clonePayload() Payload {
	return p
}

func (p ImagePayload) validate() error {
	if p.Width < 0 || p.Width > 100 {
		return &BoundsError{What: "image width", Value: p.Width, Min: 0, Max: 100}
	}
	return nil
}

// ── Quote ──────────────────────────────────────────────────

type QuotePayload struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
	Source  string `json:"source,omitempty"`
}

func (QuotePayload) BlockType() BlockType    { return BlockTypeQuote }
func (QuotePayload) Fields() []string        { return []string{"content", "author", "source"} }
func (p QuotePayload) clonePayload() Payload { return p }
func (QuotePayload) validate() error         { return nil }

// ── Callout ────────────────────────────────────────────────

type CalloutVariant string

const (
	CalloutInfo    CalloutVariant = "info"
	CalloutWarning CalloutVariant = "warning"
	CalloutSuccess CalloutVariant = "success"
	CalloutError   CalloutVariant = "error"
)

type CalloutPayload struct {
	Variant CalloutVariant `json:"variant"`
	Title   string         `json:"title,omitempty"`
	Content string         `json:"content"`
}

func (CalloutPayload) BlockType() BlockType    { return BlockTypeCallout }
func (CalloutPayload) Fields() []string        { return []string{"variant", "title", "content"} }
func (p CalloutPayload) clonePayload() Payload { return p }

func (p CalloutPayload) validate() error {
	switch p.Variant {
	case CalloutInfo, CalloutWarning, CalloutSuccess, CalloutError:
		return nil
	}
	return &TypeMismatchError{BlockType: BlockTypeCallout, Field: "variant", Reason: fmt.Sprintf("unknown variant %q", p.Variant)}
}

// ── Divider / page break ───────────────────────────────────

type DividerStyle string

const (
	DividerSolid  DividerStyle = "solid"
	DividerDashed DividerStyle = "dashed"
	DividerDotted DividerStyle = "dotted"
)

type DividerPayload struct {
	Style DividerStyle `json:"style"`
}

func (DividerPayload) BlockType() BlockType    { return BlockTypeDivider }
func (DividerPayload) Fields() []string        { return []string{"style"} }
func (p DividerPayload) clonePayload() Payload { return p }

func (p DividerPayload) validate() error {
	switch p.Style {
	case DividerSolid, DividerDashed, DividerDotted:
		return nil
	}
	return &TypeMismatchError{BlockType: BlockTypeDivider, Field: "style", Reason: fmt.Sprintf("unknown style %q", p.Style)}
}

type PageBreakPayload struct{}

func (PageBreakPayload) BlockType() BlockType    { return BlockTypePageBreak }
func (PageBreakPayload) Fields() []string        { return nil }
func (p PageBreakPayload) clonePayload() Payload { return p }
func (PageBreakPayload) validate() error         { return nil }

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

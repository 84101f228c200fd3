package domain

import (
	"time"

	"github.com/google/uuid"
)

// ─────────────────────────────────────────────────────────────
// Block Type Registry
// ─────────────────────────────────────────────────────────────

// BlockOptions tunes the default payload produced for a new block.
// Options that do not apply to the requested type are ignored.
type BlockOptions struct {
	HeadingLevel   int            `json:"headingLevel,omitempty"`
	ListType       ListType       `json:"listType,omitempty"`
	CalloutVariant CalloutVariant `json:"calloutVariant,omitempty"`
	ChartType      ChartType      `json:"chartType,omitempty"`
}

// BlockTypes returns every block type in palette order.
func BlockTypes() []BlockType {
	return []BlockType{
		BlockTypeParagraph,
		BlockTypeHeading,
		BlockTypeList,
		BlockTypeQuote,
		BlockTypeCallout,
		BlockTypeTable,
		BlockTypeChart,
		BlockTypeKPI,
		BlockTypeImage,
		BlockTypeDivider,
		BlockTypePageBreak,
	}
}

// Valid reports whether t is one of the registered block types.
func (t BlockType) Valid() bool {
	for _, known := range BlockTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// NewDefaultBlock returns a fully populated block of type t with a fresh id.
func NewDefaultBlock(t BlockType, opts BlockOptions) (Block, error) {
	payload, err := DefaultPayload(t, opts)
	if err != nil {
		return Block{}, err
	}
	now := time.Now().UTC()
	return Block{
		ID:        uuid.New().String(),
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
		Payload:   payload,
	}, nil
}

// DefaultPayload builds the empty payload for t.
func DefaultPayload(t BlockType, opts BlockOptions) (Payload, error) {
	var p Payload
	switch t {
	case BlockTypeParagraph:
		p = ParagraphPayload{}
	case BlockTypeHeading:
		level := opts.HeadingLevel
		if level == 0 {
			level = 2
		}
		p = HeadingPayload{Level: level}
	case BlockTypeChart:
		chartType := opts.ChartType
		if chartType == "" {
			chartType = ChartBar
		}
		p = ChartPayload{
			ChartType: chartType,
			Data:      ChartData{Labels: []string{}, Series: []ChartSeries{}},
			Config:    ChartConfig{ShowLegend: true, ShowGrid: true},
		}
	case BlockTypeTable:
		p = TablePayload{
			Headers: []string{"Column 1", "Column 2", "Column 3"},
			Rows:    [][]string{{"", "", ""}},
		}
	case BlockTypeKPI:
		p = KPIPayload{
			Label:         "New KPI",
			Format:        KPIFormatNumber,
			SparklineData: []float64{},
		}
	case BlockTypeList:
		listType := opts.ListType
		if listType == "" {
			listType = ListBullet
		}
		p = ListPayload{ListType: listType, Items: []ListItem{{Text: ""}}}
	case BlockTypeImage:
		p = ImagePayload{}
	case BlockTypeQuote:
		p = QuotePayload{}
	case BlockTypeCallout:
		variant := opts.CalloutVariant
		if variant == "" {
			variant = CalloutInfo
		}
		p = CalloutPayload{Variant: variant}
	case BlockTypeDivider:
		p = DividerPayload{Style: DividerSolid}
	case BlockTypePageBreak:
		p = PageBreakPayload{}
	default:
		return nil, &TypeMismatchError{BlockType: t, Reason: "unknown block type"}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// decodePayload strictly decodes the variant registered for t.
func decodePayload(t BlockType, data []byte) (Payload, error) {
	switch t {
	case BlockTypeParagraph:
		return decodeAs[ParagraphPayload](t, data)
	case BlockTypeHeading:
		return decodeAs[HeadingPayload](t, data)
	case BlockTypeChart:
		return decodeAs[ChartPayload](t, data)
	case BlockTypeTable:
		return decodeAs[TablePayload](t, data)
	case BlockTypeKPI:
		return decodeAs[KPIPayload](t, data)
	case BlockTypeList:
		return decodeAs[ListPayload](t, data)
	case BlockTypeImage:
		return decodeAs[ImagePayload](t, data)
	case BlockTypeQuote:
		return decodeAs[QuotePayload](t, data)
	case BlockTypeCallout:
		return decodeAs[CalloutPayload](t, data)
	case BlockTypeDivider:
		return decodeAs[DividerPayload](t, data)
	case BlockTypePageBreak:
		return decodeAs[PageBreakPayload](t, data)
	}
	return nil, &TypeMismatchError{BlockType: t, Reason: "unknown block type"}
}

func decodeAs[P Payload](t BlockType, data []byte) (Payload, error) {
	var p P
	if err := decodeStrict(t, data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
)

func TestApplyPayloadPatch_MergesFields(t *testing.T) {
	p := domain.KPIPayload{Label: "Revenue", Format: domain.KPIFormatCurrency, SparklineData: []float64{1}}

	next, err := domain.ApplyPayloadPatch(p, map[string]any{
		"value":       1250.5,
		"targetValue": 2000,
		"trend":       "up",
	})
	require.NoError(t, err)

	kpi := next.(domain.KPIPayload)
	assert.Equal(t, "Revenue", kpi.Label)
	assert.Equal(t, 1250.5, kpi.Value)
	require.NotNil(t, kpi.TargetValue)
	assert.Equal(t, 2000.0, *kpi.TargetValue)
	assert.Equal(t, domain.TrendUp, kpi.Trend)

	assert.Equal(t, 0.0, p.Value, "input payload must stay untouched")
}

func TestApplyPayloadPatch_RejectsFieldOfOtherVariant(t *testing.T) {
	p := domain.KPIPayload{Label: "Revenue", Format: domain.KPIFormatNumber}
	_, err := domain.ApplyPayloadPatch(p, map[string]any{"rows": [][]string{{"a"}}})

	var mismatch *domain.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "rows", mismatch.Field)
	assert.Equal(t, domain.BlockTypeKPI, mismatch.BlockType)
}

func TestApplyPayloadPatch_RejectsHeaderFields(t *testing.T) {
	_, err := domain.ApplyPayloadPatch(domain.QuotePayload{}, map[string]any{"type": "table"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	_, err = domain.ApplyPayloadPatch(domain.QuotePayload{}, map[string]any{"id": "x"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestApplyPayloadPatch_WrongValueShape(t *testing.T) {
	_, err := domain.ApplyPayloadPatch(domain.HeadingPayload{Level: 2}, map[string]any{"level": "big"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestApplyPayloadPatch_Bounds(t *testing.T) {
	_, err := domain.ApplyPayloadPatch(domain.HeadingPayload{Level: 2}, map[string]any{"level": 9})
	assert.ErrorIs(t, err, domain.ErrBounds)

	_, err = domain.ApplyPayloadPatch(domain.ImagePayload{}, map[string]any{"width": 140})
	assert.ErrorIs(t, err, domain.ErrBounds)

	_, err = domain.ApplyPayloadPatch(domain.TablePayload{Headers: []string{"a"}}, map[string]any{
		"rows": [][]string{{"1", "2"}},
	})
	assert.ErrorIs(t, err, domain.ErrBounds)
}

func TestApplyPayloadPatch_PageBreakHasNoFields(t *testing.T) {
	_, err := domain.ApplyPayloadPatch(domain.PageBreakPayload{}, map[string]any{"content": "x"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

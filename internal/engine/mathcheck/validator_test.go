package mathcheck

import (
	"testing"

	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(qty, price, total string) models.QuoteItem {
	return models.QuoteItem{
		Description: "Widget",
		Quantity:    d(qty),
		UnitPrice:   d(price),
		Total:       stated(total),
	}
}

// stated returns nil for a blank total.
func stated(total string) *decimal.Decimal {
	if total == "" {
		return nil
	}
	return models.DecimalPtr(d(total))
}

// ==========================
// Line validation
// ==========================

func TestValidateLine_StatedTotalWrong(t *testing.T) {
	v := NewValidator(DefaultConfig())

	line, issues := v.ValidateLine("A", 0, item("10", "4", "50"))

	assert.True(t, d("40").Equal(line.Corrected))
	require.NotNil(t, line.Correction)
	assert.True(t, d("50").Equal(line.Correction.Original))
	assert.True(t, d("40").Equal(line.Correction.Corrected))
	assert.True(t, line.Correction.Major)

	require.Len(t, issues, 1)
	assert.Equal(t, models.KindMathMismatch, issues[0].Kind)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
	assert.True(t, issues[0].Resolved)
	assert.Equal(t, "40.00", issues[0].Details["expectedTotal"])
}

func TestValidateLine_Tolerances(t *testing.T) {
	v := NewValidator(DefaultConfig())

	tests := []struct {
		name           string
		total          string
		wantIssue      bool
		wantSeverity   models.Severity
		wantCorrection bool
	}{
		{"exact", "1000", false, "", false},
		{"rounding noise", "1000.01", false, "", false},
		{"below tolerance", "1005", false, "", true},
		{"medium at 5 percent", "1050", true, models.SeverityMedium, true},
		{"high at 15 percent", "1150", true, models.SeverityHigh, true},
		{"understated", "850", true, models.SeverityHigh, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, issues := v.ValidateLine("A", 0, item("100", "10", tt.total))
			assert.True(t, d("1000").Equal(line.Corrected))
			assert.Equal(t, tt.wantCorrection, line.Correction != nil)
			if !tt.wantIssue {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, tt.wantSeverity, issues[0].Severity)
		})
	}
}

func TestValidateLine_MonotonicSeverity(t *testing.T) {
	v := NewValidator(DefaultConfig())

	_, five := v.ValidateLine("A", 0, item("1", "100", "105"))
	_, fifteen := v.ValidateLine("A", 0, item("1", "100", "115"))

	require.Len(t, five, 1)
	require.Len(t, fifteen, 1)
	assert.GreaterOrEqual(t, fifteen[0].Severity.Rank(), five[0].Severity.Rank())

	prev := 0
	for pct := 0; pct <= 40; pct++ {
		stated := decimal.NewFromInt(int64(100 + pct))
		_, issues := v.ValidateLine("A", 0, item("1", "100", stated.String()))
		rank := 0
		if len(issues) > 0 {
			rank = issues[0].Severity.Rank()
		}
		assert.GreaterOrEqual(t, rank, prev, "severity dropped at %d%%", pct)
		prev = rank
	}
}

func TestValidateLine_AdditionalFee(t *testing.T) {
	v := NewValidator(DefaultConfig())
	it := item("10", "4", "45")
	it.AdditionalFee = d("5")

	line, issues := v.ValidateLine("A", 0, it)

	assert.True(t, d("45").Equal(line.Corrected))
	assert.Nil(t, line.Correction)
	assert.Empty(t, issues)
}

func TestValidateLine_TotalNotStated(t *testing.T) {
	v := NewValidator(DefaultConfig())

	line, issues := v.ValidateLine("A", 0, item("3", "2.5", ""))

	assert.True(t, d("7.5").Equal(line.Corrected))
	require.NotNil(t, line.Correction)
	assert.False(t, line.Correction.Major)
	assert.Empty(t, issues)
}

func TestValidateLine_ExplicitZeroTotal(t *testing.T) {
	v := NewValidator(DefaultConfig())

	line, issues := v.ValidateLine("A", 2, item("3", "2.5", "0"))

	assert.True(t, d("7.5").Equal(line.Corrected))
	require.NotNil(t, line.Correction)
	assert.True(t, line.Correction.Major)
	assert.True(t, line.Correction.Original.IsZero())

	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
	assert.Equal(t, models.KindMathMismatch, issues[0].Kind)
	assert.Equal(t, 2, *issues[0].ItemIndex)
	assert.Equal(t, "0.00", issues[0].Details["statedTotal"])
	assert.True(t, issues[0].Resolved)
}

func TestValidateLine_InvalidValues(t *testing.T) {
	v := NewValidator(DefaultConfig())

	t.Run("zero quantity", func(t *testing.T) {
		line, issues := v.ValidateLine("A", 1, item("0", "4", "0"))
		assert.False(t, line.Priceable)
		require.Len(t, issues, 1)
		assert.Equal(t, models.SeverityHigh, issues[0].Severity)
		assert.False(t, issues[0].Resolved)
		assert.True(t, issues[0].Blocking())
	})

	t.Run("negative price", func(t *testing.T) {
		line, issues := v.ValidateLine("A", 1, item("2", "-4", "-8"))
		assert.False(t, line.Priceable)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Description, "negative")
	})
}

func TestRelativeDiscrepancy(t *testing.T) {
	assert.True(t, d("0.25").Equal(RelativeDiscrepancy(d("50"), d("40"))))
	assert.True(t, d("1").Equal(RelativeDiscrepancy(d("5"), d("0"))))
	assert.True(t, decimal.Zero.Equal(RelativeDiscrepancy(d("0"), d("0"))))
}

// ==========================
// Quote validation
// ==========================

func TestValidate_UsesCorrectedTotals(t *testing.T) {
	v := NewValidator(DefaultConfig())
	q := models.VendorQuote{
		VendorName: "A",
		Items: []models.QuoteItem{
			item("10", "4", "50"),
			item("2", "15", "30"),
		},
	}

	res := v.Validate(q)

	require.Len(t, res.Lines, 2)
	assert.True(t, d("70").Equal(res.Total), "got %s", res.Total)
	assert.Len(t, res.Issues, 1)
	assert.Nil(t, res.TotalCorrection)
}

func TestValidate_StatedGrandTotal(t *testing.T) {
	v := NewValidator(DefaultConfig())
	stated := d("120")
	q := models.VendorQuote{
		VendorName:  "A",
		Items:       []models.QuoteItem{item("10", "10", "100")},
		StatedTotal: &stated,
	}

	res := v.Validate(q)

	require.NotNil(t, res.TotalCorrection)
	assert.True(t, d("120").Equal(res.TotalCorrection.Original))
	assert.True(t, d("100").Equal(res.TotalCorrection.Corrected))
	require.Len(t, res.Issues, 1)
	assert.Nil(t, res.Issues[0].ItemIndex)
	assert.Equal(t, models.SeverityHigh, res.Issues[0].Severity)
}

func TestValidate_EmptyQuote(t *testing.T) {
	v := NewValidator(DefaultConfig())

	res := v.Validate(models.VendorQuote{VendorName: "A"})

	assert.Empty(t, res.Lines)
	assert.True(t, res.Total.IsZero())
	assert.Empty(t, res.Issues)
}

// Package mathcheck recomputes quote arithmetic from raw fields and
// records every discrepancy against the vendor-stated values.
package mathcheck

import (
	"fmt"

	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds the discrepancy thresholds. Percentages are fractions
// (0.01 == 1%).
type Config struct {
	Tolerance         decimal.Decimal
	MajorThreshold    decimal.Decimal
	RoundingTolerance decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Tolerance:         decimal.RequireFromString("0.01"),
		MajorThreshold:    decimal.RequireFromString("0.10"),
		RoundingTolerance: decimal.RequireFromString("0.01"),
	}
}

// Line is the recomputed view of one item.
type Line struct {
	Expected   decimal.Decimal
	Corrected  decimal.Decimal
	Correction *models.Correction
	Priceable  bool
}

// Result is the recomputed view of one quote.
type Result struct {
	Lines           []Line
	Total           decimal.Decimal
	TotalCorrection *models.Correction
	Issues          []models.Issue
}

// Validator is stateless and safe for concurrent use.
type Validator struct {
	cfg Config
}

func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Expected is quantity x unit price plus any declared fee, rounded to cents.
func Expected(item models.QuoteItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice).Add(item.AdditionalFee).Round(2)
}

// RelativeDiscrepancy is |stated - expected| / |expected|. A non-zero
// statement against a zero expectation counts as 100%.
func RelativeDiscrepancy(stated, expected decimal.Decimal) decimal.Decimal {
	diff := stated.Sub(expected).Abs()
	if expected.IsZero() {
		if diff.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(1)
	}
	return diff.Div(expected.Abs())
}

// Severity maps a relative discrepancy to an issue severity. ok is false
// when the discrepancy is within tolerance.
func (v *Validator) Severity(relative decimal.Decimal) (models.Severity, bool) {
	switch {
	case relative.GreaterThan(v.cfg.MajorThreshold):
		return models.SeverityHigh, true
	case relative.GreaterThan(v.cfg.Tolerance):
		return models.SeverityMedium, true
	default:
		return "", false
	}
}

// ValidateLine recomputes one item. The corrected total is always the
// recomputed value; the vendor's figure survives only in the correction.
func (v *Validator) ValidateLine(vendor string, index int, item models.QuoteItem) (Line, []models.Issue) {
	expected := Expected(item)
	line := Line{
		Expected:  expected,
		Corrected: expected,
		Priceable: item.Quantity.IsPositive() && !item.UnitPrice.IsNegative(),
	}

	var issues []models.Issue
	if !item.Quantity.IsPositive() {
		issues = append(issues, invalidLine(vendor, index, fmt.Sprintf("quantity %s is not positive", item.Quantity)))
	}
	if item.UnitPrice.IsNegative() {
		issues = append(issues, invalidLine(vendor, index, fmt.Sprintf("unit price %s is negative", item.UnitPrice)))
	}

	if item.Total == nil {
		if !expected.IsZero() {
			line.Correction = &models.Correction{
				Original:  decimal.Zero,
				Corrected: expected,
				Reason:    "line total not stated; computed from quantity and unit price",
			}
		}
		return line, issues
	}

	stated := *item.Total
	diff := stated.Sub(expected)
	if diff.Abs().LessThanOrEqual(v.cfg.RoundingTolerance) {
		return line, issues
	}

	relative := RelativeDiscrepancy(stated, expected)
	severity, flagged := v.Severity(relative)

	line.Correction = &models.Correction{
		Original:  stated,
		Corrected: expected,
		Reason:    fmt.Sprintf("stated total differs from quantity x unit price by %s (%s%%)", diff.StringFixed(2), percent(relative)),
		Major:     severity == models.SeverityHigh,
	}

	if flagged {
		issues = append(issues, models.Issue{
			Severity:    severity,
			Kind:        models.KindMathMismatch,
			Vendor:      vendor,
			ItemIndex:   models.IntPtr(index),
			Description: fmt.Sprintf("line total %s does not match %s x %s = %s", stated.StringFixed(2), item.Quantity, item.UnitPrice.StringFixed(2), expected.StringFixed(2)),
			Details: map[string]interface{}{
				"statedTotal":     stated.StringFixed(2),
				"expectedTotal":   expected.StringFixed(2),
				"difference":      diff.StringFixed(2),
				"relativePercent": percent(relative),
				"majorCorrection": severity == models.SeverityHigh,
			},
			Resolved: true,
		})
	}
	return line, issues
}

// Validate recomputes every line and the quote total. The total used for
// ranking is the sum of corrected lines, never the vendor's own figure.
func (v *Validator) Validate(quote models.VendorQuote) Result {
	res := Result{
		Lines: make([]Line, len(quote.Items)),
		Total: decimal.Zero,
	}

	for i, item := range quote.Items {
		line, issues := v.ValidateLine(quote.VendorName, i, item)
		res.Lines[i] = line
		res.Total = res.Total.Add(line.Corrected)
		res.Issues = append(res.Issues, issues...)
	}

	if quote.StatedTotal != nil {
		stated := *quote.StatedTotal
		diff := stated.Sub(res.Total)
		if diff.Abs().GreaterThan(v.cfg.RoundingTolerance) {
			relative := RelativeDiscrepancy(stated, res.Total)
			severity, flagged := v.Severity(relative)
			res.TotalCorrection = &models.Correction{
				Original:  stated,
				Corrected: res.Total,
				Reason:    fmt.Sprintf("stated quote total differs from sum of corrected lines by %s", diff.StringFixed(2)),
				Major:     severity == models.SeverityHigh,
			}
			if flagged {
				res.Issues = append(res.Issues, models.Issue{
					Severity:    severity,
					Kind:        models.KindMathMismatch,
					Vendor:      quote.VendorName,
					Description: fmt.Sprintf("stated quote total %s does not match sum of lines %s", stated.StringFixed(2), res.Total.StringFixed(2)),
					Details: map[string]interface{}{
						"statedTotal":     stated.StringFixed(2),
						"expectedTotal":   res.Total.StringFixed(2),
						"difference":      diff.StringFixed(2),
						"relativePercent": percent(relative),
						"majorCorrection": severity == models.SeverityHigh,
					},
					Resolved: true,
				})
			}
		}
	}

	return res
}

func invalidLine(vendor string, index int, reason string) models.Issue {
	return models.Issue{
		Severity:    models.SeverityHigh,
		Kind:        models.KindMathMismatch,
		Vendor:      vendor,
		ItemIndex:   models.IntPtr(index),
		Description: "line cannot be priced: " + reason,
	}
}

func percent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

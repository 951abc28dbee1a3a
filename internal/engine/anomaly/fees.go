// internal/engine/anomaly/fees.go
package anomaly

import (
	"fmt"
	"regexp"
	"strings"

	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

var feeLinePattern = regexp.MustCompile(`(?i)\b(handling|processing|administrative|admin|service|convenience|transaction|setup|set-up|activation|restocking|cancellation|documentation|environmental|fuel)\s+(fee|charge|surcharge)s?\b|\bsurcharge\b|\bmisc(ellaneous)?\s+charges?\b`)

var conditionalPhrases = []string{
	"subject to change",
	"subject to availability",
	"may vary",
	"plus applicable",
	"additional charges may apply",
	"additional fees may apply",
	"fees may apply",
	"surcharge may apply",
	"prices exclude",
	"not included in the above",
}

// pricingStructure is a family of phrases that move cost out of the
// itemized lines.
type pricingStructure struct {
	name        string
	severity    models.Severity
	description string
	phrases     []string
}

var pricingStructures = []pricingStructure{
	{
		name:        "bundled_pricing",
		severity:    models.SeverityMedium,
		description: "quote text prices items as a bundle, so per-item cost is not visible",
		phrases:     []string{"package deal", "bundle price", "bundled price", "all inclusive", "all-inclusive", "comprehensive pricing", "total solution", "complete package"},
	},
	{
		name:        "complex_structure",
		severity:    models.SeverityMedium,
		description: "quote text describes charges layered on top of the itemized prices",
		phrases:     []string{"base price plus", "core pricing plus", "minimum order value", "minimum order charge", "subscription model", "recurring charge", "monthly fee", "annual fee"},
	},
	{
		name:        "tiered_pricing",
		severity:    models.SeverityLow,
		description: "quote text ties prices to volume tiers that the lines may not reflect",
		phrases:     []string{"tier pricing", "tiered pricing", "volume discount", "quantity break", "bulk pricing", "scale pricing"},
	},
	{
		name:        "unfirm_pricing",
		severity:    models.SeverityLow,
		description: "quote text defers pricing to a later or external rate",
		phrases:     []string{"call for pricing", "contact sales", "quote required", "market rate", "prevailing rate"},
	},
}

var hundred = decimal.NewFromInt(100)

// IsFeeLine reports whether a line item describes a fee rather than goods.
func IsFeeLine(description string) bool {
	return feeLinePattern.MatchString(description)
}

func (d *Detector) hiddenFees(q *models.ValidatedQuote) []models.Issue {
	var issues []models.Issue
	vendor := q.Vendor()

	for _, it := range q.Items {
		if it.Correction == nil {
			continue
		}
		if fee, excess, ok := d.matchFeePercent(it.Correction.Original, it.ExpectedTotal); ok {
			issues = append(issues, models.Issue{
				Severity:  inferredFeeSeverity(it.Correction),
				Kind:      models.KindHiddenFee,
				Vendor:    vendor,
				ItemIndex: models.IntPtr(it.Index),
				Resolved:  true,
				Description: fmt.Sprintf("stated total only reconciles with an undisclosed fee of about %s%% on top of quantity x unit price",
					fee.String()),
				Details: map[string]interface{}{
					"excessPercent":     excess.StringFixed(2),
					"matchedFeePercent": fee.String(),
					"statedTotal":       it.Correction.Original.StringFixed(2),
					"expectedTotal":     it.ExpectedTotal.StringFixed(2),
				},
			})
		}
	}

	if tc := q.TotalCorrection; tc != nil {
		if fee, excess, ok := d.matchFeePercent(tc.Original, tc.Corrected); ok {
			issues = append(issues, models.Issue{
				Severity:    inferredFeeSeverity(tc),
				Kind:        models.KindHiddenFee,
				Vendor:      vendor,
				Resolved:    true,
				Description: fmt.Sprintf("stated quote total exceeds the itemized lines by about %s%%, consistent with an undisclosed fee", fee.String()),
				Details: map[string]interface{}{
					"excessPercent":     excess.StringFixed(2),
					"matchedFeePercent": fee.String(),
				},
			})
		}
	}

	issues = append(issues, feeLines(vendor, q.Items)...)

	if found := phrasesIn(q.Quote.Source.RawText, conditionalPhrases); len(found) > 0 {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityLow,
			Kind:        models.KindHiddenFee,
			Vendor:      vendor,
			Description: "quote text mentions charges that may be added later",
			Details: map[string]interface{}{
				"phrases": found,
			},
		})
	}

	for _, ps := range pricingStructures {
		found := phrasesIn(q.Quote.Source.RawText, ps.phrases)
		if len(found) == 0 {
			continue
		}
		issues = append(issues, models.Issue{
			Severity:    ps.severity,
			Kind:        models.KindHiddenFee,
			Vendor:      vendor,
			Description: ps.description,
			Details: map[string]interface{}{
				"pattern": ps.name,
				"phrases": found,
			},
		})
	}
	return issues
}

// inferredFeeSeverity follows the math discrepancy ladder. The ranked
// total is already the corrected one, so an inferred fee never weighs more
// than the mismatch it was inferred from.
func inferredFeeSeverity(c *models.Correction) models.Severity {
	if c.Major {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

// matchFeePercent checks whether stated exceeds expected by one of the
// typical fee percentages.
func (d *Detector) matchFeePercent(stated, expected decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	if !expected.IsPositive() || !stated.GreaterThan(expected) {
		return decimal.Zero, decimal.Zero, false
	}
	excess := stated.Sub(expected).Div(expected).Mul(hundred)
	for _, fee := range d.cfg.FeePercentages {
		if excess.Sub(fee).Abs().LessThanOrEqual(d.cfg.FeeMatchTolerance) {
			return fee, excess, true
		}
	}
	return decimal.Zero, excess, false
}

func feeLines(vendor string, items []models.ValidatedItem) []models.Issue {
	lastGoods := -1
	for i, it := range items {
		if !IsFeeLine(it.Item.Description) {
			lastGoods = i
		}
	}

	var issues []models.Issue
	for i, it := range items {
		if !IsFeeLine(it.Item.Description) {
			continue
		}
		trailing := i > lastGoods && lastGoods >= 0
		undocumented := strings.TrimSpace(it.Item.SKU) == ""

		severity := models.SeverityLow
		desc := fmt.Sprintf("separate fee line %q adds %s", it.Item.Description, it.CorrectedTotal.StringFixed(2))
		if trailing && undocumented {
			severity = models.SeverityMedium
			desc = fmt.Sprintf("fee line %q adding %s appended after itemization without reference", it.Item.Description, it.CorrectedTotal.StringFixed(2))
		}

		issues = append(issues, models.Issue{
			Severity:    severity,
			Kind:        models.KindHiddenFee,
			Vendor:      vendor,
			ItemIndex:   models.IntPtr(it.Index),
			Description: desc,
			Details: map[string]interface{}{
				"amount":   it.CorrectedTotal.StringFixed(2),
				"trailing": trailing,
			},
		})
	}
	return issues
}

func phrasesIn(raw string, phrases []string) []string {
	if raw == "" {
		return nil
	}
	text := strings.ToLower(raw)
	var found []string
	for _, p := range phrases {
		if strings.Contains(text, p) {
			found = append(found, p)
		}
	}
	return found
}

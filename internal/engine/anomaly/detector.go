// Package anomaly flags pricing and structural patterns that suggest the
// true cost of a quote is being obscured. It runs on normalized and
// validated data only.
package anomaly

import (
	"sort"

	"quote-engine/internal/engine/matching"
	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Config carries every threshold explicitly; detectors share no globals.
type Config struct {
	PriceOutlierRatio     decimal.Decimal
	PriceOutlierHighRatio decimal.Decimal
	QuantityOutlierRatio  decimal.Decimal
	FeePercentages        []decimal.Decimal
	FeeMatchTolerance     decimal.Decimal
	JustificationKeywords []string
	// InternalPriceRatio bounds the spread of one item's unit price
	// across lines of the same quote.
	InternalPriceRatio    decimal.Decimal
	// BulkDiscountRatio is the fraction below quantity x unit price at
	// which a stated line total reads as an unapplied discount.
	BulkDiscountRatio     decimal.Decimal
	LongDeliveryDays      int
	DeliverySpreadDays    int
}

func DefaultConfig() Config {
	return Config{
		PriceOutlierRatio:     decimal.NewFromInt(3),
		PriceOutlierHighRatio: decimal.NewFromInt(6),
		QuantityOutlierRatio:  decimal.NewFromInt(10),
		FeePercentages: []decimal.Decimal{
			decimal.RequireFromString("2.5"),
			decimal.NewFromInt(3),
			decimal.NewFromInt(5),
			decimal.NewFromInt(10),
			decimal.NewFromInt(15),
			decimal.NewFromInt(18),
			decimal.NewFromInt(20),
		},
		FeeMatchTolerance: decimal.RequireFromString("0.25"),
		JustificationKeywords: []string{
			"premium", "certified", "genuine", "oem", "express", "expedited",
			"rush", "next day", "overnight", "custom", "installation included",
			"extended warranty", "heavy duty", "industrial grade", "stainless",
		},
		InternalPriceRatio:    decimal.NewFromInt(100),
		BulkDiscountRatio:     decimal.RequireFromString("0.5"),
		LongDeliveryDays:      30,
		DeliverySpreadDays:    14,
	}
}

// Detector evaluates every heuristic independently over a whole batch.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// line is one group member resolved back to its validated item.
type line struct {
	vendor string
	quote  *models.ValidatedQuote
	item   models.ValidatedItem
}

// Detect returns the anomalies of quotes, grouped as in groups. Excluded
// quotes are ignored.
func (d *Detector) Detect(quotes []models.ValidatedQuote, groups []matching.Group) []models.Issue {
	byVendor := make(map[string]*models.ValidatedQuote, len(quotes))
	for i := range quotes {
		if quotes[i].Excluded() {
			continue
		}
		byVendor[quotes[i].Vendor()] = &quotes[i]
	}

	var issues []models.Issue
	for _, g := range groups {
		lines := resolve(g, byVendor)
		if len(lines) < 2 {
			continue
		}
		issues = append(issues, d.unitMismatches(g, lines)...)
		issues = append(issues, d.priceOutliers(g, lines)...)
		issues = append(issues, d.quantityOutliers(g, lines)...)
	}

	active := make([]*models.ValidatedQuote, 0, len(quotes))
	for i := range quotes {
		if !quotes[i].Excluded() {
			active = append(active, &quotes[i])
		}
	}

	issues = append(issues, d.currencyMismatches(active)...)
	for _, q := range active {
		issues = append(issues, d.internalPriceSpread(q)...)
		issues = append(issues, d.bulkDiscounts(q)...)
		issues = append(issues, d.hiddenFees(q)...)
		issues = append(issues, d.timelines(q)...)
	}
	issues = append(issues, d.inconsistentTerms(active)...)
	return issues
}

func resolve(g matching.Group, byVendor map[string]*models.ValidatedQuote) []line {
	out := make([]line, 0, len(g.Members))
	for _, m := range g.Members {
		q, ok := byVendor[m.Vendor]
		if !ok || m.Index >= len(q.Items) {
			continue
		}
		out = append(out, line{vendor: m.Vendor, quote: q, item: q.Items[m.Index]})
	}
	return out
}

func median(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

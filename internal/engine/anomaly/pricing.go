// internal/engine/anomaly/pricing.go
package anomaly

import (
	"fmt"
	"strings"

	"quote-engine/internal/engine/matching"
	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

var (
	basisLow  = decimal.RequireFromString("0.5")
	basisHigh = decimal.NewFromInt(2)
)

// comparable lines share a canonical unit and can be priced
func peersOf(self line, lines []line) []line {
	var out []line
	for _, l := range lines {
		if l.vendor == self.vendor || !l.item.Priceable {
			continue
		}
		if l.item.CanonicalUnit != self.item.CanonicalUnit {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (d *Detector) priceOutliers(g matching.Group, lines []line) []models.Issue {
	var issues []models.Issue
	for _, self := range lines {
		if !self.item.Priceable || !self.item.NormalizedUnitPrice.IsPositive() {
			continue
		}
		peers := peersOf(self, lines)
		if len(peers) == 0 {
			continue
		}

		lowest := peers[0].item.NormalizedUnitPrice
		prices := make([]decimal.Decimal, 0, len(peers))
		for _, p := range peers {
			prices = append(prices, p.item.NormalizedUnitPrice)
			if p.item.NormalizedUnitPrice.LessThan(lowest) {
				lowest = p.item.NormalizedUnitPrice
			}
		}
		if !lowest.IsPositive() {
			continue
		}

		ratio := self.item.NormalizedUnitPrice.Div(lowest)
		if !ratio.GreaterThan(d.cfg.PriceOutlierRatio) {
			continue
		}

		severity := models.SeverityMedium
		if ratio.GreaterThan(d.cfg.PriceOutlierHighRatio) {
			severity = models.SeverityHigh
		}
		justification := d.justification(self)
		if justification != "" {
			severity = models.SeverityLow
		}

		details := map[string]interface{}{
			"canonicalKey":    g.Key,
			"canonicalUnit":   self.item.CanonicalUnit,
			"unitPrice":       self.item.NormalizedUnitPrice.String(),
			"lowestPeerPrice": lowest.String(),
			"peerMedian":      median(prices).String(),
			"ratio":           ratio.StringFixed(2),
		}
		if justification != "" {
			details["justification"] = justification
		}

		issues = append(issues, models.Issue{
			Severity:  severity,
			Kind:      models.KindPriceOutlier,
			Vendor:    self.vendor,
			ItemIndex: models.IntPtr(self.item.Index),
			Description: fmt.Sprintf("unit price %s per %s is %sx the lowest peer price %s",
				self.item.NormalizedUnitPrice.StringFixed(2), self.item.CanonicalUnit, ratio.StringFixed(1), lowest.StringFixed(2)),
			Details: details,
		})
	}
	return issues
}

func (d *Detector) justification(l line) string {
	text := strings.ToLower(l.item.Item.Description + " " + l.quote.Quote.Terms.Warranty)
	for _, kw := range d.cfg.JustificationKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

func (d *Detector) quantityOutliers(g matching.Group, lines []line) []models.Issue {
	var issues []models.Issue
	for _, self := range lines {
		if !self.item.Priceable {
			continue
		}
		peers := peersOf(self, lines)
		if len(peers) == 0 {
			continue
		}

		// a lone pair is reported once, on the smaller quantity
		qty := self.item.NormalizedQuantity
		if len(peers) == 1 && qty.GreaterThan(peers[0].item.NormalizedQuantity) {
			continue
		}

		quantities := make([]decimal.Decimal, 0, len(peers))
		for _, p := range peers {
			quantities = append(quantities, p.item.NormalizedQuantity)
		}
		med := median(quantities)
		if !med.IsPositive() || !qty.IsPositive() {
			continue
		}

		ratio := qty.Div(med)
		if ratio.LessThan(decimal.NewFromInt(1)) {
			ratio = med.Div(qty)
		}
		if ratio.LessThan(d.cfg.QuantityOutlierRatio) {
			continue
		}

		issues = append(issues, models.Issue{
			Severity:  models.SeverityMedium,
			Kind:      models.KindQuantityOutlier,
			Vendor:    self.vendor,
			ItemIndex: models.IntPtr(self.item.Index),
			Description: fmt.Sprintf("quantity %s %s is %sx off the peer median %s",
				qty.String(), self.item.CanonicalUnit, ratio.StringFixed(1), med.String()),
			Details: map[string]interface{}{
				"canonicalKey": g.Key,
				"quantity":     qty.String(),
				"peerMedian":   med.String(),
				"ratio":        ratio.StringFixed(2),
			},
		})

		if peer, ok := mirroredBasis(self, peers); ok {
			issues = append(issues, models.Issue{
				Severity:  models.SeverityMedium,
				Kind:      models.KindUnitMismatch,
				Vendor:    self.vendor,
				ItemIndex: models.IntPtr(self.item.Index),
				Description: fmt.Sprintf("pricing basis appears to differ from %s: quantity and unit price scale inversely (possible pack vs single unit)",
					peer.vendor),
				Details: map[string]interface{}{
					"canonicalKey": g.Key,
					"peer":         peer.vendor,
				},
			})
		}
	}
	return issues
}

// mirroredBasis finds a peer whose quantity ratio is roughly the inverse
// of the price ratio, i.e. the same spend expressed on another basis.
func mirroredBasis(self line, peers []line) (line, bool) {
	for _, p := range peers {
		if !self.item.NormalizedQuantity.IsPositive() || !p.item.NormalizedUnitPrice.IsPositive() {
			continue
		}
		qRatio := p.item.NormalizedQuantity.Div(self.item.NormalizedQuantity)
		if qRatio.LessThan(basisHigh) && qRatio.GreaterThan(basisLow) {
			continue
		}
		pRatio := self.item.NormalizedUnitPrice.Div(p.item.NormalizedUnitPrice)
		fit := pRatio.Div(qRatio)
		if fit.GreaterThanOrEqual(basisLow) && fit.LessThanOrEqual(basisHigh) {
			return p, true
		}
	}
	return line{}, false
}

func (d *Detector) unitMismatches(g matching.Group, lines []line) []models.Issue {
	counts := make(map[string]int)
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if counts[l.item.CanonicalUnit] == 0 {
			order = append(order, l.item.CanonicalUnit)
		}
		counts[l.item.CanonicalUnit]++
	}
	if len(order) < 2 {
		return nil
	}

	majority := order[0]
	for _, u := range order[1:] {
		if counts[u] > counts[majority] {
			majority = u
		}
	}

	var issues []models.Issue
	for _, l := range lines {
		if l.item.CanonicalUnit == majority {
			continue
		}
		issues = append(issues, models.Issue{
			Severity:    models.SeverityMedium,
			Kind:        models.KindUnitMismatch,
			Vendor:      l.vendor,
			ItemIndex:   models.IntPtr(l.item.Index),
			Description: fmt.Sprintf("quoted per %q while peers quote per %q; prices are not directly comparable", l.item.CanonicalUnit, majority),
			Details: map[string]interface{}{
				"canonicalKey": g.Key,
				"unit":         l.item.CanonicalUnit,
				"peerUnit":     majority,
			},
		})
	}
	return issues
}

func (d *Detector) currencyMismatches(quotes []*models.ValidatedQuote) []models.Issue {
	counts := make(map[string]int)
	var order []string
	for _, q := range quotes {
		c := q.Quote.Terms.CurrencyCode()
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	if len(order) < 2 {
		return nil
	}

	majority := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[majority] {
			majority = c
		}
	}

	var issues []models.Issue
	for _, q := range quotes {
		c := q.Quote.Terms.CurrencyCode()
		if c == majority {
			continue
		}
		issues = append(issues, models.Issue{
			Severity:    models.SeverityMedium,
			Kind:        models.KindUnitMismatch,
			Vendor:      q.Vendor(),
			Description: fmt.Sprintf("quoted in %s while peers quote in %s; totals are not converted", c, majority),
			Details: map[string]interface{}{
				"currency":     c,
				"peerCurrency": majority,
			},
		})
	}
	return issues
}

// internalPriceSpread flags one quote pricing the same item at wildly
// different unit prices on separate lines.
func (d *Detector) internalPriceSpread(q *models.ValidatedQuote) []models.Issue {
	if !d.cfg.InternalPriceRatio.IsPositive() {
		return nil
	}

	type bucket struct {
		description string
		items       []models.ValidatedItem
	}
	var order []string
	buckets := make(map[string]*bucket)
	for _, it := range q.Items {
		if !it.Priceable || !it.NormalizedUnitPrice.IsPositive() || IsFeeLine(it.Item.Description) {
			continue
		}
		norm := matching.Normalize(it.Item.Description)
		if norm == "" {
			continue
		}
		key := norm + "|" + it.CanonicalUnit
		b, ok := buckets[key]
		if !ok {
			b = &bucket{description: it.Item.Description}
			buckets[key] = b
			order = append(order, key)
		}
		b.items = append(b.items, it)
	}

	var issues []models.Issue
	for _, key := range order {
		b := buckets[key]
		if len(b.items) < 2 {
			continue
		}
		lo, hi := b.items[0], b.items[0]
		for _, it := range b.items[1:] {
			if it.NormalizedUnitPrice.LessThan(lo.NormalizedUnitPrice) {
				lo = it
			}
			if it.NormalizedUnitPrice.GreaterThan(hi.NormalizedUnitPrice) {
				hi = it
			}
		}
		ratio := hi.NormalizedUnitPrice.Div(lo.NormalizedUnitPrice)
		if !ratio.GreaterThan(d.cfg.InternalPriceRatio) {
			continue
		}
		indexes := make([]int, 0, len(b.items))
		for _, it := range b.items {
			indexes = append(indexes, it.Index)
		}
		issues = append(issues, models.Issue{
			Severity:    models.SeverityMedium,
			Kind:        models.KindPriceOutlier,
			Vendor:      q.Vendor(),
			ItemIndex:   models.IntPtr(hi.Index),
			Description: fmt.Sprintf("%q is priced from %s to %s per %s within the same quote (%sx)", b.description, lo.NormalizedUnitPrice.StringFixed(2), hi.NormalizedUnitPrice.StringFixed(2), hi.CanonicalUnit, ratio.StringFixed(1)),
			Details: map[string]interface{}{
				"lowPrice":  lo.NormalizedUnitPrice.StringFixed(2),
				"highPrice": hi.NormalizedUnitPrice.StringFixed(2),
				"ratio":     ratio.StringFixed(2),
				"items":     indexes,
			},
		})
	}
	return issues
}

// bulkDiscounts flags stated line totals far below quantity x unit price.
// The math check already ranks on the recomputed total; this notes that the
// unit price may not carry a volume discount the vendor meant to give.
func (d *Detector) bulkDiscounts(q *models.ValidatedQuote) []models.Issue {
	if !d.cfg.BulkDiscountRatio.IsPositive() {
		return nil
	}
	one := decimal.NewFromInt(1)

	var issues []models.Issue
	for _, it := range q.Items {
		stated := it.Item.Total
		if stated == nil || !it.Item.Quantity.GreaterThan(one) || !it.ExpectedTotal.IsPositive() {
			continue
		}
		if !stated.IsPositive() || !stated.LessThan(it.ExpectedTotal) {
			continue
		}
		discount := it.ExpectedTotal.Sub(*stated).Div(it.ExpectedTotal)
		if discount.LessThan(d.cfg.BulkDiscountRatio) {
			continue
		}
		issues = append(issues, models.Issue{
			Severity:    models.SeverityLow,
			Kind:        models.KindMathMismatch,
			Vendor:      q.Vendor(),
			ItemIndex:   models.IntPtr(it.Index),
			Description: fmt.Sprintf("stated total %s implies a %s%% discount on %s x %s; confirm which price applies", stated.StringFixed(2), discount.Mul(hundred).StringFixed(1), it.Item.Quantity, it.Item.UnitPrice.StringFixed(2)),
			Details: map[string]interface{}{
				"statedTotal":            stated.StringFixed(2),
				"expectedTotal":          it.ExpectedTotal.StringFixed(2),
				"impliedDiscountPercent": discount.Mul(hundred).StringFixed(2),
			},
		})
	}
	return issues
}

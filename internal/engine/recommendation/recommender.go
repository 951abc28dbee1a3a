// Package recommendation selects a winning vendor, computes a split-order
// allocation and explains the choice. It keeps no state between calls.
package recommendation

import (
	"fmt"
	"sort"
	"strings"

	"quote-engine/internal/engine/matching"
	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Recommender struct{}

func NewRecommender() *Recommender {
	return &Recommender{}
}

type candidate struct {
	order    int
	quote    *models.ValidatedQuote
	eligible bool
	reason   string
}

// Recommend consumes validated quotes, their item groups and the issue list.
func (r *Recommender) Recommend(quotes []models.ValidatedQuote, groups []matching.Group, issues []models.Issue) models.Recommendation {
	blocking := blockingIssues(issues)

	var active []candidate
	totals := make([]models.VendorTotal, 0, len(quotes))
	for i := range quotes {
		q := &quotes[i]
		vt := models.VendorTotal{Vendor: q.Vendor(), Total: q.TotalCost}
		switch {
		case q.Excluded():
			vt.Reason = exclusionReason(q)
		case len(blocking[q.Vendor()]) > 0:
			vt.Reason = describeBlocking(blocking[q.Vendor()])
		default:
			vt.Eligible = true
		}
		totals = append(totals, vt)
		if !q.Excluded() {
			active = append(active, candidate{order: i, quote: q, eligible: vt.Eligible, reason: vt.Reason})
		}
	}

	rec := models.Recommendation{
		VendorTotals:    totals,
		SplitOrder:      []models.Allocation{},
		SplitOrderTotal: decimal.Zero,
		Savings:         decimal.Zero,
		TotalCost:       decimal.Zero,
	}

	if len(active) == 0 {
		rec.Rationale = "No vendor could be recommended: every quote was excluded. " + disqualifiedSentence(totals)
		rec.Warnings = append(rec.Warnings, "all quotes excluded from ranking")
		return rec
	}

	pool := eligibleOnly(active)
	if len(pool) == 0 {
		pool = active
		rec.Warnings = append(rec.Warnings,
			"every vendor has unresolved high-severity issues; the lowest-cost vendor was selected anyway and needs manual review")
	}

	winner := cheapest(pool)
	rec.Winner = winner.quote.Vendor()
	rec.TotalCost = winner.quote.TotalCost

	rec.SplitOrder, rec.SplitOrderTotal = splitOrder(winner, pool, groups)
	rec.Savings = decimal.Max(decimal.Zero, rec.TotalCost.Sub(rec.SplitOrderTotal))
	rec.SavingsPercent = savingsPercent(rec.Savings, active)

	if vendors := splitVendors(rec.SplitOrder); len(vendors) > 2 {
		rec.Warnings = append(rec.Warnings,
			fmt.Sprintf("split order spans %d vendors; coordination and delivery risk increase", len(vendors)))
	}

	rec.Rationale = rationale(rec, winner, issues, totals)
	return rec
}

func blockingIssues(issues []models.Issue) map[string][]models.Issue {
	out := make(map[string][]models.Issue)
	for _, is := range issues {
		if is.Blocking() {
			out[is.Vendor] = append(out[is.Vendor], is)
		}
	}
	return out
}

func exclusionReason(q *models.ValidatedQuote) string {
	if q.InputError != nil {
		return "excluded: " + q.InputError.Reason
	}
	return "excluded"
}

func describeBlocking(issues []models.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Kind, is.Description))
	}
	return "high-severity " + strings.Join(parts, "; ")
}

func eligibleOnly(cs []candidate) []candidate {
	var out []candidate
	for _, c := range cs {
		if c.eligible {
			out = append(out, c)
		}
	}
	return out
}

// cheapest picks the lowest total; ties go to the earliest vendor.
func cheapest(cs []candidate) candidate {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.quote.TotalCost.LessThan(best.quote.TotalCost) {
			best = c
		}
	}
	return best
}

// splitOrder buys each item in the winner's basket from the pool vendor
// with the lowest normalized unit price on the same unit basis, at the
// winner's normalized quantity. No line may cost more than the winner's
// own corrected line, so the split never exceeds the winner.
func splitOrder(winner candidate, pool []candidate, groups []matching.Group) ([]models.Allocation, decimal.Decimal) {
	byVendor := make(map[string]candidate, len(pool))
	for _, c := range pool {
		byVendor[c.quote.Vendor()] = c
	}

	winnerName := winner.quote.Vendor()
	groupOf := make(map[int]matching.Group)
	for _, g := range groups {
		if m, ok := g.Member(winnerName); ok {
			groupOf[m.Index] = g
		}
	}

	allocations := []models.Allocation{}
	total := decimal.Zero

	for _, own := range winner.quote.Items {
		alloc := models.Allocation{
			Key:                 matching.Normalize(own.Item.Description),
			Vendor:              winnerName,
			ItemIndex:           own.Index,
			CanonicalUnit:       own.CanonicalUnit,
			Quantity:            own.NormalizedQuantity,
			NormalizedUnitPrice: own.NormalizedUnitPrice,
			Cost:                own.CorrectedTotal,
		}

		g, grouped := groupOf[own.Index]
		if grouped {
			alloc.Key = g.Key
		}

		if own.Priceable && grouped {
			bestPrice := own.NormalizedUnitPrice
			for _, m := range g.Members {
				c, ok := byVendor[m.Vendor]
				if !ok || m.Vendor == winnerName || m.Index >= len(c.quote.Items) {
					continue
				}
				it := c.quote.Items[m.Index]
				if !it.Priceable || it.CanonicalUnit != own.CanonicalUnit {
					continue
				}
				if it.NormalizedUnitPrice.LessThan(bestPrice) {
					bestPrice = it.NormalizedUnitPrice
					alloc.Vendor = m.Vendor
					alloc.ItemIndex = it.Index
					alloc.NormalizedUnitPrice = it.NormalizedUnitPrice
				}
			}
			if alloc.Vendor != winnerName {
				cost := bestPrice.Mul(own.NormalizedQuantity).Round(2)
				alloc.Cost = decimal.Min(cost, own.CorrectedTotal)
			}
		}

		allocations = append(allocations, alloc)
		total = total.Add(alloc.Cost)
	}

	return allocations, total
}

// savingsPercent is savings over the largest vendor total. It is
// undefined with fewer than two totals or a non-positive maximum.
func savingsPercent(savings decimal.Decimal, active []candidate) *decimal.Decimal {
	if len(active) < 2 {
		return nil
	}
	maxTotal := active[0].quote.TotalCost
	for _, c := range active[1:] {
		maxTotal = decimal.Max(maxTotal, c.quote.TotalCost)
	}
	if !maxTotal.IsPositive() {
		return nil
	}
	pct := savings.Div(maxTotal).Mul(hundred).Round(2)
	return &pct
}

func splitVendors(allocs []models.Allocation) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range allocs {
		if _, ok := seen[a.Vendor]; !ok {
			seen[a.Vendor] = struct{}{}
			out = append(out, a.Vendor)
		}
	}
	return out
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func rationale(rec models.Recommendation, winner candidate, issues []models.Issue, totals []models.VendorTotal) string {
	var b strings.Builder

	if winner.eligible {
		fmt.Fprintf(&b, "%s is recommended with the lowest corrected total of %s among eligible vendors.",
			rec.Winner, money(rec.TotalCost))
	} else {
		fmt.Fprintf(&b, "%s is the lowest-cost vendor at %s but is selected with caution: %s.",
			rec.Winner, money(rec.TotalCost), winner.reason)
	}

	vendors := splitVendors(rec.SplitOrder)
	switch {
	case rec.Savings.IsPositive():
		fmt.Fprintf(&b, " Splitting the order across %s would cost %s, saving %s (%s).",
			strings.Join(vendors, ", "), money(rec.SplitOrderTotal), money(rec.Savings), rec.SavingsPercentText())
	default:
		b.WriteString(" A split order offers no savings over buying everything from the winner.")
	}

	if material := materialIssues(rec.Winner, issues); material != "" {
		fmt.Fprintf(&b, " Noted for %s: %s.", rec.Winner, material)
	}

	if s := disqualifiedSentence(totals); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	return b.String()
}

// materialIssues summarizes the winner's medium and high issues by kind.
func materialIssues(vendor string, issues []models.Issue) string {
	counts := make(map[models.IssueKind]int)
	for _, is := range issues {
		if is.Vendor == vendor && is.Severity.Rank() >= models.SeverityMedium.Rank() {
			counts[is.Kind]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

func disqualifiedSentence(totals []models.VendorTotal) string {
	var parts []string
	for _, t := range totals {
		if !t.Eligible {
			parts = append(parts, fmt.Sprintf("%s (%s)", t.Vendor, t.Reason))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Not eligible: " + strings.Join(parts, "; ") + "."
}

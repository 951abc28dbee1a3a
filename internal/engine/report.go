// internal/engine/report.go
package engine

import (
	"fmt"
	"strings"

	"quote-engine/internal/engine/matching"
	"quote-engine/internal/models"
)

// score penalties per issue severity
const (
	penaltyHigh   = 25
	penaltyMedium = 10
	penaltyLow    = 5
)

// applyStatus marks a quote validated_clean only when it was checked and
// produced no issue at all.
func applyStatus(q *models.ValidatedQuote, issues []models.Issue) {
	if q.Excluded() {
		q.ValidationScore = 0
		return
	}

	score := 100
	found := false
	for _, is := range issues {
		if is.Vendor != q.Vendor() {
			continue
		}
		found = true
		switch is.Severity {
		case models.SeverityHigh:
			score -= penaltyHigh
		case models.SeverityMedium:
			score -= penaltyMedium
		default:
			score -= penaltyLow
		}
	}
	if score < 0 {
		score = 0
	}

	q.ValidationScore = score
	if found {
		q.Status = models.StatusIssuesFound
	} else {
		q.Status = models.StatusValidatedClean
	}
}

func buildComparison(quotes []models.ValidatedQuote, groups []matching.Group) models.ComparisonTable {
	byVendor := make(map[string]*models.ValidatedQuote, len(quotes))
	for i := range quotes {
		byVendor[quotes[i].Vendor()] = &quotes[i]
	}

	table := models.ComparisonTable{Rows: make([]models.ComparisonRow, 0, len(groups))}
	for _, g := range groups {
		row := models.ComparisonRow{
			Key:         g.Key,
			Description: g.Description,
			Vendors:     make([]string, 0, len(g.Members)),
			Entries:     make(map[string]models.ComparisonEntry, len(g.Members)),
		}

		var lowest *models.ComparisonEntry
		basis := ""
		for _, m := range g.Members {
			q, ok := byVendor[m.Vendor]
			if !ok || m.Index >= len(q.Items) {
				continue
			}
			it := q.Items[m.Index]
			entry := models.ComparisonEntry{
				ItemIndex:           it.Index,
				Item:                it.Item,
				CanonicalUnit:       it.CanonicalUnit,
				NormalizedQuantity:  it.NormalizedQuantity,
				NormalizedUnitPrice: it.NormalizedUnitPrice,
				CorrectedTotal:      it.CorrectedTotal,
			}
			row.Vendors = append(row.Vendors, m.Vendor)
			row.Entries[m.Vendor] = entry

			// lowest price is only meaningful on the first priced basis
			if !it.Priceable {
				continue
			}
			if basis == "" {
				basis = it.CanonicalUnit
			}
			if it.CanonicalUnit != basis {
				continue
			}
			if lowest == nil || entry.NormalizedUnitPrice.LessThan(lowest.NormalizedUnitPrice) {
				e := entry
				lowest = &e
				row.LowestVendor = m.Vendor
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func summarize(r *models.AnalysisResult) string {
	excluded := 0
	for _, q := range r.Quotes {
		if q.Excluded() {
			excluded++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compared %d vendor quote(s)", len(r.Quotes))
	if excluded > 0 {
		fmt.Fprintf(&b, " (%d excluded)", excluded)
	}
	fmt.Fprintf(&b, " across %d canonical item(s). ", len(r.Comparison.Rows))

	c := r.IssueCounts
	if c.Total == 0 {
		b.WriteString("No issues were detected. ")
	} else {
		fmt.Fprintf(&b, "Detected %d issue(s): %d high, %d medium, %d low. ", c.Total, c.High, c.Medium, c.Low)
	}

	b.WriteString(r.Recommendation.Rationale)
	for _, w := range r.Recommendation.Warnings {
		fmt.Fprintf(&b, " Warning: %s.", w)
	}
	return b.String()
}

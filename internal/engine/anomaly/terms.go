// internal/engine/anomaly/terms.go
package anomaly

import (
	"fmt"
	"regexp"
	"strings"

	"quote-engine/internal/models"
)

const (
	paymentUpfront    = "upfront"
	paymentDeposit    = "deposit"
	paymentOnDelivery = "on_delivery"
	paymentNet        = "net"

	warrantyNone     = "none"
	warrantyProvided = "provided"
)

var (
	upfrontPattern     = regexp.MustCompile(`(?i)100\s*%|full payment|in advance|prepaid|prepayment|pre-payment|upfront|up-front|\bcia\b`)
	depositPattern     = regexp.MustCompile(`(?i)deposit|\b[1-9]\d?\s*%\s*(in\s+)?(down|advance|upfront|up-front)|down payment|balance (due|on|upon)`)
	onDeliveryPattern  = regexp.MustCompile(`(?i)\bcod\b|cash on delivery|(on|upon) (delivery|receipt)|due on receipt`)
	netPattern         = regexp.MustCompile(`(?i)\bnet\s*\d*\b|\d+\s*days`)
	noWarrantyPattern  = regexp.MustCompile(`(?i)no warranty|without warranty|\bas[- ]is\b|^\s*(none|n/?a)\s*$`)
	placeholderPattern = regexp.MustCompile(`(?i)\b(tbd|tba|tbc)\b|to be (determined|confirmed|advised)|call for|on request`)
)

// PaymentCategory buckets free-text payment terms. Empty means unknown.
func PaymentCategory(terms string) string {
	switch {
	case strings.TrimSpace(terms) == "":
		return ""
	case depositPattern.MatchString(terms):
		return paymentDeposit
	case upfrontPattern.MatchString(terms):
		return paymentUpfront
	case onDeliveryPattern.MatchString(terms):
		return paymentOnDelivery
	case netPattern.MatchString(terms):
		return paymentNet
	default:
		return ""
	}
}

// WarrantyCategory buckets free-text warranty terms. Empty means unknown.
func WarrantyCategory(terms string) string {
	switch {
	case strings.TrimSpace(terms) == "":
		return ""
	case noWarrantyPattern.MatchString(terms):
		return warrantyNone
	default:
		return warrantyProvided
	}
}

func (d *Detector) inconsistentTerms(quotes []*models.ValidatedQuote) []models.Issue {
	var issues []models.Issue
	issues = append(issues, outvoted(quotes, "payment", func(q *models.ValidatedQuote) (string, string) {
		return PaymentCategory(q.Quote.Terms.Payment), q.Quote.Terms.Payment
	})...)
	issues = append(issues, outvoted(quotes, "warranty", func(q *models.ValidatedQuote) (string, string) {
		return WarrantyCategory(q.Quote.Terms.Warranty), q.Quote.Terms.Warranty
	})...)

	for _, q := range quotes {
		for _, it := range q.Items {
			if isDeliveryBlocker(it.Item.DeliveryTime) {
				issues = append(issues, models.Issue{
					Severity:    models.SeverityLow,
					Kind:        models.KindInconsistentTerms,
					Vendor:      q.Vendor(),
					ItemIndex:   models.IntPtr(it.Index),
					Description: fmt.Sprintf("delivery time is a placeholder (%q)", it.Item.DeliveryTime),
					Details: map[string]interface{}{
						"category": categoryDeliveryBlocker,
					},
				})
				break
			}
		}
	}
	return issues
}

// outvoted flags vendors whose category differs from a strict majority of
// the vendors with a known category.
func outvoted(quotes []*models.ValidatedQuote, field string, classify func(*models.ValidatedQuote) (string, string)) []models.Issue {
	counts := make(map[string]int)
	known := 0
	for _, q := range quotes {
		if c, _ := classify(q); c != "" {
			counts[c]++
			known++
		}
	}

	majority := ""
	for c, n := range counts {
		if n*2 > known {
			majority = c
		}
	}
	if majority == "" || counts[majority] == known {
		return nil
	}

	var issues []models.Issue
	for _, q := range quotes {
		c, text := classify(q)
		if c == "" || c == majority {
			continue
		}
		issues = append(issues, models.Issue{
			Severity:    models.SeverityLow,
			Kind:        models.KindInconsistentTerms,
			Vendor:      q.Vendor(),
			Description: fmt.Sprintf("%s terms %q (%s) differ from most vendors (%s)", field, text, c, majority),
			Details: map[string]interface{}{
				"field":            field,
				"category":         c,
				"majorityCategory": majority,
			},
		})
	}
	return issues
}

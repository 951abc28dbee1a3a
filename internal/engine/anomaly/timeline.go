// internal/engine/anomaly/timeline.go
package anomaly

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"quote-engine/internal/models"
)

// Details["category"] values owned by the timeline checks.
const (
	categoryDeliveryBlocker = "delivery_blocker"
	categoryDeliverySpread  = "delivery_spread"
	categoryLongDelivery    = "long_delivery"
)

// delayCategory is a procurement step the quote text says is still open.
// Text heuristics stay non-blocking, so the worst severity is medium.
type delayCategory struct {
	name     string
	severity models.Severity
	days     int
	pattern  *regexp.Regexp
}

var delayCategories = []delayCategory{
	{
		name:     "terms_conditions",
		severity: models.SeverityMedium,
		days:     7,
		pattern:  regexp.MustCompile(`(?i)awaiting (terms|contract)|legal review|contract (review|negotiation)|terms (under review|pending|to be agreed)|pending (legal|contract)`),
	},
	{
		name:     "approval",
		severity: models.SeverityMedium,
		days:     5,
		pattern:  regexp.MustCompile(`(?i)(awaiting|pending|subject to) (management |budget |final |internal |credit )?approval|approval (required|pending)`),
	},
	{
		name:     "payment_terms",
		severity: models.SeverityLow,
		days:     3,
		pattern:  regexp.MustCompile(`(?i)credit (terms|check|application)|payment schedule (tbd|to be agreed|pending)|payment terms (pending|to be agreed|under review)`),
	},
	{
		name:     "documentation",
		severity: models.SeverityLow,
		days:     3,
		pattern:  regexp.MustCompile(`(?i)missing (documents|documentation|paperwork)|certificates? (required|pending)|awaiting (documents|documentation|certificates?)|documentation (required|pending)`),
	},
	{
		name:     "technical_review",
		severity: models.SeverityLow,
		days:     5,
		pattern:  regexp.MustCompile(`(?i)technical (review|evaluation|assessment)|engineering (review|approval)|specifications? (under review|pending|to be confirmed)`),
	},
	{
		name:     "supplier_qualification",
		severity: models.SeverityLow,
		days:     10,
		pattern:  regexp.MustCompile(`(?i)(supplier|vendor) (qualification|registration|onboarding)|pending (registration|qualification)`),
	},
}

var (
	deliveryBlockerPattern = regexp.MustCompile(`(?i)under review|pending|awaiting|not confirmed`)
	leadTimePattern        = regexp.MustCompile(`(?i)(\d+)(?:\s*(?:-|to)\s*(\d+))?\s*(business days?|working days?|days?|weeks?|wks?|months?)\b`)
	sameDayPattern         = regexp.MustCompile(`(?i)same[- ]day|overnight`)
	nextDayPattern         = regexp.MustCompile(`(?i)next[- ]day`)
	expressPattern         = regexp.MustCompile(`(?i)\b(express|rush)\b`)
)

// blockerDelayDays is the delay assumed for a delivery time that is not
// committed yet.
const blockerDelayDays = 10

// LeadTimeDays parses a free-text delivery time into calendar days. A
// range counts as its upper bound. ok is false when no duration is stated.
func LeadTimeDays(text string) (int, bool) {
	if m := leadTimePattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		if m[2] != "" {
			if hi, err := strconv.Atoi(m[2]); err == nil && hi > n {
				n = hi
			}
		}
		unit := strings.ToLower(m[3])
		switch {
		case strings.HasPrefix(unit, "w"):
			n *= 7
		case strings.HasPrefix(unit, "month"):
			n *= 30
		}
		return n, true
	}

	switch {
	case sameDayPattern.MatchString(text):
		return 1, true
	case nextDayPattern.MatchString(text):
		return 2, true
	case expressPattern.MatchString(text):
		return 3, true
	}
	return 0, false
}

// isDeliveryBlocker reports a delivery time that is a placeholder rather
// than a commitment.
func isDeliveryBlocker(text string) bool {
	return placeholderPattern.MatchString(text) || deliveryBlockerPattern.MatchString(text)
}

func (d *Detector) timelines(q *models.ValidatedQuote) []models.Issue {
	var issues []models.Issue
	vendor := q.Vendor()

	minDays, maxDays := -1, -1
	for _, it := range q.Items {
		days, ok := LeadTimeDays(it.Item.DeliveryTime)
		if !ok {
			continue
		}
		if minDays < 0 || days < minDays {
			minDays = days
		}
		if days > maxDays {
			maxDays = days
		}
		if d.cfg.LongDeliveryDays > 0 && days > d.cfg.LongDeliveryDays {
			issues = append(issues, models.Issue{
				Severity:    models.SeverityMedium,
				Kind:        models.KindInconsistentTerms,
				Vendor:      vendor,
				ItemIndex:   models.IntPtr(it.Index),
				Description: fmt.Sprintf("delivery time %q is about %d days, beyond %d days", it.Item.DeliveryTime, days, d.cfg.LongDeliveryDays),
				Details: map[string]interface{}{
					"category": categoryLongDelivery,
					"days":     days,
				},
			})
		}
	}

	if d.cfg.DeliverySpreadDays > 0 && maxDays-minDays > d.cfg.DeliverySpreadDays {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityMedium,
			Kind:        models.KindInconsistentTerms,
			Vendor:      vendor,
			Description: fmt.Sprintf("delivery times within the quote range from %d to %d days", minDays, maxDays),
			Details: map[string]interface{}{
				"category": categoryDeliverySpread,
				"minDays":  minDays,
				"maxDays":  maxDays,
			},
		})
	}

	if raw := q.Quote.Source.RawText; raw != "" {
		for _, c := range delayCategories {
			found := c.pattern.FindAllString(raw, -1)
			if len(found) == 0 {
				continue
			}
			issues = append(issues, models.Issue{
				Severity:    c.severity,
				Kind:        models.KindInconsistentTerms,
				Vendor:      vendor,
				Description: fmt.Sprintf("quote text indicates an open %s step that may delay the order", strings.ReplaceAll(c.name, "_", " ")),
				Details: map[string]interface{}{
					"category": c.name,
					"phrases":  dedupeLower(found),
				},
			})
		}
	}
	return issues
}

func dedupeLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var severityPoints = map[models.Severity]int{
	models.SeverityHigh:   20,
	models.SeverityMedium: 10,
	models.SeverityLow:    5,
}

// AssessTimeline scores the delivery risk of q from the timeline issues
// raised against it. The score is capped at 100.
func AssessTimeline(q models.ValidatedQuote, issues []models.Issue) models.TimelineRisk {
	risk := models.TimelineRisk{Level: models.RiskLow}

	for _, it := range q.Items {
		if days, ok := LeadTimeDays(it.Item.DeliveryTime); ok {
			if risk.LeadTimeDays == nil || days > *risk.LeadTimeDays {
				risk.LeadTimeDays = models.IntPtr(days)
			}
		}
	}

	delays := make(map[string]int, len(delayCategories)+1)
	for _, c := range delayCategories {
		delays[c.name] = c.days
	}
	delays[categoryDeliveryBlocker] = blockerDelayDays

	factors := make(map[string]struct{})
	for _, is := range issues {
		if is.Vendor != q.Vendor() {
			continue
		}
		category, _ := is.Details["category"].(string)
		if !isTimelineCategory(category) {
			continue
		}
		risk.Score += severityPoints[is.Severity]
		if _, seen := factors[category]; !seen {
			factors[category] = struct{}{}
			risk.EstimatedDelayDays += delays[category]
			risk.Factors = append(risk.Factors, category)
		}
	}
	sort.Strings(risk.Factors)

	if risk.Score > 100 {
		risk.Score = 100
	}
	switch {
	case risk.Score >= 70:
		risk.Level = models.RiskCritical
	case risk.Score >= 40:
		risk.Level = models.RiskHigh
	case risk.Score >= 20:
		risk.Level = models.RiskMedium
	}
	return risk
}

func isTimelineCategory(category string) bool {
	switch category {
	case categoryDeliveryBlocker, categoryDeliverySpread, categoryLongDelivery:
		return true
	}
	for _, c := range delayCategories {
		if c.name == category {
			return true
		}
	}
	return false
}

package anomaly

import (
	"testing"

	"quote-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDelivery(it models.ValidatedItem, delivery string) models.ValidatedItem {
	it.Item.DeliveryTime = delivery
	return it
}

func byCategory(issues []models.Issue) map[string]models.Issue {
	out := make(map[string]models.Issue)
	for _, is := range issues {
		if c, ok := is.Details["category"].(string); ok {
			out[c] = is
		}
	}
	return out
}

// ==========================
// Lead time parsing
// ==========================

func TestLeadTimeDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"5 days", 5, true},
		{"Ships in 2 weeks", 14, true},
		{"2-3 weeks", 21, true},
		{"3 to 5 days", 5, true},
		{"3 wks", 21, true},
		{"1 month", 30, true},
		{"10 business days", 10, true},
		{"Same day", 1, true},
		{"overnight", 1, true},
		{"Next-day delivery", 2, true},
		{"Express", 3, true},
		{"Express, 2 days", 2, true},
		{"TBD", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := LeadTimeDays(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ==========================
// Delivery checks
// ==========================

func TestDetect_DeliverySpreadWithinQuote(t *testing.T) {
	q := vQuote("A",
		withDelivery(vItem(0, "Widget", "1", "each", "10"), "2 days"),
		withDelivery(vItem(1, "Gadget", "1", "each", "10"), "3 weeks"),
	)

	issues := NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q}, nil)

	require.Len(t, issues, 1)
	assert.Equal(t, models.KindInconsistentTerms, issues[0].Kind)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
	assert.Equal(t, categoryDeliverySpread, issues[0].Details["category"])
	assert.Equal(t, 2, issues[0].Details["minDays"])
	assert.Equal(t, 21, issues[0].Details["maxDays"])
}

func TestDetect_DeliverySpreadAtBoundary(t *testing.T) {
	q := vQuote("A",
		withDelivery(vItem(0, "Widget", "1", "each", "10"), "1 week"),
		withDelivery(vItem(1, "Gadget", "1", "each", "10"), "3 weeks"),
	)

	assert.Empty(t, NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q}, nil))
}

func TestDetect_LongDelivery(t *testing.T) {
	q := vQuote("A",
		withDelivery(vItem(0, "Widget", "1", "each", "10"), "6 weeks"),
		withDelivery(vItem(1, "Gadget", "1", "each", "10"), "30 days"),
	)

	issues := NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q}, nil)

	found := byCategory(issues)
	require.Contains(t, found, categoryLongDelivery)
	long := found[categoryLongDelivery]
	assert.Equal(t, models.SeverityMedium, long.Severity)
	assert.Equal(t, 0, *long.ItemIndex)
	assert.Equal(t, 42, long.Details["days"])
	assert.NotContains(t, found, categoryDeliverySpread)
}

func TestDetect_DeliveryBlocker(t *testing.T) {
	for _, delivery := range []string{"TBD", "Under review", "Pending stock check", "Awaiting supplier"} {
		t.Run(delivery, func(t *testing.T) {
			q := vQuote("A", withDelivery(vItem(0, "Widget", "1", "each", "10"), delivery))

			issues := NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q}, nil)

			require.Len(t, issues, 1)
			assert.Equal(t, models.SeverityLow, issues[0].Severity)
			assert.Equal(t, categoryDeliveryBlocker, issues[0].Details["category"])
		})
	}
}

// ==========================
// Delay language
// ==========================

func TestDetect_DelayLanguage(t *testing.T) {
	q := vQuote("A", vItem(0, "Widget", "1", "each", "10"))
	q.Quote.Source.RawText = "Order pending budget approval. Final pricing subject to legal review. " +
		"Certificates required before dispatch."

	issues := NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q}, nil)

	found := byCategory(issues)
	require.Len(t, found, 3)

	assert.Equal(t, models.SeverityMedium, found["approval"].Severity)
	assert.Equal(t, []string{"pending budget approval"}, found["approval"].Details["phrases"])
	assert.Equal(t, models.SeverityMedium, found["terms_conditions"].Severity)
	assert.Equal(t, models.SeverityLow, found["documentation"].Severity)
	for _, is := range issues {
		assert.Equal(t, models.KindInconsistentTerms, is.Kind)
		assert.False(t, is.Blocking(), is.Description)
	}
}

// ==========================
// Timeline risk
// ==========================

func TestAssessTimeline(t *testing.T) {
	q := vQuote("A",
		withDelivery(vItem(0, "Widget", "1", "each", "10"), "TBD"),
		withDelivery(vItem(1, "Gadget", "1", "each", "10"), "6 weeks"),
	)
	q.Quote.Source.RawText = "Awaiting management approval. Contract review in progress."
	other := vQuote("B", withDelivery(vItem(0, "Widget", "1", "each", "10"), "TBD"))

	issues := NewDetector(DefaultConfig()).Detect([]models.ValidatedQuote{q, other}, nil)
	risk := AssessTimeline(q, issues)

	// blocker 5 + long delivery 10 + approval 10 + terms 10
	assert.Equal(t, 35, risk.Score)
	assert.Equal(t, models.RiskMedium, risk.Level)
	require.NotNil(t, risk.LeadTimeDays)
	assert.Equal(t, 42, *risk.LeadTimeDays)
	assert.Equal(t, blockerDelayDays+5+7, risk.EstimatedDelayDays)
	assert.Equal(t, []string{"approval", categoryDeliveryBlocker, categoryLongDelivery, "terms_conditions"}, risk.Factors)
}

func TestAssessTimeline_Levels(t *testing.T) {
	issue := func(category string, severity models.Severity) models.Issue {
		return models.Issue{
			Severity: severity,
			Kind:     models.KindInconsistentTerms,
			Vendor:   "A",
			Details:  map[string]interface{}{"category": category},
		}
	}
	repeat := func(n int, is models.Issue) []models.Issue {
		out := make([]models.Issue, n)
		for i := range out {
			out[i] = is
		}
		return out
	}
	q := vQuote("A", vItem(0, "Widget", "1", "each", "10"))

	tests := []struct {
		name   string
		issues []models.Issue
		score  int
		level  models.RiskLevel
	}{
		{"none", nil, 0, models.RiskLow},
		{"one low", repeat(1, issue("documentation", models.SeverityLow)), 5, models.RiskLow},
		{"two medium", repeat(2, issue("approval", models.SeverityMedium)), 20, models.RiskMedium},
		{"four medium", repeat(4, issue("approval", models.SeverityMedium)), 40, models.RiskHigh},
		{"seven medium", repeat(7, issue("approval", models.SeverityMedium)), 70, models.RiskCritical},
		{"capped", repeat(12, issue("approval", models.SeverityMedium)), 100, models.RiskCritical},
		{"unrelated category", repeat(3, issue("net", models.SeverityLow)), 0, models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := AssessTimeline(q, tt.issues)
			assert.Equal(t, tt.score, risk.Score)
			assert.Equal(t, tt.level, risk.Level)
			assert.Nil(t, risk.LeadTimeDays)
		})
	}
}

// internal/models/analysis.go
package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Correction pairs a vendor-stated amount with the recomputed one.
type Correction struct {
	Original  decimal.Decimal `json:"original"`
	Corrected decimal.Decimal `json:"corrected"`
	Reason    string          `json:"correctionReason"`
	Major     bool            `json:"major"`
}

// ValidatedItem is an immutable, normalized and recomputed view of one
// QuoteItem. Item keeps the line exactly as the vendor stated it.
type ValidatedItem struct {
	Index               int             `json:"index"`
	Item                QuoteItem       `json:"item"`
	CanonicalUnit       string          `json:"canonicalUnit"`
	UnitMultiplier      decimal.Decimal `json:"unitMultiplier"`
	NormalizedQuantity  decimal.Decimal `json:"normalizedQuantity"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	ExpectedTotal       decimal.Decimal `json:"expectedTotal"`
	CorrectedTotal      decimal.Decimal `json:"correctedTotal"`
	Correction          *Correction     `json:"correction,omitempty"`
	Priceable           bool            `json:"priceable"`
}

type QuoteStatus string

const (
	StatusValidatedClean QuoteStatus = "validated_clean"
	StatusIssuesFound    QuoteStatus = "issues_found"
	StatusExcluded       QuoteStatus = "excluded"
)

// InputError marks a single vendor quote as unusable for ranking.
type InputError struct {
	Vendor string `json:"vendor"`
	Reason string `json:"reason"`
}

func (e *InputError) Error() string {
	return fmt.Sprintf("vendor %q: %s", e.Vendor, e.Reason)
}

type ValidatedQuote struct {
	Quote           VendorQuote     `json:"quote"`
	Items           []ValidatedItem `json:"items"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	TotalCorrection *Correction     `json:"totalCorrection,omitempty"`
	Status          QuoteStatus     `json:"status"`
	InputError      *InputError     `json:"inputError,omitempty"`
	ValidationScore int             `json:"validationScore"`
	Timeline        TimelineRisk    `json:"timeline"`
	Notes           []string        `json:"notes,omitempty"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TimelineRisk summarizes delivery and procurement delay signals for one
// vendor. LeadTimeDays is the longest parsed delivery time, nil when no
// item states one.
type TimelineRisk struct {
	Score              int       `json:"score"`
	Level              RiskLevel `json:"level"`
	LeadTimeDays       *int      `json:"leadTimeDays,omitempty"`
	EstimatedDelayDays int       `json:"estimatedDelayDays"`
	Factors            []string  `json:"factors,omitempty"`
}

func (v ValidatedQuote) Vendor() string {
	return v.Quote.VendorName
}

func (v ValidatedQuote) Excluded() bool {
	return v.Status == StatusExcluded
}

// ComparisonEntry is one vendor's line inside a canonical item row.
type ComparisonEntry struct {
	ItemIndex           int             `json:"itemIndex"`
	Item                QuoteItem       `json:"item"`
	CanonicalUnit       string          `json:"canonicalUnit"`
	NormalizedQuantity  decimal.Decimal `json:"normalizedQuantity"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	CorrectedTotal      decimal.Decimal `json:"correctedTotal"`
}

type ComparisonRow struct {
	Key          string                     `json:"key"`
	Description  string                     `json:"description"`
	Vendors      []string                   `json:"vendors"`
	Entries      map[string]ComparisonEntry `json:"entries"`
	LowestVendor string                     `json:"lowestVendor,omitempty"`
}

// ComparisonTable is ordered by first appearance of each canonical item.
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}

// Allocation is one canonical item bought from one vendor in a split order.
type Allocation struct {
	Key                 string          `json:"key"`
	Vendor              string          `json:"vendor"`
	ItemIndex           int             `json:"itemIndex"`
	CanonicalUnit       string          `json:"canonicalUnit"`
	Quantity            decimal.Decimal `json:"quantity"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	Cost                decimal.Decimal `json:"cost"`
}

type VendorTotal struct {
	Vendor   string          `json:"vendor"`
	Total    decimal.Decimal `json:"total"`
	Eligible bool            `json:"eligible"`
	Reason   string          `json:"reason,omitempty"`
}

type Recommendation struct {
	Winner          string           `json:"winner,omitempty"`
	TotalCost       decimal.Decimal  `json:"totalCost"`
	Rationale       string           `json:"rationale"`
	SplitOrder      []Allocation     `json:"splitOrder"`
	SplitOrderTotal decimal.Decimal  `json:"splitOrderTotal"`
	Savings         decimal.Decimal  `json:"savings"`
	SavingsPercent  *decimal.Decimal `json:"savingsPercent"`
	VendorTotals    []VendorTotal    `json:"vendorTotals"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// SavingsPercentText renders the percentage or "N/A" when undefined.
func (r Recommendation) SavingsPercentText() string {
	if r.SavingsPercent == nil {
		return "N/A"
	}
	return r.SavingsPercent.StringFixed(1) + "%"
}

type AnalysisResult struct {
	Quotes         []ValidatedQuote `json:"quotes"`
	Comparison     ComparisonTable  `json:"comparison"`
	Issues         []Issue          `json:"issues"`
	IssueCounts    IssueCounts      `json:"issueCounts"`
	Recommendation Recommendation   `json:"recommendation"`
	Summary        string           `json:"summary"`
}

// IssuesFor returns the issues raised against one vendor, in order.
func (a *AnalysisResult) IssuesFor(vendor string) []Issue {
	var out []Issue
	for _, is := range a.Issues {
		if is.Vendor == vendor {
			out = append(out, is)
		}
	}
	return out
}

func (a *AnalysisResult) Quote(vendor string) (ValidatedQuote, bool) {
	for _, q := range a.Quotes {
		if q.Vendor() == vendor {
			return q, true
		}
	}
	return ValidatedQuote{}, false
}

// internal/models/issue.go
package models

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so they can be compared.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type IssueKind string

const (
	KindMissingItem       IssueKind = "missing_item"
	KindMathMismatch      IssueKind = "math_mismatch"
	KindPriceOutlier      IssueKind = "price_outlier"
	KindQuantityOutlier   IssueKind = "quantity_outlier"
	KindUnitMismatch      IssueKind = "unit_mismatch"
	KindHiddenFee         IssueKind = "hidden_fee"
	KindInconsistentTerms IssueKind = "inconsistent_terms"
)

// Issue is a recoverable finding. It never aborts an analysis.
// Resolved is set when the engine already compensated for it, e.g. by
// ranking on a corrected total.
type Issue struct {
	Severity    Severity               `json:"severity"`
	Kind        IssueKind              `json:"kind"`
	Vendor      string                 `json:"vendor"`
	ItemIndex   *int                   `json:"itemIndex,omitempty"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Resolved    bool                   `json:"resolved"`
}

// Blocking reports whether the issue disqualifies a vendor from winning.
func (i Issue) Blocking() bool {
	return i.Severity == SeverityHigh && !i.Resolved
}

func IntPtr(i int) *int {
	return &i
}

// IssueCounts tallies issues by severity.
type IssueCounts struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func CountIssues(issues []Issue) IssueCounts {
	var c IssueCounts
	for _, is := range issues {
		c.Total++
		switch is.Severity {
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}

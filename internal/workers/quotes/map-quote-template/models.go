// internal/workers/quotes/map-quote-template/models.go
package mapquotetemplate

import (
	"github.com/shopspring/decimal"

	"quote-engine/internal/engine/templates"
	"quote-engine/internal/models"
)

type Input struct {
	RequestID  string             `json:"requestId,omitempty" validate:"omitempty,request_id"`
	TemplateID string             `json:"templateId" validate:"required"`
	Quote      models.VendorQuote `json:"quote"`
	// TotalCost is the corrected total from a prior comparison. The
	// vendor's stated total is used when it is absent.
	TotalCost *decimal.Decimal `json:"totalCost,omitempty"`
}

type Output struct {
	Mapping          *templates.Result `json:"mapping"`
	SchemaViolations []string          `json:"schemaViolations,omitempty"`
}

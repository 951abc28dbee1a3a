// internal/workers/quotes/record-analysis/models.go
package recordanalysis

import "quote-engine/internal/models"

type Input struct {
	RequestID string                 `json:"requestId" validate:"request_id"`
	Analysis  *models.AnalysisResult `json:"analysis" validate:"required"`
}

type Output struct {
	AnalysisID string `json:"analysisId"`
	RecordedAt string `json:"recordedAt"` // RFC 3339
}

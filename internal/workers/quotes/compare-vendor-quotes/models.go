// internal/workers/quotes/compare-vendor-quotes/models.go
package comparevendorquotes

import "quote-engine/internal/models"

type Input struct {
	RequestID  string               `json:"requestId" validate:"request_id"`
	Quotes     []models.VendorQuote `json:"quotes" validate:"max=50"`
	Thresholds *Thresholds          `json:"thresholds,omitempty"`
}

// Thresholds override the configured engine settings for one request.
// Ratios are fractions; outlier ratios are multiples of the peer median.
type Thresholds struct {
	MathTolerance         *float64 `json:"mathTolerance,omitempty" validate:"omitempty,gt=0,lt=1"`
	MatchThreshold        *float64 `json:"matchThreshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	PriceOutlierRatio     *float64 `json:"priceOutlierRatio,omitempty" validate:"omitempty,gt=1"`
	PriceOutlierHighRatio *float64 `json:"priceOutlierHighRatio,omitempty" validate:"omitempty,gt=1"`
	QuantityOutlierRatio  *float64 `json:"quantityOutlierRatio,omitempty" validate:"omitempty,gt=1"`
}

type Output struct {
	Analysis *models.AnalysisResult `json:"analysis"`
	CacheHit bool                   `json:"cacheHit"`
}

// internal/engine/settings.go
package engine

import (
	"github.com/shopspring/decimal"

	"quote-engine/internal/common/config"
)

// ConfigFromSettings converts the loaded engine section into analysis
// thresholds. Zero values keep the defaults.
func ConfigFromSettings(s config.EngineConfig) Config {
	cfg := DefaultConfig()

	setDecimal(&cfg.Math.Tolerance, s.MathTolerance)
	setDecimal(&cfg.Math.MajorThreshold, s.MajorCorrection)
	setDecimal(&cfg.Math.RoundingTolerance, s.RoundingTolerance)

	setDecimal(&cfg.Anomaly.PriceOutlierRatio, s.PriceOutlierRatio)
	setDecimal(&cfg.Anomaly.PriceOutlierHighRatio, s.PriceOutlierHighRatio)
	setDecimal(&cfg.Anomaly.QuantityOutlierRatio, s.QuantityOutlierRatio)
	setDecimal(&cfg.Anomaly.FeeMatchTolerance, s.FeeMatchTolerance)
	setDecimal(&cfg.Anomaly.InternalPriceRatio, s.InternalPriceRatio)
	setDecimal(&cfg.Anomaly.BulkDiscountRatio, s.BulkDiscountRatio)
	if s.LongDeliveryDays > 0 {
		cfg.Anomaly.LongDeliveryDays = s.LongDeliveryDays
	}
	if s.DeliverySpreadDays > 0 {
		cfg.Anomaly.DeliverySpreadDays = s.DeliverySpreadDays
	}
	if len(s.FeePercentages) > 0 {
		cfg.Anomaly.FeePercentages = make([]decimal.Decimal, len(s.FeePercentages))
		for i, p := range s.FeePercentages {
			cfg.Anomaly.FeePercentages[i] = decimal.NewFromFloat(p)
		}
	}
	if len(s.JustificationKeywords) > 0 {
		cfg.Anomaly.JustificationKeywords = append([]string(nil), s.JustificationKeywords...)
	}

	if s.MatchThreshold > 0 {
		cfg.MatchThreshold = s.MatchThreshold
	}
	cfg.MaxParallel = s.MaxParallel
	return cfg
}

func setDecimal(dst *decimal.Decimal, v float64) {
	if v != 0 {
		*dst = decimal.NewFromFloat(v)
	}
}

// internal/workers/quotes/compare-vendor-quotes/handler.go
package comparevendorquotes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"quote-engine/internal/common/database"
	"quote-engine/internal/common/errors"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/common/metrics"
	"quote-engine/internal/common/observability"
	"quote-engine/internal/common/validation"
	"quote-engine/internal/engine"
	"quote-engine/internal/models"
)

const TaskType = "compare-vendor-quotes"

type Handler struct {
	config       *Config
	engine       *engine.Engine
	redis        redis.Cmdable
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the handler. redisClient may be nil, which disables
// the analysis cache.
func NewHandler(config *Config, redisClient redis.Cmdable, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = &observability.Observability{}
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine.New(config.Engine, engine.WithLogger(log)),
		redis:        redisClient,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, errors.NewQuoteInputInvalidError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if res := validation.Struct(input); !res.Valid {
		return nil, errors.NewQuoteInputInvalidError(res.Error())
	}

	eng, err := h.engineFor(input.Thresholds)
	if err != nil {
		return nil, err
	}

	key := ""
	if h.cacheEnabled() && len(input.Quotes) > 0 {
		key, err = h.cacheKey(input)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if cached := h.lookup(ctx, key, input.RequestID); cached != nil {
			h.obs.RecordAnalysis(ctx, len(input.Quotes), true)
			return &Output{Analysis: cached, CacheHit: true}, nil
		}
	}

	result, err := eng.Analyze(ctx, input.Quotes)
	if err != nil {
		return nil, err
	}

	metrics.ObserveAnalysis(result)
	h.obs.RecordAnalysis(ctx, len(input.Quotes), false)

	if key != "" {
		if err := database.SetJSON(ctx, h.redis, key, result, h.config.CacheTTL); err != nil {
			h.logger.Warn("analysis not cached", map[string]interface{}{
				"requestId": input.RequestID,
				"error":     errors.NewCacheUnavailableError(err).Error(),
			})
		}
	}

	h.logger.Info("quotes compared", map[string]interface{}{
		"requestId": input.RequestID,
		"vendors":   len(result.Quotes),
		"winner":    result.Recommendation.Winner,
		"issues":    result.IssueCounts.Total,
	})

	return &Output{Analysis: result}, nil
}

func (h *Handler) cacheEnabled() bool {
	return h.config.CacheEnabled && h.redis != nil
}

// lookup returns the cached analysis, or nil on a miss or cache failure.
func (h *Handler) lookup(ctx context.Context, key, requestID string) *models.AnalysisResult {
	var cached models.AnalysisResult
	found, err := database.GetJSON(ctx, h.redis, key, &cached)
	switch {
	case err != nil:
		metrics.AnalysisCacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("analysis cache unavailable, computing uncached", map[string]interface{}{
			"requestId": requestID,
			"error":     errors.NewCacheUnavailableError(err).Error(),
		})
		return nil
	case !found:
		metrics.AnalysisCacheLookups.WithLabelValues("miss").Inc()
		return nil
	default:
		metrics.AnalysisCacheLookups.WithLabelValues("hit").Inc()
		return &cached
	}
}

// cacheKey hashes everything that influences the analysis: the quotes and
// the effective engine thresholds after job overrides. The engine is
// deterministic, so equal keys always mean equal results.
func (h *Handler) cacheKey(input *Input) (string, error) {
	cfg, err := h.effectiveConfig(input.Thresholds)
	if err != nil {
		return "", err
	}
	// parallelism never changes the result
	cfg.MaxParallel = 0

	payload, err := json.Marshal(struct {
		Quotes []models.VendorQuote `json:"quotes"`
		Engine engine.Config        `json:"engine"`
	}{input.Quotes, cfg})
	if err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	sum := sha256.Sum256(payload)
	return h.config.CacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

// engineFor returns the shared engine, or a request-scoped one when the
// job overrides thresholds.
func (h *Handler) engineFor(t *Thresholds) (*engine.Engine, error) {
	if t == nil {
		return h.engine, nil
	}
	cfg, err := h.effectiveConfig(t)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, engine.WithLogger(h.logger)), nil
}

// effectiveConfig applies job overrides on top of the process thresholds.
func (h *Handler) effectiveConfig(t *Thresholds) (engine.Config, error) {
	cfg := h.config.Engine
	if t == nil {
		return cfg, nil
	}
	if t.MathTolerance != nil {
		cfg.Math.Tolerance = decimal.NewFromFloat(*t.MathTolerance)
		if !cfg.Math.Tolerance.LessThan(cfg.Math.MajorThreshold) {
			return cfg, errors.NewQuoteInputInvalidError("thresholds.mathTolerance must be below the major correction threshold")
		}
	}
	if t.MatchThreshold != nil {
		cfg.MatchThreshold = *t.MatchThreshold
	}
	if t.PriceOutlierRatio != nil {
		cfg.Anomaly.PriceOutlierRatio = decimal.NewFromFloat(*t.PriceOutlierRatio)
	}
	if t.PriceOutlierHighRatio != nil {
		cfg.Anomaly.PriceOutlierHighRatio = decimal.NewFromFloat(*t.PriceOutlierHighRatio)
	}
	if !cfg.Anomaly.PriceOutlierRatio.LessThan(cfg.Anomaly.PriceOutlierHighRatio) {
		return cfg, errors.NewQuoteInputInvalidError("thresholds.priceOutlierRatio must be below thresholds.priceOutlierHighRatio")
	}
	if t.QuantityOutlierRatio != nil {
		cfg.Anomaly.QuantityOutlierRatio = decimal.NewFromFloat(*t.QuantityOutlierRatio)
	}
	return cfg, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

// fail reports err on a fresh context; the job context may have expired.
func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errorHandler.HandleJobError(context.Background(), client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
}

// Package engine turns a batch of extracted vendor quotes into one
// AnalysisResult. Per-vendor normalization and validation fan out; item
// matching, anomaly detection and the recommendation run on the full batch.
package engine

import (
	"context"
	stderrors "errors"
	"runtime"
	"time"

	"quote-engine/internal/common/errors"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/engine/anomaly"
	"quote-engine/internal/engine/matching"
	"quote-engine/internal/engine/mathcheck"
	"quote-engine/internal/engine/recommendation"
	"quote-engine/internal/engine/units"
	"quote-engine/internal/models"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyBatch is wrapped by the QUOTE_BATCH_EMPTY error Analyze returns.
var ErrEmptyBatch = stderrors.New("quote batch is empty")

// Config carries every engine threshold. It is copied into the engine and
// never mutated.
type Config struct {
	Math           mathcheck.Config
	Anomaly        anomaly.Config
	MatchThreshold float64
	// MaxParallel bounds the per-vendor fan-out; <= 0 means GOMAXPROCS.
	MaxParallel int
}

func DefaultConfig() Config {
	return Config{
		Math:           mathcheck.DefaultConfig(),
		Anomaly:        anomaly.DefaultConfig(),
		MatchThreshold: matching.DefaultThreshold,
	}
}

type Option func(*Engine)

// WithMatcher replaces the token matcher.
func WithMatcher(m matching.Matcher) Option {
	return func(e *Engine) {
		e.matcher = m
	}
}

func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	cfg         Config
	normalizer  *units.Normalizer
	validator   *mathcheck.Validator
	matcher     matching.Matcher
	detector    *anomaly.Detector
	recommender *recommendation.Recommender
	log         logger.Logger
}

func New(cfg Config, opts ...Option) *Engine {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		cfg:         cfg,
		normalizer:  units.NewNormalizer(),
		validator:   mathcheck.NewValidator(cfg.Math),
		matcher:     matching.NewTokenMatcher(cfg.MatchThreshold),
		detector:    anomaly.NewDetector(cfg.Anomaly),
		recommender: recommendation.NewRecommender(),
		log:         logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// vendorResult is the output of the per-vendor stage.
type vendorResult struct {
	quote  models.ValidatedQuote
	issues []models.Issue
}

// Analyze compares quotes. An empty batch fails the whole request; a
// malformed vendor quote is excluded and reported but never aborts the
// rest. A cancelled ctx yields no result.
func (e *Engine) Analyze(ctx context.Context, quotes []models.VendorQuote) (*models.AnalysisResult, error) {
	if len(quotes) == 0 {
		return nil, errors.NewQuoteBatchEmptyError(ErrEmptyBatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewAnalysisCancelledError(err)
	}

	start := time.Now()
	prepared := prepare(quotes)

	perVendor, err := e.validateAll(ctx, prepared)
	if err != nil {
		return nil, errors.NewAnalysisCancelledError(err)
	}

	validated := make([]models.ValidatedQuote, len(perVendor))
	var issues []models.Issue
	for i, r := range perVendor {
		validated[i] = r.quote
		issues = append(issues, r.issues...)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewAnalysisCancelledError(err)
	}

	groups := e.matcher.Match(matchBatch(validated))
	issues = append(issues, matching.MissingItemIssues(groups, activeVendors(validated), feeOnlyGroup)...)
	issues = append(issues, e.detector.Detect(validated, groups)...)

	if err := ctx.Err(); err != nil {
		return nil, errors.NewAnalysisCancelledError(err)
	}

	for i := range validated {
		applyStatus(&validated[i], issues)
		if !validated[i].Excluded() {
			validated[i].Timeline = anomaly.AssessTimeline(validated[i], issues)
		}
	}

	if issues == nil {
		issues = []models.Issue{}
	}

	result := &models.AnalysisResult{
		Quotes:         validated,
		Comparison:     buildComparison(validated, groups),
		Issues:         issues,
		IssueCounts:    models.CountIssues(issues),
		Recommendation: e.recommender.Recommend(validated, groups, issues),
	}
	result.Summary = summarize(result)

	e.log.Debug("quote analysis complete", map[string]interface{}{
		"vendors":    len(validated),
		"groups":     len(groups),
		"issues":     result.IssueCounts.Total,
		"winner":     result.Recommendation.Winner,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}

// validateAll runs normalization and math validation per vendor. Results
// land in input order regardless of completion order.
func (e *Engine) validateAll(ctx context.Context, prepared []preparedQuote) ([]vendorResult, error) {
	results := make([]vendorResult, len(prepared))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallel)

	for i := range prepared {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.validateQuote(prepared[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) validateQuote(p preparedQuote) vendorResult {
	vq := models.ValidatedQuote{
		Quote:      p.quote,
		Items:      []models.ValidatedItem{},
		Status:     models.StatusIssuesFound,
		InputError: p.inputError,
		Notes:      p.notes,
	}

	if p.excluded {
		vq.Status = models.StatusExcluded
		return vendorResult{quote: vq}
	}

	vendor := p.quote.VendorName
	res := e.validator.Validate(p.quote)
	issues := res.Issues

	for i, item := range p.quote.Items {
		nr := e.normalizer.Normalize(item.Quantity, item.Unit, item.UnitPrice, item.Description)
		if !nr.Known {
			issues = append(issues, units.UnknownUnitIssue(vendor, i, item.Unit))
		}
		line := res.Lines[i]
		vq.Items = append(vq.Items, models.ValidatedItem{
			Index:               i,
			Item:                item,
			CanonicalUnit:       nr.CanonicalUnit,
			UnitMultiplier:      nr.Multiplier,
			NormalizedQuantity:  nr.NormalizedQuantity,
			NormalizedUnitPrice: nr.NormalizedUnitPrice,
			ExpectedTotal:       line.Expected,
			CorrectedTotal:      line.Corrected,
			Correction:          line.Correction,
			Priceable:           line.Priceable,
		})
	}

	vq.TotalCost = res.Total
	vq.TotalCorrection = res.TotalCorrection
	e.log.Debug("vendor quote validated", map[string]interface{}{
		"vendor": vendor,
		"items":  len(vq.Items),
		"total":  vq.TotalCost.StringFixed(2),
		"issues": len(issues),
	})
	return vendorResult{quote: vq, issues: issues}
}

func matchBatch(quotes []models.ValidatedQuote) [][]matching.Item {
	batch := make([][]matching.Item, 0, len(quotes))
	for _, q := range quotes {
		if q.Excluded() {
			continue
		}
		items := make([]matching.Item, 0, len(q.Items))
		for _, it := range q.Items {
			items = append(items, matching.Item{
				Vendor:      q.Vendor(),
				Index:       it.Index,
				Description: it.Item.Description,
			})
		}
		batch = append(batch, items)
	}
	return batch
}

func activeVendors(quotes []models.ValidatedQuote) []string {
	var out []string
	for _, q := range quotes {
		if !q.Excluded() {
			out = append(out, q.Vendor())
		}
	}
	return out
}

// feeOnlyGroup keeps fee lines from being reported as missing items; the
// anomaly detector already owns them.
func feeOnlyGroup(g matching.Group) bool {
	for _, m := range g.Members {
		if !anomaly.IsFeeLine(m.Description) {
			return false
		}
	}
	return len(g.Members) > 0
}

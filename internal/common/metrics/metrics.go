// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quote-engine/internal/models"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	QuoteAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_analyses_total",
			Help: "Comparisons run, by whether a vendor was recommended",
		},
		[]string{"outcome"},
	)

	QuoteIssuesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_issues_detected_total",
			Help: "Issues raised across all analyzed quotes",
		},
		[]string{"kind", "severity"},
	)

	QuoteSplitSavings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quote_split_savings_percent",
			Help:    "Savings of the split order over the winner, as a percent of the highest quote",
			Buckets: []float64{0, 1, 2.5, 5, 10, 20, 35, 50},
		},
	)

	TemplateComplianceScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_template_compliance_score",
			Help:    "Template compliance score of mapped quotes",
			Buckets: []float64{25, 50, 70, 80, 90, 100},
		},
		[]string{"template_id"},
	)

	AnalysisCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_analysis_cache_lookups_total",
			Help: "Analysis cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// ObserveAnalysis records the outcome of one comparison.
func ObserveAnalysis(result *models.AnalysisResult) {
	if result == nil {
		return
	}
	outcome := "recommended"
	if result.Recommendation.Winner == "" {
		outcome = "no_recommendation"
	}
	QuoteAnalyses.WithLabelValues(outcome).Inc()

	for _, issue := range result.Issues {
		QuoteIssuesDetected.WithLabelValues(string(issue.Kind), string(issue.Severity)).Inc()
	}

	if pct := result.Recommendation.SavingsPercent; pct != nil {
		f, _ := pct.Float64()
		QuoteSplitSavings.Observe(f)
	}
}

// internal/workers/quotes/record-analysis/handler.go
package recordanalysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quote-engine/internal/common/errors"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/common/metrics"
	"quote-engine/internal/common/validation"
)

const TaskType = "record-analysis"

const insertAnalysis = `
INSERT INTO quote_analyses (
    id, request_id, winner, winner_total, split_total, savings,
    savings_pct, issue_count, high_issue_count, payload
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

type Handler struct {
	config       *Config
	db           *sql.DB
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, errors.NewQuoteInputInvalidError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

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

	a := input.Analysis
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("encode analysis: %w", err))
	}

	rec := a.Recommendation
	pct := decimal.NullDecimal{}
	if rec.SavingsPercent != nil {
		pct = decimal.NullDecimal{Decimal: *rec.SavingsPercent, Valid: true}
	}

	id := uuid.New()
	var createdAt time.Time
	err = h.db.QueryRowContext(ctx, insertAnalysis,
		id.String(),
		input.RequestID,
		sql.NullString{String: rec.Winner, Valid: rec.Winner != ""},
		rec.TotalCost.Round(2),
		rec.SplitOrderTotal.Round(2),
		rec.Savings.Round(2),
		pct,
		a.IssueCounts.Total,
		a.IssueCounts.High,
		string(payload),
	).Scan(&createdAt)
	if err != nil {
		return nil, errors.NewAnalysisPersistFailedError(err).
			WithMetadata("requestId", input.RequestID)
	}

	h.logger.Info("analysis recorded", map[string]interface{}{
		"requestId":  input.RequestID,
		"analysisId": id.String(),
		"winner":     rec.Winner,
	})

	return &Output{
		AnalysisID: id.String(),
		RecordedAt: createdAt.UTC().Format(time.RFC3339),
	}, nil
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

func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errorHandler.HandleJobError(context.Background(), client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
}

// internal/workers/quotes/map-quote-template/handler.go
package mapquotetemplate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"quote-engine/internal/common/errors"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/common/metrics"
	"quote-engine/internal/common/observability"
	"quote-engine/internal/common/validation"
	"quote-engine/internal/engine/templates"
	"quote-engine/pkg/registry"
)

const TaskType = "map-quote-template"

type templateCacheEntry struct {
	template *registry.OrganizationTemplate
	loadedAt time.Time
}

type Handler struct {
	config       *Config
	mapper       *templates.Mapper
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
	cache        map[string]*templateCacheEntry
	mu           sync.RWMutex
}

func NewHandler(config *Config, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = &observability.Observability{}
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		mapper:       templates.NewMapper(config.Mapper),
		obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
		cache:        make(map[string]*templateCacheEntry),
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

	tmpl, err := h.loadTemplate(input.TemplateID)
	if err != nil {
		return nil, err
	}

	result := h.mapper.Map(tmpl, input.Quote, input.TotalCost)

	violations, err := templates.ValidateDocument(tmpl.Schema, result.Document())
	if err != nil {
		return nil, errors.NewTemplateValidationFailedError(fmt.Sprintf("template %s: %v", tmpl.ID, err))
	}
	for _, v := range violations {
		result.FlagForReview("schema: " + v)
	}

	metrics.TemplateComplianceScore.WithLabelValues(tmpl.ID).Observe(result.ComplianceScore)
	h.obs.RecordTemplateMapping(ctx, tmpl.ID, result.RequiresManualReview)

	h.logger.Info("quote mapped to template", map[string]interface{}{
		"requestId":            input.RequestID,
		"templateId":           tmpl.ID,
		"vendor":               result.VendorName,
		"complianceScore":      result.ComplianceScore,
		"requiresManualReview": result.RequiresManualReview,
	})

	return &Output{Mapping: result, SchemaViolations: violations}, nil
}

// loadTemplate serves from cache until CacheTTL elapses, then re-reads
// the registry file so edits are picked up without a restart.
func (h *Handler) loadTemplate(id string) (*registry.OrganizationTemplate, error) {
	h.mu.RLock()
	if entry, ok := h.cache[id]; ok && time.Since(entry.loadedAt) < h.config.CacheTTL {
		h.mu.RUnlock()
		return entry.template, nil
	}
	h.mu.RUnlock()

	reg, err := registry.LoadRegistry(h.config.TemplateRegistry)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("load template registry: %w", err))
	}

	tmpl, ok := reg.Find(id)
	if !ok {
		return nil, errors.NewTemplateNotFoundError(id)
	}

	h.mu.Lock()
	h.cache[id] = &templateCacheEntry{template: tmpl, loadedAt: time.Now()}
	h.mu.Unlock()
	return tmpl, nil
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

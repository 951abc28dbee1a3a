package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name          string
		err           *StandardError
		wantCode      string
		wantRetryable bool
		wantRetries   int
	}{
		{
			name:     "empty batch is a business error",
			err:      NewQuoteBatchEmptyError(nil),
			wantCode: "QUOTE_BATCH_EMPTY",
		},
		{
			name:          "persist failure retries",
			err:           NewAnalysisPersistFailedError(fmt.Errorf("connection reset")),
			wantCode:      "ANALYSIS_PERSIST_FAILED",
			wantRetryable: true,
			wantRetries:   3,
		},
		{
			name:     "unknown template",
			err:      NewTemplateNotFoundError("acme-default"),
			wantCode: "TEMPLATE_NOT_FOUND",
		},
		{
			name:     "unmapped code falls back to itself",
			err:      &StandardError{Code: "SOMETHING_ELSE", Message: "x"},
			wantCode: "SOMETHING_ELSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmnErr.Code)
			assert.Equal(t, tt.wantRetryable, bpmnErr.Retryable)
			assert.Equal(t, tt.wantRetries, bpmnErr.Retries)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestToErrorVariables_IncludesMetadata(t *testing.T) {
	err := NewQuoteInputInvalidError("quotes[0].vendorName is required").
		WithMetadata("requestId", "req-1")

	vars := ConvertToBPMNError(err).ToErrorVariables()

	assert.Equal(t, "QUOTE_INPUT_INVALID", vars["errorCode"])
	assert.Equal(t, "quotes[0].vendorName is required", vars["errorDetails"])
	assert.Equal(t, "req-1", vars["requestId"])
	assert.Equal(t, false, vars["retryable"])
}

func TestNormalize(t *testing.T) {
	base := NewQuoteBatchEmptyError(nil)
	wrapped := fmt.Errorf("compare: %w", base)

	got := Normalize(wrapped)
	assert.Same(t, base, got)

	plain := Normalize(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestStandardError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := NewQuoteBatchEmptyError(sentinel)

	assert.True(t, stderrors.Is(err, sentinel))

	stdErr, ok := AsStandardError(fmt.Errorf("outer: %w", err))
	require.True(t, ok)
	assert.Equal(t, ErrCodeQuoteBatchEmpty, stdErr.Code)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "INPUT", GetErrorCategory(ErrCodeQuoteBatchEmpty))
	assert.Equal(t, "ANALYSIS", GetErrorCategory(ErrCodeAnalysisCancelled))
	assert.Equal(t, "TEMPLATE", GetErrorCategory(ErrCodeTemplateNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeAnalysisPersistFailed))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeAnalysisPersistFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeAnalysisCancelled))
	assert.False(t, IsRetryableErrorCode(ErrCodeQuoteBatchEmpty))
	assert.False(t, IsRetryableErrorCode(ErrCodeTemplateValidationFailed))
}

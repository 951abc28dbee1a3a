package recordanalysis

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine/internal/common/camunda/camundatest"
	stderrors "quote-engine/internal/common/errors"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var insertPattern = regexp.QuoteMeta("INSERT INTO quote_analyses")

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, db, logger.NewTestLogger(t))
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createAnalysis() *models.AnalysisResult {
	pct := d("2.78")
	return &models.AnalysisResult{
		Issues: []models.Issue{
			{Severity: models.SeverityHigh, Kind: models.KindHiddenFee, Vendor: "Beta Supplies", Description: "fee"},
			{Severity: models.SeverityLow, Kind: models.KindInconsistentTerms, Vendor: "Acme Office", Description: "terms"},
			{Severity: models.SeverityMedium, Kind: models.KindPriceOutlier, Vendor: "Beta Supplies", Description: "price"},
		},
		IssueCounts: models.IssueCounts{Total: 3, High: 1, Medium: 1, Low: 1},
		Recommendation: models.Recommendation{
			Winner:          "Acme Office",
			TotalCost:       d("70.00"),
			SplitOrderTotal: d("68.00"),
			Savings:         d("2.00"),
			SavingsPercent:  &pct,
		},
		Summary: "Compared 2 vendor quote(s).",
	}
}

func requireCode(t *testing.T, err error, code stderrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok, "expected a StandardError, got %T", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock := newMock(t)
	h := createTestHandler(t, db)
	created := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery(insertPattern).
		WithArgs(sqlmock.AnyArg(), "req-1", "Acme Office", "70", "68", "2", "2.78", int64(3), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	out, err := h.Execute(context.Background(), &Input{RequestID: "req-1", Analysis: createAnalysis()})
	require.NoError(t, err)

	_, err = uuid.Parse(out.AnalysisID)
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:30:00Z", out.RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoWinner(t *testing.T) {
	db, mock := newMock(t)
	h := createTestHandler(t, db)

	analysis := &models.AnalysisResult{Summary: "every quote was excluded"}

	mock.ExpectQuery(insertPattern).
		WithArgs(sqlmock.AnyArg(), "req-2", nil, "0", "0", "0", nil, int64(0), int64(0), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	_, err := h.Execute(context.Background(), &Input{RequestID: "req-2", Analysis: analysis})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PayloadIsFullAnalysis(t *testing.T) {
	db, mock := newMock(t)
	h := createTestHandler(t, db)

	var payload string
	mock.ExpectQuery(insertPattern).
		WithArgs(sqlmock.AnyArg(), "req-3", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), payloadCapture{&payload}).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	_, err := h.Execute(context.Background(), &Input{RequestID: "req-3", Analysis: createAnalysis()})
	require.NoError(t, err)

	var decoded models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "Acme Office", decoded.Recommendation.Winner)
	assert.Len(t, decoded.Issues, 3)
}

type payloadCapture struct {
	into *string
}

func (c payloadCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.into = s
	}
	return ok
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("database failure is retryable", func(t *testing.T) {
		db, mock := newMock(t)
		h := createTestHandler(t, db)
		mock.ExpectQuery(insertPattern).WillReturnError(errors.New("connection reset by peer"))

		_, err := h.Execute(context.Background(), &Input{RequestID: "req-4", Analysis: createAnalysis()})
		requireCode(t, err, stderrors.ErrCodeAnalysisPersistFailed)

		stdErr, _ := stderrors.AsStandardError(err)
		assert.True(t, stdErr.Retryable)
		assert.Equal(t, "req-4", stdErr.Metadata["requestId"])
	})

	t.Run("analysis required", func(t *testing.T) {
		db, _ := newMock(t)
		h := createTestHandler(t, db)

		_, err := h.Execute(context.Background(), &Input{RequestID: "req-5"})
		requireCode(t, err, stderrors.ErrCodeQuoteInputInvalid)
	})

	t.Run("request id required", func(t *testing.T) {
		db, _ := newMock(t)
		h := createTestHandler(t, db)

		_, err := h.Execute(context.Background(), &Input{Analysis: createAnalysis()})
		requireCode(t, err, stderrors.ErrCodeQuoteInputInvalid)
	})
}

// ==========================
// Job Handling Tests
// ==========================

func TestHandler_Handle_CompletesJob(t *testing.T) {
	db, mock := newMock(t)
	h := createTestHandler(t, db)
	client := camundatest.NewJobClient()

	mock.ExpectQuery(insertPattern).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	h.Handle(client, camundatest.NewJob(1, 3, &Input{RequestID: "req-6", Analysis: createAnalysis()}))

	require.Len(t, client.Completed(), 1)
	var out Output
	require.NoError(t, json.Unmarshal([]byte(client.Completed()[0].Variables), &out))
	assert.NotEmpty(t, out.AnalysisID)
}

func TestHandler_Handle_DatabaseFailureFailsForRetry(t *testing.T) {
	db, mock := newMock(t)
	h := createTestHandler(t, db)
	client := camundatest.NewJobClient()

	mock.ExpectQuery(insertPattern).WillReturnError(errors.New("connection refused"))

	h.Handle(client, camundatest.NewJob(2, 3, &Input{RequestID: "req-7", Analysis: createAnalysis()}))

	assert.Empty(t, client.Completed())
	assert.Empty(t, client.Thrown())
	require.Len(t, client.Failed(), 1)
	assert.Equal(t, int32(2), client.Failed()[0].Retries)
}

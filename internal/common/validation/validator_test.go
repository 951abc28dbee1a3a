package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Description string `json:"description" validate:"required"`
}

type request struct {
	RequestID string   `json:"requestId" validate:"request_id"`
	Mode      string   `json:"mode" validate:"omitempty,oneof=fast full"`
	Threshold *float64 `json:"threshold" validate:"omitempty,gt=0,lte=1"`
	Lines     []line   `json:"lines" validate:"max=2,dive"`
}

func floatPtr(f float64) *float64 { return &f }

func TestStruct_Valid(t *testing.T) {
	res := Struct(request{
		RequestID: "req-2024.10:01",
		Mode:      "full",
		Threshold: floatPtr(0.6),
		Lines:     []line{{Description: "paper"}},
	})
	assert.True(t, res.Valid)
	assert.False(t, res.HasErrors())
}

func TestStruct_CollectsEveryViolation(t *testing.T) {
	res := Struct(request{
		RequestID: "bad id!",
		Mode:      "slow",
		Threshold: floatPtr(1.5),
		Lines:     []line{{Description: "ok"}, {}},
	})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 4)

	byField := map[string]string{}
	for _, e := range res.Errors {
		byField[e.Field] = e.Code
	}
	assert.Equal(t, "INVALID_FORMAT", byField["requestId"])
	assert.Equal(t, "INVALID_ENUM_VALUE", byField["mode"])
	assert.Equal(t, "RANGE_VIOLATION", byField["threshold"])
	assert.Equal(t, "REQUIRED_FIELD_MISSING", byField["lines[1].description"])

	assert.Len(t, res.GetErrorsForField("mode"), 1)
	assert.Empty(t, res.GetErrorsForField("missing"))
	assert.Contains(t, res.Error(), "lines[1].description: required field missing")
}

func TestStruct_TooManyLines(t *testing.T) {
	res := Struct(request{
		RequestID: "r1",
		Lines:     []line{{"a"}, {"b"}, {"c"}},
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "lines", res.Errors[0].Field)
	assert.Equal(t, "LENGTH_VIOLATION", res.Errors[0].Code)
}

func TestStruct_RequestIDBounds(t *testing.T) {
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		id    string
		valid bool
	}{
		{"a", true},
		{"4f1c2b9e-0d3a-4c6b-8f7e-2a1b3c4d5e6f", true},
		{"", false},
		{"-leading", false},
		{string(long), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, Struct(request{RequestID: tt.id}).Valid, tt.id)
	}
}

package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindStateConflict, http.StatusBadRequest},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindBalanceViolation, http.StatusUnprocessableEntity},
		{shared.KindConflict, http.StatusConflict},
		{shared.ErrorKind("SOMETHING_ELSE"), http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatusForKind(tt.kind))
		})
	}
}

func TestResolveError(t *testing.T) {
	t.Run("domain errors keep their code and message", func(t *testing.T) {
		status, code, message := ResolveError(invoicing.ErrPaymentExceedsBalance)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, invoicing.ErrPaymentExceedsBalance.Code, code)
		assert.Equal(t, invoicing.ErrPaymentExceedsBalance.Message, message)
	})

	t.Run("wrapped domain errors are unwrapped", func(t *testing.T) {
		err := fmt.Errorf("save invoice: %w", shared.ErrConcurrencyConflict)
		status, code, _ := ResolveError(err)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "CONCURRENCY_CONFLICT", code)
	})

	t.Run("state conflicts are bad requests", func(t *testing.T) {
		status, code, _ := ResolveError(invoicing.ErrInvoiceNotDraft)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, invoicing.ErrInvoiceNotDraft.Code, code)
	})

	t.Run("empty code falls back to the kind", func(t *testing.T) {
		_, code, _ := ResolveError(shared.NewNotFoundError("", "gone"))
		assert.Equal(t, "NOT_FOUND", code)
	})

	t.Run("infrastructure errors are hidden", func(t *testing.T) {
		status, code, message := ResolveError(errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ErrCodeInternal, code)
		assert.NotContains(t, message, "pq")
	})
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("INVOICE_NOT_DRAFT", "not a draft", "req-1")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVOICE_NOT_DRAFT", resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.IsZero())
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "amount", Message: "This field is required"}}
	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestErrorResponseJSON(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(ErrCodeBadRequest, "bad"))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "data")
	errBody := body["error"].(map[string]any)
	assert.Equal(t, ErrCodeBadRequest, errBody["code"])
	assert.NotContains(t, errBody, "request_id")
	assert.NotContains(t, errBody, "details")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]int{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.pages, resp.Meta.TotalPages, "total=%d size=%d", tt.total, tt.pageSize)
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pastry-storefront/internal/backend"
	"github.com/dtroode/pastry-storefront/internal/model"
	"github.com/dtroode/pastry-storefront/internal/testutil"
)

func TestHandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail bool
	}{
		{"stock exceeded", fmt.Errorf("failed: %w", &model.StockExceededError{ProductID: 1, Ceiling: 20, Requested: 25}), http.StatusConflict, "STOCK_EXCEEDED", true},
		{"invalid quantity", model.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY", false},
		{"invalid credentials", fmt.Errorf("failed to log in: %w", model.ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS", false},
		{"unauthenticated", model.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", false},
		{"empty cart", model.ErrEmptyCart, http.StatusConflict, "EMPTY_CART", false},
		{"not found", model.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
		{"upstream", &backend.APIError{Status: http.StatusServiceUnavailable, Message: "down"}, http.StatusBadGateway, "UPSTREAM_ERROR", true},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handleError(w, r, testutil.MakeNoopLogger(), tt.err)
			}))
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"]["code"])
			assert.NotEmpty(t, body["error"]["message"])
			assert.NotEmpty(t, body["error"]["requestId"])
			_, hasDetails := body["error"]["details"]
			assert.Equal(t, tt.wantDetail, hasDetails)
		})
	}
}

func TestDecodeOptionalBody(t *testing.T) {
	var req checkoutRequest

	rec := httptest.NewRecorder()
	ok := decodeOptionalBody(rec, httptest.NewRequest(http.MethodPost, "/checkout", http.NoBody), &req)
	assert.True(t, ok)
	assert.Empty(t, req.Notes)

	rec = httptest.NewRecorder()
	ok = decodeOptionalBody(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), &req)
	assert.True(t, ok)

	rec = httptest.NewRecorder()
	ok = decodeBody(rec, httptest.NewRequest(http.MethodPost, "/checkout", http.NoBody), &req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/dtroode/pastry-storefront/internal/backend"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// ErrorBody is the error object of every non-2xx answer.
type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, false)
}

// decodeOptionalBody accepts an empty body and leaves v untouched.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body", nil)
	return false
}

func handleError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var stockErr *model.StockExceededError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &stockErr):
		writeError(w, r, http.StatusConflict, "STOCK_EXCEEDED", "requested quantity exceeds available stock", map[string]any{
			"productId": stockErr.ProductID,
			"ceiling":   stockErr.Ceiling,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, model.ErrInvalidQuantity):
		writeError(w, r, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
	case errors.Is(err, model.ErrEmptyCart):
		writeError(w, r, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.As(err, &apiErr):
		log.Warn("HTTP handler: storefront api error",
			"path", r.URL.Path,
			"status", apiErr.Status,
			"error", apiErr.Error())
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "storefront api request failed", map[string]any{
			"status": apiErr.Status,
		})
	default:
		log.Error("HTTP handler: request failed",
			"path", r.URL.Path,
			"error", err.Error())
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

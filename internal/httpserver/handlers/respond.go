package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/accountant"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Unknown errors
// become a plain 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *domain.ServiceNotFoundError
		invalidState *domain.InvalidStateError
		runtimeErr   *domain.RuntimeOperationError
		wakeTimeout  *domain.WakeTimeoutError
		validation   *domain.PolicyValidationError
	)

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &invalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &wakeTimeout):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, accountant.ErrMemoryCeiling):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.As(err, &runtimeErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ammerola/smartbook-be/internal/core/domain"
)

func respondJSON(logger *slog.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(logger *slog.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(logger, w, status, map[string]string{"error": message})
}

// respondDomainError maps the business error taxonomy onto HTTP statuses.
// Validation problems are the client's fault, missing entities are 404,
// and sales the inventory cannot satisfy are 422 with the lot breakdown
// attached. Anything else is an infrastructure failure.
func respondDomainError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		respondError(logger, w, http.StatusBadRequest, validationErr.Error())
		return
	}

	var notFoundErr *domain.NotFoundError
	if errors.As(err, &notFoundErr) {
		respondError(logger, w, http.StatusNotFound, notFoundErr.Error())
		return
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(logger, w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":           stockErr.Error(),
			"book_name":       stockErr.BookName,
			"units_available": stockErr.Available,
			"units_requested": stockErr.Requested,
			"lots":            stockErr.Lots,
		})
		return
	}

	var priceErr *domain.MissingPriceError
	if errors.As(err, &priceErr) {
		respondError(logger, w, http.StatusUnprocessableEntity, priceErr.Error())
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	respondError(logger, w, http.StatusInternalServerError, "internal server error")
}

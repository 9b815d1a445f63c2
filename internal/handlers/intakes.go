// internal/handlers/intakes.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// IntakeHandler handles stock intake HTTP requests
type IntakeHandler struct {
	service ports.IntakeService
	cache   *redis_a.Cache
	logger  *slog.Logger
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(service ports.IntakeService, cache *redis_a.Cache, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "intakes")),
	}
}

// CreateIntakeRequest represents the request body for recording an intake
type CreateIntakeRequest struct {
	BookID       int64           `json:"book_id"`
	Units        int             `json:"units"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	SalePrice    decimal.Decimal `json:"sale_price"`
}

// CreateIntake handles POST /api/v1/intakes
func (h *IntakeHandler) CreateIntake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	intake, err := h.service.Create(ctx, ports.CreateIntakeParams{
		BookID:       req.BookID,
		Units:        req.Units,
		PurchaseCost: req.PurchaseCost,
		SalePrice:    req.SalePrice,
	})
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	if h.cache != nil {
		h.cache.InvalidateBook(ctx, intake.BookID)
	}

	h.logger.InfoContext(ctx, "intake recorded",
		slog.Int64("intake_id", intake.ID),
		slog.Int64("book_id", intake.BookID),
		slog.String("lot_code", intake.LotCode),
		slog.Int("units", intake.Units))

	respondJSON(h.logger, w, http.StatusCreated, intake)
}

// GetIntake handles GET /api/v1/intakes/{id}
func (h *IntakeHandler) GetIntake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid intake ID")
		return
	}

	intake, err := h.service.GetByID(ctx, id)
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}
	if intake == nil {
		respondError(h.logger, w, http.StatusNotFound, "intake not found")
		return
	}

	respondJSON(h.logger, w, http.StatusOK, intake)
}

// ListIntakes handles GET /api/v1/intakes
func (h *IntakeHandler) ListIntakes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseIntakeSearchParams(r)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	intakes, err := h.service.Search(ctx, params)
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"intakes": intakes,
		"count":   len(intakes),
	})
}

func parseIntakeSearchParams(r *http.Request) (ports.IntakeSearchParams, error) {
	var params ports.IntakeSearchParams

	q := r.URL.Query()
	params.LotCode = q.Get("lot_code")

	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return params, &queryParamError{"from"}
		}
		params.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return params, &queryParamError{"to"}
		}
		params.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if bookID := q.Get("book_id"); bookID != "" {
		id, err := strconv.ParseInt(bookID, 10, 64)
		if err != nil {
			return params, &queryParamError{"book_id"}
		}
		params.BookID = id
	}

	return params, nil
}

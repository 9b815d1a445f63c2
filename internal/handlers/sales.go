// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// SalesHandler handles sale-related HTTP requests
type SalesHandler struct {
	service ports.SaleService
	cache   *redis_a.Cache
	logger  *slog.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(service ports.SaleService, cache *redis_a.Cache, logger *slog.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// CreateSaleRequest represents the request body for creating a sale
type CreateSaleRequest struct {
	CustomerID    int64                 `json:"customer_id"`
	UserID        int64                 `json:"user_id"`
	ReceiptNumber string                `json:"receipt_number"`
	Notes         string                `json:"notes,omitempty"`
	Lines         []ports.SaleLineInput `json:"lines"`
}

// CreateSale handles POST /api/v1/sales
func (h *SalesHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.service.Create(ctx, ports.CreateSaleParams{
		CustomerID:    req.CustomerID,
		UserID:        req.UserID,
		ReceiptNumber: req.ReceiptNumber,
		Notes:         req.Notes,
		Lines:         req.Lines,
	})
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	if h.cache != nil {
		for _, line := range sale.Lines {
			h.cache.InvalidateBook(ctx, line.BookID)
		}
	}

	h.logger.InfoContext(ctx, "sale created",
		slog.Int64("sale_id", sale.ID),
		slog.String("receipt_number", sale.ReceiptNumber),
		slog.Int("lines", len(sale.Lines)))

	respondJSON(h.logger, w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	sale, err := h.service.GetByID(ctx, id)
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}
	if sale == nil {
		respondError(h.logger, w, http.StatusNotFound, "sale not found")
		return
	}

	respondJSON(h.logger, w, http.StatusOK, sale)
}

// ListSales handles GET /api/v1/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseSaleSearchParams(r)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.service.Search(ctx, params)
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"sales": sales,
		"count": len(sales),
	})
}

func parseSaleSearchParams(r *http.Request) (ports.SaleSearchParams, error) {
	var params ports.SaleSearchParams

	q := r.URL.Query()
	params.CustomerDocumentID = q.Get("customer_document")

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
		// Make the range inclusive of the whole end day.
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

type queryParamError struct {
	param string
}

func (e *queryParamError) Error() string {
	return "invalid query parameter: " + e.param
}

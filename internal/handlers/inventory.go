// internal/handlers/inventory.go
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// availabilityTTL bounds staleness of the cached per-book summary. Writes
// invalidate eagerly, the TTL only covers missed invalidations.
const availabilityTTL = 5 * time.Minute

// InventoryHandler serves read-side inventory views
type InventoryHandler struct {
	stores ports.Stores
	cache  *redis_a.Cache
	logger *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(stores ports.Stores, cache *redis_a.Cache, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		stores: stores,
		cache:  cache,
		logger: logger.With(slog.String("handler", "inventory")),
	}
}

// BookAvailability is the per-book availability summary
type BookAvailability struct {
	Book           *domain.Book `json:"book"`
	TotalAvailable int          `json:"total_available"`
	Lots           []domain.Lot `json:"lots"`
}

// GetAvailability handles GET /api/v1/inventory/{bookID}
func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookID, err := strconv.ParseInt(r.PathValue("bookID"), 10, 64)
	if err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid book ID")
		return
	}

	fetch := func() (interface{}, error) {
		return h.loadAvailability(r, bookID)
	}

	var summary BookAvailability
	if h.cache != nil {
		key := redis_a.BuildKey(redis_a.PrefixInventory, fmt.Sprint(bookID), "availability")
		err = h.cache.GetOrSet(ctx, key, &summary, fetch, availabilityTTL)
	} else {
		var result interface{}
		result, err = fetch()
		if err == nil {
			summary = *result.(*BookAvailability)
		}
	}
	if err != nil {
		respondDomainError(h.logger, w, r, err)
		return
	}

	if summary.Book == nil {
		respondError(h.logger, w, http.StatusNotFound, "book not found")
		return
	}

	respondJSON(h.logger, w, http.StatusOK, summary)
}

func (h *InventoryHandler) loadAvailability(r *http.Request, bookID int64) (*BookAvailability, error) {
	ctx := r.Context()

	book, err := h.stores.Books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		// Cached as an empty summary so repeated misses stay cheap.
		return &BookAvailability{}, nil
	}

	lots, err := h.stores.Lots.FindAvailableByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	total, err := h.stores.Lots.SumAvailableByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	return &BookAvailability{
		Book:           book,
		TotalAvailable: total,
		Lots:           lots,
	}, nil
}

// ListLots handles GET /api/v1/inventory/lots. Exactly one of lot_code or
// book_id selects the view.
func (h *InventoryHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	lotCode := q.Get("lot_code")
	bookIDStr := q.Get("book_id")

	switch {
	case lotCode != "" && bookIDStr != "":
		respondError(h.logger, w, http.StatusBadRequest, "lot_code and book_id are mutually exclusive")
		return

	case lotCode != "":
		lots, err := h.stores.Lots.FindByCode(ctx, lotCode)
		if err != nil {
			respondDomainError(h.logger, w, r, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, map[string]interface{}{
			"lot_code": lotCode,
			"lots":     lots,
			"count":    len(lots),
		})

	case bookIDStr != "":
		bookID, err := strconv.ParseInt(bookIDStr, 10, 64)
		if err != nil {
			respondError(h.logger, w, http.StatusBadRequest, "invalid book ID")
			return
		}
		lots, err := h.stores.Lots.FindAvailableByBook(ctx, bookID)
		if err != nil {
			respondDomainError(h.logger, w, r, err)
			return
		}
		respondJSON(h.logger, w, http.StatusOK, map[string]interface{}{
			"book_id": bookID,
			"lots":    lots,
			"count":   len(lots),
		})

	default:
		respondError(h.logger, w, http.StatusBadRequest, "lot_code or book_id is required")
	}
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/smartbook-be/internal/adapters/db"
	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
)

const (
	dashboardTTL      = 5 * time.Minute
	lowStockThreshold = 5
)

// DashboardHandler serves aggregate store metrics for the back office.
type DashboardHandler struct {
	db     *db.Database
	cache  *redis_a.Cache
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(database *db.Database, cache *redis_a.Cache, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		db:     database,
		cache:  cache,
		logger: logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, "main")
	var dashboard DashboardData

	err := h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
		return h.loadDashboardData(ctx)
	}, dashboardTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard", slog.String("error", err.Error()))
		respondError(h.logger, w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	respondJSON(h.logger, w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) loadDashboardData(ctx context.Context) (*DashboardData, error) {
	dashboard := &DashboardData{Timestamp: time.Now()}

	summaryQuery := `
		SELECT
			(SELECT COUNT(*) FROM books),
			(SELECT COALESCE(SUM(units_available), 0) FROM lots),
			(SELECT COUNT(*) FROM sales WHERE sale_date >= CURRENT_DATE),
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE sale_date >= CURRENT_DATE),
			(SELECT COUNT(*) FROM sales WHERE sale_date >= date_trunc('month', CURRENT_DATE)),
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE sale_date >= date_trunc('month', CURRENT_DATE)),
			(SELECT COALESCE(SUM(units), 0) FROM intakes WHERE received_at >= date_trunc('month', CURRENT_DATE))
	`

	err := h.db.QueryRow(ctx, summaryQuery).Scan(
		&dashboard.Summary.TotalBooks,
		&dashboard.Summary.UnitsInStock,
		&dashboard.Summary.SalesToday,
		&dashboard.Summary.RevenueToday,
		&dashboard.Summary.SalesThisMonth,
		&dashboard.Summary.RevenueThisMonth,
		&dashboard.Summary.UnitsReceivedThisMonth,
	)
	if err != nil {
		return nil, err
	}

	topSellersQuery := `
		SELECT b.id, b.name, SUM(sl.units) AS units, SUM(sl.subtotal) AS revenue
		FROM sale_lines sl
		JOIN sales s ON s.id = sl.sale_id
		JOIN books b ON b.id = sl.book_id
		WHERE s.sale_date >= CURRENT_DATE - INTERVAL '30 days'
		GROUP BY b.id, b.name
		ORDER BY units DESC
		LIMIT 10
	`

	rows, err := h.db.Query(ctx, topSellersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var top TopSeller
		if err := rows.Scan(&top.BookID, &top.BookName, &top.Units, &top.Revenue); err != nil {
			return nil, err
		}
		dashboard.TopSellers = append(dashboard.TopSellers, top)
	}

	lowStockQuery := `
		SELECT b.id, b.name, b.level, COALESCE(SUM(l.units_available), 0) AS available
		FROM books b
		LEFT JOIN lots l ON l.book_id = b.id
		GROUP BY b.id, b.name, b.level
		HAVING COALESCE(SUM(l.units_available), 0) <= $1
		ORDER BY available ASC, b.name
		LIMIT 20
	`

	lowRows, err := h.db.Query(ctx, lowStockQuery, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	defer lowRows.Close()

	for lowRows.Next() {
		var low LowStockBook
		if err := lowRows.Scan(&low.BookID, &low.BookName, &low.Level, &low.UnitsAvailable); err != nil {
			return nil, err
		}
		dashboard.LowStock = append(dashboard.LowStock, low)
	}

	return dashboard, nil
}

// Type definitions

type DashboardData struct {
	Summary    DashboardSummary `json:"summary"`
	TopSellers []TopSeller      `json:"top_sellers"`
	LowStock   []LowStockBook   `json:"low_stock"`
	Timestamp  time.Time        `json:"timestamp"`
}

type DashboardSummary struct {
	TotalBooks             int64           `json:"total_books"`
	UnitsInStock           int64           `json:"units_in_stock"`
	SalesToday             int64           `json:"sales_today"`
	RevenueToday           decimal.Decimal `json:"revenue_today"`
	SalesThisMonth         int64           `json:"sales_this_month"`
	RevenueThisMonth       decimal.Decimal `json:"revenue_this_month"`
	UnitsReceivedThisMonth int64           `json:"units_received_this_month"`
}

type TopSeller struct {
	BookID   int64           `json:"book_id"`
	BookName string          `json:"book_name"`
	Units    int64           `json:"units"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type LowStockBook struct {
	BookID         int64   `json:"book_id"`
	BookName       string  `json:"book_name"`
	Level          *string `json:"level,omitempty"`
	UnitsAvailable int64   `json:"units_available"`
}

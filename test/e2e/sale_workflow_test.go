//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/smartbook-be/internal/adapters/db"
	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/services"
	"github.com/ammerola/smartbook-be/internal/handlers"
	"github.com/ammerola/smartbook-be/test/helpers"
)

type SaleE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis

	bookID     int64
	customerID int64
	userID     int64
}

func (s *SaleE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *SaleE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *SaleE2ESuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.testRedis.Server.FlushAll()
	s.seedFixtures()
}

func (s *SaleE2ESuite) seedFixtures() {
	ctx := context.Background()

	err := s.testDB.PgxPool.QueryRow(ctx,
		`INSERT INTO books (name, level, kind, publisher, edition)
		 VALUES ('English File Intermediate', 'B1', 'textbook', 'Oxford', '4th')
		 RETURNING id`).Scan(&s.bookID)
	s.Require().NoError(err)

	err = s.testDB.PgxPool.QueryRow(ctx,
		`INSERT INTO customers (document_id, name, email, phone)
		 VALUES ('001-1234567-8', 'Maria Gonzalez', 'maria@example.com', '809-555-0101')
		 RETURNING id`).Scan(&s.customerID)
	s.Require().NoError(err)

	err = s.testDB.PgxPool.QueryRow(ctx,
		`INSERT INTO users (document_id, name, email, role, active)
		 VALUES ('001-0000001-1', 'Pedro Marte', 'pedro@example.com', 'staff', TRUE)
		 RETURNING id`).Scan(&s.userID)
	s.Require().NoError(err)
}

func (s *SaleE2ESuite) TestCompleteSaleWorkflow() {
	// 1. Record a stock intake; the service assigns the lot code.
	intakeReq := map[string]interface{}{
		"book_id":       s.bookID,
		"units":         10,
		"purchase_cost": "650.00",
		"sale_price":    "1100.00",
	}

	resp := s.makeRequest("POST", "/intakes", intakeReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var intake map[string]interface{}
	s.decodeResponse(resp, &intake)
	lotCode := intake["lot_code"].(string)
	s.NotEmpty(lotCode)

	// 2. Availability reflects the new lot.
	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d", s.bookID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var availability map[string]interface{}
	s.decodeResponse(resp, &availability)
	s.Equal(float64(10), availability["total_available"])

	// 3. Sell three copies.
	saleReq := map[string]interface{}{
		"customer_id": s.customerID,
		"user_id":     s.userID,
		"lines": []map[string]interface{}{
			{"book_id": s.bookID, "units": 3},
		},
	}

	resp = s.makeRequest("POST", "/sales", saleReq)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var sale map[string]interface{}
	s.decodeResponse(resp, &sale)
	s.NotEmpty(sale["receipt_number"])

	lines := sale["lines"].([]interface{})
	s.Len(lines, 1)
	line := lines[0].(map[string]interface{})
	s.Equal(lotCode, line["lot_code"])
	s.Equal(float64(3), line["units"])

	saleID := int64(sale["id"].(float64))

	// 4. Retrieve the committed sale with its lines.
	resp = s.makeRequest("GET", fmt.Sprintf("/sales/%d", saleID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var retrieved map[string]interface{}
	s.decodeResponse(resp, &retrieved)
	s.Equal(sale["receipt_number"], retrieved["receipt_number"])

	// 5. Availability dropped by the sold units.
	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d", s.bookID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.decodeResponse(resp, &availability)
	s.Equal(float64(7), availability["total_available"])

	// 6. The sale shows up in the listing.
	resp = s.makeRequest("GET", "/sales", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var listResponse map[string]interface{}
	s.decodeResponse(resp, &listResponse)
	s.Equal(float64(1), listResponse["count"])

	// 7. Export the sales workbook.
	resp = s.makeRequest("GET", "/export/sales", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	resp.Body.Close()

	// 8. Dashboard aggregates include today's sale.
	resp = s.makeRequest("GET", "/dashboard", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var dashboard map[string]interface{}
	s.decodeResponse(resp, &dashboard)
	s.Contains(dashboard, "summary")
	summary := dashboard["summary"].(map[string]interface{})
	s.Equal(float64(1), summary["sales_today"])
}

func (s *SaleE2ESuite) TestOversellRejectedWithLotBreakdown() {
	intakeReq := map[string]interface{}{
		"book_id":       s.bookID,
		"units":         2,
		"purchase_cost": "650.00",
		"sale_price":    "1100.00",
	}
	resp := s.makeRequest("POST", "/intakes", intakeReq)
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	saleReq := map[string]interface{}{
		"customer_id": s.customerID,
		"user_id":     s.userID,
		"lines": []map[string]interface{}{
			{"book_id": s.bookID, "units": 5},
		},
	}

	resp = s.makeRequest("POST", "/sales", saleReq)
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	var errResponse map[string]interface{}
	s.decodeResponse(resp, &errResponse)
	s.Equal(float64(2), errResponse["units_available"])
	s.Equal(float64(5), errResponse["units_requested"])
	s.Contains(errResponse, "lots")

	// Nothing was committed.
	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d", s.bookID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var availability map[string]interface{}
	s.decodeResponse(resp, &availability)
	s.Equal(float64(2), availability["total_available"])

	resp = s.makeRequest("GET", "/sales", nil)
	var listResponse map[string]interface{}
	s.decodeResponse(resp, &listResponse)
	s.Equal(float64(0), listResponse["count"])
}

func (s *SaleE2ESuite) TestConcurrentSalesNeverOversell() {
	intakeReq := map[string]interface{}{
		"book_id":       s.bookID,
		"units":         5,
		"purchase_cost": "650.00",
		"sale_price":    "1100.00",
	}
	resp := s.makeRequest("POST", "/intakes", intakeReq)
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	const attempts = 10

	var wg sync.WaitGroup
	results := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			saleReq := map[string]interface{}{
				"customer_id": s.customerID,
				"user_id":     s.userID,
				"lines": []map[string]interface{}{
					{"book_id": s.bookID, "units": 1},
				},
			}
			resp := s.makeRequest("POST", "/sales", saleReq)
			resp.Body.Close()
			results <- resp.StatusCode
		}()
	}

	wg.Wait()
	close(results)

	created, rejected := 0, 0
	for code := range results {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		default:
			s.Failf("unexpected status", "got %d", code)
		}
	}

	s.Equal(5, created)
	s.Equal(5, rejected)

	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d", s.bookID), nil)
	var availability map[string]interface{}
	s.decodeResponse(resp, &availability)
	s.Equal(float64(0), availability["total_available"])
}

func (s *SaleE2ESuite) TestHealthCheck() {
	req, err := http.NewRequest("GET", s.server.URL+"/health", nil)
	s.NoError(err)

	resp, err := s.client.Do(req)
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	s.decodeResponse(resp, &health)
	s.Equal("healthy", health["status"])

	svcs := health["services"].(map[string]interface{})
	s.Contains(svcs, "database")
	s.Contains(svcs, "redis")
}

// Helper methods

func (s *SaleE2ESuite) startTestServer() *httptest.Server {
	cfg := helpers.LoadTestConfig()
	slogger := helpers.TestLogger()

	cache := redis_a.NewCache(s.testRedis.Client, time.Hour, slogger)
	runner := db.NewTxRunner(s.testDB.Database)

	saleService := services.NewSaleService(runner, nil, slogger)
	intakeService := services.NewIntakeService(runner, slogger)

	salesHandler := handlers.NewSalesHandler(saleService, cache, slogger)
	intakeHandler := handlers.NewIntakeHandler(intakeService, cache, slogger)
	inventoryHandler := handlers.NewInventoryHandler(runner.Stores(), cache, slogger)
	exportHandler := handlers.NewExportHandler(saleService, nil, cache, slogger)
	dashboardHandler := handlers.NewDashboardHandler(s.testDB.Database, cache, slogger)
	healthHandler := handlers.NewHealthHandler(s.testDB.Database, s.testRedis.Client, nil, cfg, slogger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.HandleFunc("POST /api/v1/sales", salesHandler.CreateSale)
	mux.HandleFunc("GET /api/v1/sales/{id}", salesHandler.GetSale)
	mux.HandleFunc("GET /api/v1/sales", salesHandler.ListSales)
	mux.HandleFunc("POST /api/v1/intakes", intakeHandler.CreateIntake)
	mux.HandleFunc("GET /api/v1/intakes/{id}", intakeHandler.GetIntake)
	mux.HandleFunc("GET /api/v1/intakes", intakeHandler.ListIntakes)
	mux.HandleFunc("GET /api/v1/inventory/lots", inventoryHandler.ListLots)
	mux.HandleFunc("GET /api/v1/inventory/{bookID}", inventoryHandler.GetAvailability)
	mux.HandleFunc("GET /api/v1/export/sales", exportHandler.ExportSales)
	mux.HandleFunc("GET /api/v1/dashboard", dashboardHandler.GetDashboard)

	return httptest.NewServer(mux)
}

func (s *SaleE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.NoError(err)

	return resp
}

func (s *SaleE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}

func TestSaleE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(SaleE2ESuite))
}

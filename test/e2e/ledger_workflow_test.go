//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/stockledger-be/internal/adapters/db"
	"github.com/ammerola/stockledger-be/internal/adapters/parser"
	redis_a "github.com/ammerola/stockledger-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger-be/internal/core/ports"
	"github.com/ammerola/stockledger-be/internal/core/services"
	"github.com/ammerola/stockledger-be/internal/handlers"
	"github.com/ammerola/stockledger-be/test/helpers"
)

// memStage keeps staged uploads in memory so the suite does not need an
// object store running.
type memStage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStage() *memStage {
	return &memStage{files: make(map[string][]byte)}
}

func (s *memStage) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return nil
}

func (s *memStage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("staged file %s not found", key)
	}
	return data, nil
}

func (s *memStage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

type LedgerE2ESuite struct {
	suite.Suite
	server        *httptest.Server
	client        *http.Client
	baseURL       string
	testDB        *helpers.TestDB
	testRedis     *helpers.TestRedis
	importService ports.ImportService
}

func (s *LedgerE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *LedgerE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *LedgerE2ESuite) TestProductLifecycle() {
	resp := s.makeRequest("POST", "/products", map[string]interface{}{
		"name":        "Hex Bolt M8",
		"price":       250,
		"description": "Zinc plated",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	s.decodeResponse(resp, &created)
	productID := int64(created["id"].(float64))
	s.Positive(productID)

	resp = s.makeRequest("GET", fmt.Sprintf("/products/%d", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var fetched map[string]interface{}
	s.decodeResponse(resp, &fetched)
	s.Equal("Hex Bolt M8", fetched["name"])

	resp = s.makeRequest("PUT", fmt.Sprintf("/products/%d", productID), map[string]interface{}{
		"name":  "Hex Bolt M8 (galvanized)",
		"price": 300,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.makeRequest("GET", "/products?search=bolt&limit=10", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var listing map[string]interface{}
	s.decodeResponse(resp, &listing)
	products := listing["products"].([]interface{})
	s.GreaterOrEqual(len(products), 1)

	resp = s.makeRequest("DELETE", fmt.Sprintf("/products/%d", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.makeRequest("GET", fmt.Sprintf("/products/%d", productID), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *LedgerE2ESuite) TestLedgerWorkflow() {
	productID := s.createProduct("Threaded Rod M12", 1200)

	resp := s.makeRequest("POST", "/purchases", map[string]interface{}{
		"product_id": productID,
		"quantity":   10,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	resp = s.makeRequest("POST", "/sales", map[string]interface{}{
		"product_id": productID,
		"quantity":   4,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	// Selling more than remains on hand is rejected.
	resp = s.makeRequest("POST", "/sales", map[string]interface{}{
		"product_id": productID,
		"quantity":   7,
	})
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	var errBody map[string]interface{}
	s.decodeResponse(resp, &errBody)
	s.Contains(errBody["message"], "insufficient stock")

	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var feed map[string]interface{}
	s.decodeResponse(resp, &feed)
	movements := feed["movements"].([]interface{})
	s.Len(movements, 2)
	s.Equal("purchase", movements[0].(map[string]interface{})["type"])
	s.Equal("sale", movements[1].(map[string]interface{})["type"])

	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d/summary", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary map[string]interface{}
	s.decodeResponse(resp, &summary)
	s.Equal(float64(10), summary["purchased"])
	s.Equal(float64(4), summary["sold"])
	s.Equal(float64(6), summary["on_hand"])
}

func (s *LedgerE2ESuite) TestSyncImportWorkflow() {
	productID := s.createProduct("Carriage Bolt M6", 180)
	s.recordPurchase(productID, 50)

	csv := helpers.SalesCSV(
		[3]string{fmt.Sprintf("%d", productID), "2026-02-01", "3"},
		[3]string{fmt.Sprintf("%d", productID), "2026-02-02", "2"},
	)

	resp := s.uploadSalesFile("february.csv", "sync", csv)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var result map[string]interface{}
	s.decodeResponse(resp, &result)
	s.Equal(float64(2), result["sales_created"])
	s.Equal("sync", result["status"])

	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d/summary", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary map[string]interface{}
	s.decodeResponse(resp, &summary)
	s.Equal(float64(5), summary["sold"])
}

func (s *LedgerE2ESuite) TestAsyncImportWorkflow() {
	productID := s.createProduct("Wing Nut M8", 90)
	s.recordPurchase(productID, 20)

	csv := helpers.SalesCSV(
		[3]string{fmt.Sprintf("%d", productID), "2026-03-01", "5"},
	)

	resp := s.uploadSalesFile("march.csv", "async", csv)
	s.Equal(http.StatusAccepted, resp.StatusCode)

	var record map[string]interface{}
	s.decodeResponse(resp, &record)
	fileID := int64(record["id"].(float64))
	s.Equal("async_pending", record["status"])

	// Run one drain pass in place of the worker.
	stats, err := s.importService.Drain(context.Background())
	s.NoError(err)
	s.Equal(1, stats.Processed)
	s.Equal(1, stats.SalesAdded)

	resp = s.makeRequest("GET", fmt.Sprintf("/import/files/%d", fileID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var processed map[string]interface{}
	s.decodeResponse(resp, &processed)
	s.Equal("async_processed", processed["status"])

	resp = s.makeRequest("GET", fmt.Sprintf("/inventory/%d/summary", productID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary map[string]interface{}
	s.decodeResponse(resp, &summary)
	s.Equal(float64(5), summary["sold"])
}

func (s *LedgerE2ESuite) TestConcurrentSalesRespectStock() {
	productID := s.createProduct("Set Screw M4", 60)
	s.recordPurchase(productID, 10)

	var wg sync.WaitGroup
	statuses := make(chan int, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.makeRequest("POST", "/sales", map[string]interface{}{
				"product_id": productID,
				"quantity":   1,
			})
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	created := 0
	for code := range statuses {
		if code == http.StatusCreated {
			created++
		} else {
			s.Equal(http.StatusUnprocessableEntity, code)
		}
	}
	s.Equal(10, created)
}

// Helper methods

func (s *LedgerE2ESuite) startTestServer() *httptest.Server {
	logger := helpers.TestLogger()

	cache := redis_a.NewCache(s.testRedis.Client, time.Minute, logger)
	invalidator := redis_a.NewInvalidator(cache, logger)

	productRepo := db.NewProductRepository(s.testDB.Database, logger)
	ledgerRepo := db.NewLedgerRepository(s.testDB.Database, logger)
	importRepo := db.NewImportFileRepository(s.testDB.Database, logger)

	productService := services.NewProductService(productRepo, logger)
	ledgerService := services.NewLedgerService(ledgerRepo, productRepo, logger)
	s.importService = services.NewImportService(
		importRepo, newMemStage(), parser.NewSalesFileParser(logger), logger,
	)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: s.testRedis.Server.Addr()})

	productHandler := handlers.NewProductHandler(productService, cache, invalidator, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, invalidator, logger)
	inventoryHandler := handlers.NewInventoryHandler(ledgerService, cache, logger)
	importHandler := handlers.NewImportHandler(s.importService, asynqClient, logger, 10<<20)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/products", productHandler.CreateProduct)
	mux.HandleFunc("GET /api/v1/products", productHandler.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct)
	mux.HandleFunc("PUT /api/v1/products/{id}", productHandler.UpdateProduct)
	mux.HandleFunc("DELETE /api/v1/products/{id}", productHandler.DeleteProduct)
	mux.HandleFunc("POST /api/v1/purchases", ledgerHandler.RecordPurchase)
	mux.HandleFunc("POST /api/v1/sales", ledgerHandler.RecordSale)
	mux.HandleFunc("GET /api/v1/inventory/{id}", inventoryHandler.GetFeed)
	mux.HandleFunc("GET /api/v1/inventory/{id}/summary", inventoryHandler.GetStockSummary)
	mux.HandleFunc("POST /api/v1/import/sales", importHandler.ImportSales)
	mux.HandleFunc("GET /api/v1/import/files/{id}", importHandler.GetImportFile)

	return httptest.NewServer(mux)
}

func (s *LedgerE2ESuite) createProduct(name string, price int64) int64 {
	resp := s.makeRequest("POST", "/products", map[string]interface{}{
		"name":  name,
		"price": price,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	s.decodeResponse(resp, &created)
	return int64(created["id"].(float64))
}

func (s *LedgerE2ESuite) recordPurchase(productID, quantity int64) {
	resp := s.makeRequest("POST", "/purchases", map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (s *LedgerE2ESuite) uploadSalesFile(fileName, mode string, content []byte) *http.Response {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	s.Require().NoError(err)
	_, err = io.Copy(part, bytes.NewReader(content))
	s.Require().NoError(err)

	s.Require().NoError(writer.WriteField("mode", mode))
	s.Require().NoError(writer.Close())

	req, err := http.NewRequest("POST", s.baseURL+"/import/sales", body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *LedgerE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.Require().NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *LedgerE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}

func TestLedgerE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(LedgerE2ESuite))
}

package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/production/service"
	"github.com/bitfantasy/nimo-mes/internal/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupQuoteTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	quoteSvc := service.NewQuoteService(db, repos.Quote, repos.Customer, repos.Sequence, repos.Job)
	handler := NewQuoteHandler(quoteSvc)

	router := testutil.SetupRouter()
	api := router.Group("/api/v1/production")
	api.POST("/quotes", handler.Create)
	api.GET("/quotes", handler.List)
	api.GET("/quotes/:id", handler.Get)
	api.POST("/quotes/:id/line-items", handler.AddLineItem)
	api.POST("/quotes/:id/convert", handler.Convert)
	api.PUT("/line-items/:id", handler.UpdateLineItem)
	api.DELETE("/line-items/:id", handler.DeleteLineItem)

	return db, router
}

// TestQuoteCreateAssignsNumber tests that a created quote carries a
// prefix-quarter number and exact totals
func TestQuoteCreateAssignsNumber(t *testing.T) {
	db, router := setupQuoteTest(t)
	testutil.SeedCustomer(t, db, "cust-spacex-001", "SpaceX", "SPX")

	body := map[string]interface{}{
		"customer_id":     "cust-spacex-001",
		"overhead_amount": "500",
		"profit_amount":   "1200",
		"line_items": []map[string]interface{}{
			{"part_number": "PN-1001", "quantity": 10, "unit_price": "450.00"},
		},
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})

	now := time.Now()
	wantNumber := fmt.Sprintf("SPX%02dQ%d-001", now.Year()%100, entity.QuarterOf(now))
	if data["quote_number"] != wantNumber {
		t.Fatalf("quote_number = %v, want %s", data["quote_number"], wantNumber)
	}
	if data["subtotal"] != "4500" {
		t.Errorf("subtotal = %v, want 4500", data["subtotal"])
	}
	if data["total"] != "6200" {
		t.Errorf("total = %v, want 6200", data["total"])
	}
	if data["status"] != entity.QuoteStatusPending {
		t.Errorf("status = %v, want PENDING", data["status"])
	}
}

// TestQuoteCreateMissingPrefix tests the 400 path for a customer with
// no identification prefix
func TestQuoteCreateMissingPrefix(t *testing.T) {
	db, router := setupQuoteTest(t)
	testutil.SeedCustomer(t, db, "cust-noprefix-001", "No Prefix Inc", "")

	body := map[string]interface{}{
		"customer_id": "cust-noprefix-001",
		"line_items": []map[string]interface{}{
			{"part_number": "PN-1001", "quantity": 1, "unit_price": "10.00"},
		},
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Errorf("code = %v, want 40000", resp["code"])
	}
}

// TestQuoteLineItemWritesRefreshTotals tests the totals cascade across
// the line item endpoints
func TestQuoteLineItemWritesRefreshTotals(t *testing.T) {
	db, router := setupQuoteTest(t)
	testutil.SeedCustomer(t, db, "cust-spacex-001", "SpaceX", "SPX")

	body := map[string]interface{}{
		"customer_id":     "cust-spacex-001",
		"overhead_amount": "500",
		"profit_amount":   "1200",
		"line_items": []map[string]interface{}{
			{"part_number": "PN-1001", "quantity": 10, "unit_price": "450.00"},
		},
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	quoteID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// Add a second line item
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes/"+quoteID+"/line-items",
		map[string]interface{}{"part_number": "PN-2002", "quantity": 50, "unit_price": "25.50"})
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	itemID := testutil.ParseResponse(w2)["data"].(map[string]interface{})["id"].(string)

	w3 := testutil.DoRequest(router, http.MethodGet, "/api/v1/production/quotes/"+quoteID, nil)
	data := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if data["subtotal"] != "5775" {
		t.Errorf("subtotal after add = %v, want 5775", data["subtotal"])
	}
	if data["total"] != "7475" {
		t.Errorf("total after add = %v, want 7475", data["total"])
	}

	// Delete it again
	w4 := testutil.DoRequest(router, http.MethodDelete, "/api/v1/production/line-items/"+itemID, nil)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w4.Code, w4.Body.String())
	}

	w5 := testutil.DoRequest(router, http.MethodGet, "/api/v1/production/quotes/"+quoteID, nil)
	data = testutil.ParseResponse(w5)["data"].(map[string]interface{})
	if data["subtotal"] != "4500" {
		t.Errorf("subtotal after delete = %v, want 4500", data["subtotal"])
	}
	if data["total"] != "6200" {
		t.Errorf("total after delete = %v, want 6200", data["total"])
	}
}

// TestQuoteConvert tests converting a quote and the 409 on a second attempt
func TestQuoteConvert(t *testing.T) {
	db, router := setupQuoteTest(t)
	testutil.SeedCustomer(t, db, "cust-spacex-001", "SpaceX", "SPX")

	body := map[string]interface{}{
		"customer_id": "cust-spacex-001",
		"line_items": []map[string]interface{}{
			{"part_number": "PN-1001", "quantity": 10, "unit_price": "450.00"},
		},
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes", body)
	quoteID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	convertBody := map[string]interface{}{
		"job_number": "J-2024-100",
		"due_date":   time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes/"+quoteID+"/convert", convertBody)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	job := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if job["job_number"] != "J-2024-100" {
		t.Errorf("job_number = %v, want J-2024-100", job["job_number"])
	}
	if job["part_number"] != "PN-1001" {
		t.Errorf("part_number = %v, want PN-1001 from first line item", job["part_number"])
	}

	var quote entity.Quote
	db.Where("id = ?", quoteID).First(&quote)
	if quote.Status != entity.QuoteStatusConverted {
		t.Errorf("quote status = %s, want CONVERTED", quote.Status)
	}

	convertBody["job_number"] = "J-2024-101"
	w3 := testutil.DoRequest(router, http.MethodPost, "/api/v1/production/quotes/"+quoteID+"/convert", convertBody)
	if w3.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second convert, got %d: %s", w3.Code, w3.Body.String())
	}
}

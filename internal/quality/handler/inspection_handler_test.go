package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"github.com/bitfantasy/nimo-mes/internal/quality/repository"
	"github.com/bitfantasy/nimo-mes/internal/quality/service"
	"github.com/bitfantasy/nimo-mes/internal/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupInspectionTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svc := service.NewInspectionService(db, repos.Inspection, repos.Equipment, nil, "")
	handler := NewInspectionHandler(svc)

	router := testutil.SetupRouter()
	api := router.Group("/api/v1/quality")
	api.POST("/reports", handler.Create)
	api.GET("/reports/:id", handler.Get)
	api.GET("/reports/:id/export", handler.ExportForm3)
	api.POST("/characteristics", handler.CreateCharacteristic)
	api.PUT("/characteristics/:id", handler.UpdateCharacteristic)

	return db, router
}

// TestReportCharacteristicFlow walks a report from creation through a
// failing measurement to a passing one
func TestReportCharacteristicFlow(t *testing.T) {
	db, router := setupInspectionTest(t)

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/quality/reports", map[string]interface{}{
		"part_number":       "PN-1001",
		"part_name":         "Turbine Bracket",
		"fai_report_number": "FAI-2024-001",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	report := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if report["status"] != entity.ReportStatusPending {
		t.Fatalf("status = %v, want PENDING", report["status"])
	}
	reportID := report["id"].(string)

	// Characteristic with a measurement outside tolerance
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/quality/characteristics", map[string]interface{}{
		"report_id":       reportID,
		"char_number":     1,
		"requirement":     "1.500 +/- 0.001",
		"nominal_value":   "1.500",
		"upper_tolerance": "0.001",
		"lower_tolerance": "0.001",
		"actual_value":    "1.504",
	})
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	ch := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if ch["result"] != entity.ResultFail {
		t.Fatalf("result = %v, want FAIL", ch["result"])
	}
	chID := ch["id"].(string)

	var stored entity.InspectionReport
	db.Where("id = ?", reportID).First(&stored)
	if stored.Status != entity.ReportStatusFail {
		t.Errorf("report status = %s, want FAIL", stored.Status)
	}

	// A conforming measurement flips the characteristic and the report
	w3 := testutil.DoRequest(router, http.MethodPut, "/api/v1/quality/characteristics/"+chID, map[string]interface{}{
		"actual_value": "1.5005",
	})
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	ch = testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if ch["result"] != entity.ResultPass {
		t.Fatalf("result = %v, want PASS", ch["result"])
	}

	db.Where("id = ?", reportID).First(&stored)
	if stored.Status != entity.ReportStatusPass {
		t.Errorf("report status = %s, want PASS", stored.Status)
	}

	// clear_actual drops the measurement and the report goes back to PENDING
	w4 := testutil.DoRequest(router, http.MethodPut, "/api/v1/quality/characteristics/"+chID, map[string]interface{}{
		"clear_actual": true,
	})
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	ch = testutil.ParseResponse(w4)["data"].(map[string]interface{})
	if ch["result"] != entity.ResultUnmeasured {
		t.Fatalf("result = %v, want UNMEASURED", ch["result"])
	}

	db.Where("id = ?", reportID).First(&stored)
	if stored.Status != entity.ReportStatusPending {
		t.Errorf("report status = %s, want PENDING", stored.Status)
	}
}

// TestReportDuplicateNumber tests the 409 on a duplicated FAI report number
func TestReportDuplicateNumber(t *testing.T) {
	_, router := setupInspectionTest(t)

	body := map[string]interface{}{
		"part_number":       "PN-1001",
		"fai_report_number": "FAI-2024-001",
	}
	if w := testutil.DoRequest(router, http.MethodPost, "/api/v1/quality/reports", body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/quality/reports", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate report number, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Errorf("code = %v, want 40900", resp["code"])
	}
}

// TestExportForm3Headers tests the spreadsheet download response
func TestExportForm3Headers(t *testing.T) {
	_, router := setupInspectionTest(t)

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/quality/reports", map[string]interface{}{
		"part_number":       "PN-1001",
		"fai_report_number": "FAI-2024-007",
	})
	reportID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(router, http.MethodGet, "/api/v1/quality/reports/"+reportID+"/export", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	if ct := w2.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w2.Header().Get("Content-Disposition"); cd != `attachment; filename="FAI-2024-007_form3.xlsx"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w2.Body.Len() == 0 {
		t.Error("expected non-empty spreadsheet body")
	}
}

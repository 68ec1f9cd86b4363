package dashboard

import (
	"context"
	"testing"
	"time"

	productionEntity "github.com/bitfantasy/nimo-mes/internal/production/entity"
	qualityEntity "github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"github.com/bitfantasy/nimo-mes/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedSummaryJob(t *testing.T, db *gorm.DB, id, number string, due time.Time, status string) {
	t.Helper()
	job := &productionEntity.Job{
		ID:         id,
		CustomerID: "cust-1",
		JobNumber:  number,
		PartNumber: "PN-1",
		Quantity:   1,
		DueDate:    due,
		Status:     status,
		Priority:   productionEntity.JobPriorityNormal,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to seed job %s: %v", number, err)
	}
}

func TestGetSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedCustomer(t, db, "cust-1", "SpaceX", "SPX")
	svc := NewService(db, nil, zap.NewNop())

	today := productionEntity.StartOfDay(time.Now())

	// Overdue counting is by date: due today is not overdue
	seedSummaryJob(t, db, "job-1", "J-001", today, productionEntity.JobStatusInProcess)
	seedSummaryJob(t, db, "job-2", "J-002", today.AddDate(0, 0, -3), productionEntity.JobStatusInProcess)
	seedSummaryJob(t, db, "job-3", "J-003", today.AddDate(0, 0, -3), productionEntity.JobStatusComplete)

	quotes := []productionEntity.Quote{
		{ID: "quote-1", QuoteNumber: "SPX24Q4-001", CustomerID: "cust-1", Status: productionEntity.QuoteStatusPending},
		{ID: "quote-2", QuoteNumber: "SPX24Q4-002", CustomerID: "cust-1", Status: productionEntity.QuoteStatusSent},
		{ID: "quote-3", QuoteNumber: "SPX24Q4-003", CustomerID: "cust-1", Status: productionEntity.QuoteStatusConverted},
	}
	for i := range quotes {
		if err := db.Create(&quotes[i]).Error; err != nil {
			t.Fatalf("Failed to seed quote: %v", err)
		}
	}

	report := &qualityEntity.InspectionReport{
		ID:              "report-1",
		InspectionType:  qualityEntity.InspectionTypeFAI,
		PartNumber:      "PN-1",
		FAIReportNumber: "FAI-2024-001",
		Status:          qualityEntity.ReportStatusPending,
	}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("Failed to seed report: %v", err)
	}
	results := []string{qualityEntity.ResultPass, qualityEntity.ResultPass, qualityEntity.ResultFail, qualityEntity.ResultUnmeasured}
	for i, result := range results {
		ch := &qualityEntity.InspectionCharacteristic{
			ID:       "char-" + string(rune('a'+i)),
			ReportID: "report-1",
			CharNumber: i + 1,
			Result:   result,
		}
		if err := db.Create(ch).Error; err != nil {
			t.Fatalf("Failed to seed characteristic: %v", err)
		}
	}

	equipment := &qualityEntity.Equipment{
		ID:                      "equip-1",
		Name:                    "Mitutoyo Caliper",
		SerialNumber:            "CAL-001",
		LastCalibrationDate:     today.AddDate(-2, 0, 0),
		CalibrationIntervalDays: 365,
	}
	if err := db.Create(equipment).Error; err != nil {
		t.Fatalf("Failed to seed equipment: %v", err)
	}

	summary, err := svc.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}

	if summary.OverdueJobs != 1 {
		t.Errorf("overdue jobs = %d, want 1 (due-today and complete jobs excluded)", summary.OverdueJobs)
	}
	if summary.JobsByStatus[productionEntity.JobStatusInProcess] != 2 {
		t.Errorf("in-process jobs = %d, want 2", summary.JobsByStatus[productionEntity.JobStatusInProcess])
	}
	if summary.OpenQuotes != 2 {
		t.Errorf("open quotes = %d, want 2 (PENDING + SENT)", summary.OpenQuotes)
	}
	if summary.CharacteristicsByResult[qualityEntity.ResultPass] != 2 {
		t.Errorf("pass characteristics = %d, want 2", summary.CharacteristicsByResult[qualityEntity.ResultPass])
	}
	if summary.CharacteristicsByResult[qualityEntity.ResultFail] != 1 {
		t.Errorf("fail characteristics = %d, want 1", summary.CharacteristicsByResult[qualityEntity.ResultFail])
	}
	if summary.CalibrationDueEquipment != 1 {
		t.Errorf("calibration due = %d, want 1", summary.CalibrationDueEquipment)
	}
}

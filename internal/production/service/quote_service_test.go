package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newQuoteService(db *gorm.DB) (*QuoteService, *repository.Repositories) {
	repos := repository.NewRepositories(db)
	svc := NewQuoteService(db, repos.Quote, repos.Customer, repos.Sequence, repos.Job)
	return svc, repos
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFormatQuoteNumber(t *testing.T) {
	cases := []struct {
		prefix  string
		year    int
		quarter int
		seq     int
		want    string
	}{
		{"SPX", 24, 4, 1, "SPX24Q4-001"},
		{"SPX", 24, 4, 12, "SPX24Q4-012"},
		{"ACME", 25, 1, 103, "ACME25Q1-103"},
		{"SPX", 24, 4, 1000, "SPX24Q4-1000"}, // grows past three digits
	}
	for _, tc := range cases {
		got := FormatQuoteNumber(tc.prefix, tc.year, tc.quarter, tc.seq)
		if got != tc.want {
			t.Errorf("FormatQuoteNumber(%s, %d, %d, %d) = %s, want %s",
				tc.prefix, tc.year, tc.quarter, tc.seq, got, tc.want)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	cases := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1},
		{time.March, 1},
		{time.April, 2},
		{time.June, 2},
		{time.July, 3},
		{time.September, 3},
		{time.October, 4},
		{time.December, 4},
	}
	for _, tc := range cases {
		d := time.Date(2024, tc.month, 15, 0, 0, 0, 0, time.UTC)
		if got := entity.QuarterOf(d); got != tc.want {
			t.Errorf("QuarterOf(%s) = %d, want %d", tc.month, got, tc.want)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	items := []entity.QuoteLineItem{
		{Quantity: 10, UnitPrice: dec("450.00"), TotalPrice: LineTotal(dec("450.00"), 10)},
		{Quantity: 50, UnitPrice: dec("25.50"), TotalPrice: LineTotal(dec("25.50"), 50)},
	}

	subtotal, total := ComputeTotals(items, dec("500.00"), dec("1200.00"))
	if !subtotal.Equal(dec("5775.00")) {
		t.Errorf("subtotal = %s, want 5775.00", subtotal)
	}
	if !total.Equal(dec("7475.00")) {
		t.Errorf("total = %s, want 7475.00", total)
	}

	// No items: totals collapse to overhead + profit
	subtotal, total = ComputeTotals(nil, dec("100.00"), dec("50.00"))
	if !subtotal.IsZero() {
		t.Errorf("empty subtotal = %s, want 0", subtotal)
	}
	if !total.Equal(dec("150.00")) {
		t.Errorf("empty total = %s, want 150.00", total)
	}
}

func TestLineTotalDecimalExact(t *testing.T) {
	// 19.99 * 3 must be exactly 59.97, no float drift
	if got := LineTotal(dec("19.99"), 3); !got.Equal(dec("59.97")) {
		t.Errorf("LineTotal = %s, want 59.97", got)
	}
	if got := LineTotal(dec("0.10"), 3); !got.Equal(dec("0.30")) {
		t.Errorf("LineTotal = %s, want 0.30", got)
	}
}

func expectedQuoteNumber(prefix string, seq int) string {
	now := time.Now()
	return FormatQuoteNumber(prefix, now.Year()%100, entity.QuarterOf(now), seq)
}

func TestCreateQuoteAllocatesSequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	first, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems: []CreateLineItemRequest{
			{PartNumber: "PN-1001", Quantity: 10, UnitPrice: dec("450.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if want := expectedQuoteNumber("SPX", 1); first.QuoteNumber != want {
		t.Errorf("first quote number = %s, want %s", first.QuoteNumber, want)
	}
	if !first.Subtotal.Equal(dec("4500.00")) {
		t.Errorf("first subtotal = %s, want 4500.00", first.Subtotal)
	}

	second, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if want := expectedQuoteNumber("SPX", 2); second.QuoteNumber != want {
		t.Errorf("second quote number = %s, want %s", second.QuoteNumber, want)
	}
}

func TestCreateQuoteDistinctBuckets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-a-0000000000000000000000001", "Alpha Aero", "ALA")
	testutil.SeedCustomer(t, db, "cust-b-0000000000000000000000001", "Boeing", "BOE")

	ctx := context.Background()
	qa, err := svc.CreateQuote(ctx, &CreateQuoteRequest{CustomerID: "cust-a-0000000000000000000000001"})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	qb, err := svc.CreateQuote(ctx, &CreateQuoteRequest{CustomerID: "cust-b-0000000000000000000000001"})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}

	// Each customer bucket starts at 001 independently
	if !strings.HasSuffix(qa.QuoteNumber, "-001") {
		t.Errorf("alpha quote number = %s, want -001 suffix", qa.QuoteNumber)
	}
	if !strings.HasSuffix(qb.QuoteNumber, "-001") {
		t.Errorf("boeing quote number = %s, want -001 suffix", qb.QuoteNumber)
	}
}

func TestCreateQuoteMissingPrefix(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-noprefix-00000000000000000001", "No Prefix Inc", "")

	_, err := svc.CreateQuote(context.Background(), &CreateQuoteRequest{
		CustomerID: "cust-noprefix-00000000000000000001",
	})
	if !errors.Is(err, ErrCustomerPrefixMissing) {
		t.Fatalf("err = %v, want ErrCustomerPrefixMissing", err)
	}

	// No sequence number gets spent on the failed attempt
	now := time.Now()
	_, err = repos.Sequence.Get("cust-noprefix-00000000000000000001", now.Year()%100, entity.QuarterOf(now))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("counter lookup err = %v, want ErrNotFound", err)
	}
}

func TestCreateQuoteFailureRollsBackCounter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	if _, err := svc.CreateQuote(ctx, &CreateQuoteRequest{CustomerID: "cust-spacex-000000000000000000001"}); err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}

	// Occupy the number the allocator would hand out next
	blocker := &entity.Quote{
		ID:          "blocker-0000000000000000000000001",
		QuoteNumber: expectedQuoteNumber("SPX", 2),
		CustomerID:  "cust-spacex-000000000000000000001",
		Status:      entity.QuoteStatusPending,
	}
	if err := db.Create(blocker).Error; err != nil {
		t.Fatalf("seed blocker failed: %v", err)
	}

	if _, err := svc.CreateQuote(ctx, &CreateQuoteRequest{CustomerID: "cust-spacex-000000000000000000001"}); err == nil {
		t.Fatal("CreateQuote succeeded, want unique violation")
	}

	// The failed transaction must not consume the increment
	now := time.Now()
	counter, err := repos.Sequence.Get("cust-spacex-000000000000000000001", now.Year()%100, entity.QuarterOf(now))
	if err != nil {
		t.Fatalf("counter lookup failed: %v", err)
	}
	if counter.Count != 1 {
		t.Errorf("counter = %d, want 1 after rollback", counter.Count)
	}
}

func TestConcurrentAllocationIsGapless(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	const n = 8
	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quote, err := svc.CreateQuote(context.Background(), &CreateQuoteRequest{
				CustomerID: "cust-spacex-000000000000000000001",
			})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = quote.QuoteNumber
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: CreateQuote failed: %v", i, err)
		}
	}

	// The allocated suffixes must be exactly {1..n}, no gap, no duplicate
	seen := make(map[int]bool, n)
	for _, num := range numbers {
		idx := strings.LastIndex(num, "-")
		if idx < 0 {
			t.Fatalf("malformed quote number %q", num)
		}
		seq, err := strconv.Atoi(num[idx+1:])
		if err != nil {
			t.Fatalf("malformed sequence in %q: %v", num, err)
		}
		if seen[seq] {
			t.Fatalf("duplicate sequence %d", seq)
		}
		seen[seq] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Errorf("sequence %d missing from allocation", i)
		}
	}
}

func TestLineItemWritesRecomputeTotals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	quote, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID:     "cust-spacex-000000000000000000001",
		OverheadAmount: dec("500.00"),
		ProfitAmount:   dec("1200.00"),
		LineItems: []CreateLineItemRequest{
			{PartNumber: "PN-1001", Quantity: 10, UnitPrice: dec("450.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if !quote.Total.Equal(dec("6200.00")) {
		t.Fatalf("initial total = %s, want 6200.00", quote.Total)
	}

	item, err := svc.AddLineItem(ctx, quote.ID, &CreateLineItemRequest{
		PartNumber: "PN-2002", Quantity: 50, UnitPrice: dec("25.50"),
	})
	if err != nil {
		t.Fatalf("AddLineItem failed: %v", err)
	}
	if !item.TotalPrice.Equal(dec("1275.00")) {
		t.Errorf("item total = %s, want 1275.00", item.TotalPrice)
	}

	reloaded, err := repos.Quote.FindByID(ctx, quote.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !reloaded.Subtotal.Equal(dec("5775.00")) {
		t.Errorf("subtotal after add = %s, want 5775.00", reloaded.Subtotal)
	}
	if !reloaded.Total.Equal(dec("7475.00")) {
		t.Errorf("total after add = %s, want 7475.00", reloaded.Total)
	}

	// Quantity change flows through line total and quote totals
	qty := 20
	if _, err := svc.UpdateLineItem(ctx, item.ID, &UpdateLineItemRequest{Quantity: &qty}); err != nil {
		t.Fatalf("UpdateLineItem failed: %v", err)
	}
	reloaded, _ = repos.Quote.FindByID(ctx, quote.ID)
	if !reloaded.Subtotal.Equal(dec("5010.00")) {
		t.Errorf("subtotal after update = %s, want 5010.00", reloaded.Subtotal)
	}

	if err := svc.DeleteLineItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteLineItem failed: %v", err)
	}
	reloaded, _ = repos.Quote.FindByID(ctx, quote.ID)
	if !reloaded.Subtotal.Equal(dec("4500.00")) {
		t.Errorf("subtotal after delete = %s, want 4500.00", reloaded.Subtotal)
	}
	if !reloaded.Total.Equal(dec("6200.00")) {
		t.Errorf("total after delete = %s, want 6200.00", reloaded.Total)
	}
}

func TestUpdateQuoteRecomputesOnOverheadChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	quote, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems: []CreateLineItemRequest{
			{PartNumber: "PN-1001", Quantity: 10, UnitPrice: dec("450.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}

	overhead := dec("500.00")
	profit := dec("775.00")
	updated, err := svc.UpdateQuote(ctx, quote.ID, &UpdateQuoteRequest{
		OverheadAmount: &overhead,
		ProfitAmount:   &profit,
	})
	if err != nil {
		t.Fatalf("UpdateQuote failed: %v", err)
	}
	if !updated.Total.Equal(dec("5775.00")) {
		t.Errorf("total = %s, want 5775.00", updated.Total)
	}
	if updated.QuoteNumber != quote.QuoteNumber {
		t.Errorf("quote number changed on update: %s -> %s", quote.QuoteNumber, updated.QuoteNumber)
	}
}

func TestCreateQuoteRejectsInvalidItems(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	_, err := svc.CreateQuote(context.Background(), &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems:  []CreateLineItemRequest{{PartNumber: "PN-1", Quantity: 0, UnitPrice: dec("1.00")}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("err = %v, want ErrInvalidQuantity", err)
	}

	_, err = svc.CreateQuote(context.Background(), &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems:  []CreateLineItemRequest{{PartNumber: "PN-1", Quantity: 1, UnitPrice: dec("-1.00")}},
	})
	if !errors.Is(err, ErrInvalidUnitPrice) {
		t.Errorf("err = %v, want ErrInvalidUnitPrice", err)
	}
}

func TestConvertQuote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	quote, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems: []CreateLineItemRequest{
			{PartNumber: "PN-1001", Quantity: 10, UnitPrice: dec("450.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}

	due := time.Now().AddDate(0, 1, 0)
	job, err := svc.ConvertQuote(ctx, quote.ID, &ConvertQuoteRequest{
		JobNumber: "J-2024-100",
		DueDate:   due,
	})
	if err != nil {
		t.Fatalf("ConvertQuote failed: %v", err)
	}
	if job.JobNumber != "J-2024-100" {
		t.Errorf("job number = %s, want J-2024-100", job.JobNumber)
	}
	if job.Status != entity.JobStatusScheduled {
		t.Errorf("job status = %s, want SCHEDULED", job.Status)
	}
	if job.PartNumber != "PN-1001" || job.Quantity != 10 {
		t.Errorf("job part/qty = %s/%d, want PN-1001/10 from first line item", job.PartNumber, job.Quantity)
	}
	if job.SourceQuoteID == nil || *job.SourceQuoteID != quote.ID {
		t.Errorf("job source quote = %v, want %s", job.SourceQuoteID, quote.ID)
	}

	reloaded, err := repos.Quote.FindByID(ctx, quote.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if reloaded.Status != entity.QuoteStatusConverted {
		t.Errorf("quote status = %s, want CONVERTED", reloaded.Status)
	}

	// Converting twice is rejected
	_, err = svc.ConvertQuote(ctx, quote.ID, &ConvertQuoteRequest{
		JobNumber: fmt.Sprintf("J-%d", time.Now().UnixNano()),
		DueDate:   due,
	})
	if !errors.Is(err, ErrQuoteAlreadyConverted) {
		t.Errorf("err = %v, want ErrQuoteAlreadyConverted", err)
	}
}

func TestQuoteStatusValidated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	_, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		Status:     "BOGUS",
	})
	if !errors.Is(err, ErrInvalidQuoteStatus) {
		t.Fatalf("create err = %v, want ErrInvalidQuoteStatus", err)
	}

	quote, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		Status:     entity.QuoteStatusSent,
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}

	bad := "NONSENSE"
	_, err = svc.UpdateQuote(ctx, quote.ID, &UpdateQuoteRequest{Status: &bad})
	if !errors.Is(err, ErrInvalidQuoteStatus) {
		t.Errorf("update err = %v, want ErrInvalidQuoteStatus", err)
	}
}

func TestDeleteQuoteClearsJobReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newQuoteService(db)
	testutil.SeedCustomer(t, db, "cust-spacex-000000000000000000001", "SpaceX", "SPX")

	ctx := context.Background()
	if err := svc.DeleteQuote(ctx, "missing-00000000000000000000001"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}

	quote, err := svc.CreateQuote(ctx, &CreateQuoteRequest{
		CustomerID: "cust-spacex-000000000000000000001",
		LineItems: []CreateLineItemRequest{
			{PartNumber: "PN-1001", Quantity: 10, UnitPrice: dec("450.00")},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	job, err := svc.ConvertQuote(ctx, quote.ID, &ConvertQuoteRequest{
		JobNumber: "J-2024-200",
		DueDate:   time.Now().AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("ConvertQuote failed: %v", err)
	}

	if err := svc.DeleteQuote(ctx, quote.ID); err != nil {
		t.Fatalf("DeleteQuote failed: %v", err)
	}

	// The job survives with its reference to the deleted quote cleared
	reloaded, err := repos.Job.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if reloaded.SourceQuoteID != nil {
		t.Errorf("source quote id = %v, want nil after quote deletion", *reloaded.SourceQuoteID)
	}

	var lineCount int64
	if err := db.Model(&entity.QuoteLineItem{}).Where("quote_id = ?", quote.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("line item count failed: %v", err)
	}
	if lineCount != 0 {
		t.Errorf("line items remaining = %d, want 0", lineCount)
	}
}

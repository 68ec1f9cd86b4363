package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrCustomerPrefixMissing 客户未配置报价编号前缀（配置错误，拒绝创建报价）
	ErrCustomerPrefixMissing = errors.New("customer has no identification prefix configured")
	// ErrQuoteAlreadyConverted 报价已转工单
	ErrQuoteAlreadyConverted = errors.New("quote already converted to a job")
	// ErrInvalidQuantity 数量必须为正
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidUnitPrice 单价不能为负
	ErrInvalidUnitPrice = errors.New("unit price must not be negative")
	// ErrInvalidQuoteStatus 报价状态不在枚举内
	ErrInvalidQuoteStatus = errors.New("invalid quote status")
)

// FormatQuoteNumber 报价编号格式 {prefix}{yy}Q{q}-{nnn}，如 SPX24Q4-001
//
// 序号补零到三位，超过 999 后自然扩展。
func FormatQuoteNumber(prefix string, year, quarter, seq int) string {
	return fmt.Sprintf("%s%02dQ%d-%03d", prefix, year, quarter, seq)
}

// LineTotal 行项金额 = 单价 × 数量，定点十进制运算
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ComputeTotals 汇总报价合计：subtotal = Σ 行项金额，total = subtotal + 管理费 + 利润
//
// 行项各自的 TotalPrice 必须在调用前已经刷新。
func ComputeTotals(items []entity.QuoteLineItem, overhead, profit decimal.Decimal) (subtotal, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	total = subtotal.Add(overhead).Add(profit)
	return subtotal, total
}

// QuoteService 报价服务：编号分配与合计计算
type QuoteService struct {
	db           *gorm.DB
	repo         *repository.QuoteRepository
	customerRepo *repository.CustomerRepository
	seqRepo      *repository.SequenceRepository
	jobRepo      *repository.JobRepository
}

func NewQuoteService(
	db *gorm.DB,
	repo *repository.QuoteRepository,
	customerRepo *repository.CustomerRepository,
	seqRepo *repository.SequenceRepository,
	jobRepo *repository.JobRepository,
) *QuoteService {
	return &QuoteService{
		db:           db,
		repo:         repo,
		customerRepo: customerRepo,
		seqRepo:      seqRepo,
		jobRepo:      jobRepo,
	}
}

// CreateQuoteRequest 创建报价请求
type CreateQuoteRequest struct {
	CustomerID     string                  `json:"customer_id" binding:"required"`
	Status         string                  `json:"status"`
	ValidUntil     *time.Time              `json:"valid_until"`
	OverheadAmount decimal.Decimal         `json:"overhead_amount"`
	ProfitAmount   decimal.Decimal         `json:"profit_amount"`
	LineItems      []CreateLineItemRequest `json:"line_items"`
}

// CreateLineItemRequest 创建报价行项请求
type CreateLineItemRequest struct {
	PartNumber  string          `json:"part_number" binding:"required"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateQuote 创建报价
//
// 编号分配、计数器自增、报价与行项写入、合计计算在同一事务内完成：
// 任意一步失败整体回滚，序号不会被消耗。编号只在创建时分配一次，
// 更新路径永不改写 quote_number。
func (s *QuoteService) CreateQuote(ctx context.Context, req *CreateQuoteRequest) (*entity.Quote, error) {
	for _, item := range req.LineItems {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return nil, ErrInvalidUnitPrice
		}
	}

	status := req.Status
	if status == "" {
		status = entity.QuoteStatusPending
	} else if !entity.IsValidQuoteStatus(status) {
		return nil, ErrInvalidQuoteStatus
	}

	var quote *entity.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer entity.Customer
		if err := tx.Where("id = ?", req.CustomerID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if customer.IdentificationPrefix == "" {
			return ErrCustomerPrefixMissing
		}

		now := time.Now()
		year := now.Year() % 100
		quarter := entity.QuarterOf(now)

		seq, err := s.seqRepo.NextCount(tx, customer.ID, year, quarter)
		if err != nil {
			return fmt.Errorf("allocate sequence: %w", err)
		}

		items := make([]entity.QuoteLineItem, 0, len(req.LineItems))
		for _, item := range req.LineItems {
			items = append(items, entity.QuoteLineItem{
				ID:          uuid.New().String()[:32],
				PartNumber:  item.PartNumber,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TotalPrice:  LineTotal(item.UnitPrice, item.Quantity),
			})
		}
		subtotal, total := ComputeTotals(items, req.OverheadAmount, req.ProfitAmount)

		quote = &entity.Quote{
			ID:             uuid.New().String()[:32],
			QuoteNumber:    FormatQuoteNumber(customer.IdentificationPrefix, year, quarter, seq),
			CustomerID:     customer.ID,
			Status:         status,
			ValidUntil:     req.ValidUntil,
			Subtotal:       subtotal,
			OverheadAmount: req.OverheadAmount,
			ProfitAmount:   req.ProfitAmount,
			Total:          total,
			LineItems:      items,
		}
		if err := tx.Create(quote).Error; err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// GetQuote 获取报价详情
func (s *QuoteService) GetQuote(ctx context.Context, id string) (*entity.Quote, error) {
	return s.repo.FindByID(ctx, id)
}

// ListQuotes 获取报价列表
func (s *QuoteService) ListQuotes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Quote, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// UpdateQuoteRequest 更新报价请求，编号与客户不可变更
type UpdateQuoteRequest struct {
	Status         *string          `json:"status"`
	ValidUntil     *time.Time       `json:"valid_until"`
	OverheadAmount *decimal.Decimal `json:"overhead_amount"`
	ProfitAmount   *decimal.Decimal `json:"profit_amount"`
}

// UpdateQuote 更新报价；管理费或利润变动时在同一事务内刷新合计
func (s *QuoteService) UpdateQuote(ctx context.Context, id string, req *UpdateQuoteRequest) (*entity.Quote, error) {
	if req.Status != nil && !entity.IsValidQuoteStatus(*req.Status) {
		return nil, ErrInvalidQuoteStatus
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote entity.Quote
		if err := tx.Where("id = ?", id).First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{}
		if req.Status != nil {
			updates["status"] = *req.Status
		}
		if req.ValidUntil != nil {
			updates["valid_until"] = *req.ValidUntil
		}
		if req.OverheadAmount != nil {
			updates["overhead_amount"] = *req.OverheadAmount
		}
		if req.ProfitAmount != nil {
			updates["profit_amount"] = *req.ProfitAmount
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = time.Now()
		if err := tx.Model(&entity.Quote{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if req.OverheadAmount != nil || req.ProfitAmount != nil {
			return s.recomputeTotals(tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// DeleteQuote 删除报价
func (s *QuoteService) DeleteQuote(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// AddLineItem 新增报价行项，随后在同一事务内刷新报价合计
func (s *QuoteService) AddLineItem(ctx context.Context, quoteID string, req *CreateLineItemRequest) (*entity.QuoteLineItem, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return nil, ErrInvalidUnitPrice
	}

	item := &entity.QuoteLineItem{
		ID:          uuid.New().String()[:32],
		QuoteID:     quoteID,
		PartNumber:  req.PartNumber,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TotalPrice:  LineTotal(req.UnitPrice, req.Quantity),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote entity.Quote
		if err := tx.Where("id = ?", quoteID).First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, quoteID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateLineItemRequest 更新报价行项请求
type UpdateLineItemRequest struct {
	PartNumber  *string          `json:"part_number"`
	Description *string          `json:"description"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// UpdateLineItem 更新报价行项
//
// 行项自身的 TotalPrice 先于父报价汇总刷新，两者在同一事务内落盘。
func (s *QuoteService) UpdateLineItem(ctx context.Context, id string, req *UpdateLineItemRequest) (*entity.QuoteLineItem, error) {
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, ErrInvalidUnitPrice
	}

	var item *entity.QuoteLineItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.QuoteLineItem
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if req.PartNumber != nil {
			existing.PartNumber = *req.PartNumber
		}
		if req.Description != nil {
			existing.Description = *req.Description
		}
		if req.Quantity != nil {
			existing.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			existing.UnitPrice = *req.UnitPrice
		}
		existing.TotalPrice = LineTotal(existing.UnitPrice, existing.Quantity)

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		item = &existing
		return s.recomputeTotals(tx, existing.QuoteID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteLineItem 删除报价行项并刷新报价合计
func (s *QuoteService) DeleteLineItem(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.QuoteLineItem
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&entity.QuoteLineItem{}).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, existing.QuoteID)
	})
}

// recomputeTotals 行项写入后的显式级联：重算所属报价的 subtotal/total
//
// 只回写受影响的金额字段，不触碰行项。必须作为行项变更事务的
// 最后一步同步执行，不允许延迟或批量处理。
func (s *QuoteService) recomputeTotals(tx *gorm.DB, quoteID string) error {
	var quote entity.Quote
	if err := tx.Where("id = ?", quoteID).First(&quote).Error; err != nil {
		return err
	}

	items, err := s.repo.LineItemsOf(tx, quoteID)
	if err != nil {
		return err
	}

	subtotal, total := ComputeTotals(items, quote.OverheadAmount, quote.ProfitAmount)
	return tx.Model(&entity.Quote{}).Where("id = ?", quoteID).Updates(map[string]interface{}{
		"subtotal":   subtotal,
		"total":      total,
		"updated_at": time.Now(),
	}).Error
}

// ConvertQuoteRequest 报价转工单请求；工单号由调用方给定
type ConvertQuoteRequest struct {
	JobNumber  string    `json:"job_number" binding:"required"`
	DueDate    time.Time `json:"due_date" binding:"required"`
	PartNumber string    `json:"part_number"`
	Quantity   int       `json:"quantity"`
	Priority   string    `json:"priority"`
}

// ConvertQuote 报价转工单：创建工单并将报价置为 CONVERTED，同一事务
func (s *QuoteService) ConvertQuote(ctx context.Context, quoteID string, req *ConvertQuoteRequest) (*entity.Job, error) {
	var job *entity.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote entity.Quote
		if err := tx.Preload("LineItems").Where("id = ?", quoteID).First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if quote.Status == entity.QuoteStatusConverted {
			return ErrQuoteAlreadyConverted
		}

		partNumber := req.PartNumber
		quantity := req.Quantity
		if len(quote.LineItems) > 0 {
			if partNumber == "" {
				partNumber = quote.LineItems[0].PartNumber
			}
			if quantity == 0 {
				quantity = quote.LineItems[0].Quantity
			}
		}
		priority := req.Priority
		if priority == "" {
			priority = entity.JobPriorityNormal
		}

		job = &entity.Job{
			ID:            uuid.New().String()[:32],
			CustomerID:    quote.CustomerID,
			JobNumber:     req.JobNumber,
			PartNumber:    partNumber,
			Quantity:      quantity,
			DueDate:       req.DueDate,
			Status:        entity.JobStatusScheduled,
			Priority:      priority,
			SourceQuoteID: &quote.ID,
		}
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("create job: %w", err)
		}

		return tx.Model(&entity.Quote{}).Where("id = ?", quoteID).Updates(map[string]interface{}{
			"status":     entity.QuoteStatusConverted,
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

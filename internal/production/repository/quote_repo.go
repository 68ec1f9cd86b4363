package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"gorm.io/gorm"
)

// QuoteRepository 报价仓库
type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// FindAll 查询报价列表
func (r *QuoteRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Quote, int64, error) {
	var items []entity.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Quote{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := filters["customer_id"]; customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("quote_number LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Customer").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找报价（含行项与客户）
func (r *QuoteRepository) FindByID(ctx context.Context, id string) (*entity.Quote, error) {
	var quote entity.Quote
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("Customer").
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &quote, nil
}

// Delete 删除报价及其行项，并解除工单对来源报价的引用
func (r *QuoteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote entity.Quote
		if err := tx.Where("id = ?", id).First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&entity.Job{}).
			Where("source_quote_id = ?", id).
			Update("source_quote_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&entity.QuoteLineItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Quote{}).Error
	})
}

// FindLineItem 根据ID查找报价行项
func (r *QuoteRepository) FindLineItem(ctx context.Context, id string) (*entity.QuoteLineItem, error) {
	var item entity.QuoteLineItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// LineItemsOf 报价名下全部行项
func (r *QuoteRepository) LineItemsOf(tx *gorm.DB, quoteID string) ([]entity.QuoteLineItem, error) {
	var items []entity.QuoteLineItem
	err := tx.
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"gorm.io/gorm"
)

// CustomerRepository 客户仓库
type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// CustomerListParams 客户列表查询参数
type CustomerListParams struct {
	Search  string
	OrderBy string // name / created_at
	Page    int
	PageSize int
}

// FindAll 查询客户列表
func (r *CustomerRepository) FindAll(ctx context.Context, params CustomerListParams) ([]entity.Customer, int64, error) {
	var items []entity.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Customer{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR identification_prefix LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "name ASC"
	if params.OrderBy == "created_at" {
		order = "created_at DESC"
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.
		Order(order).
		Offset(offset).
		Limit(params.PageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找客户
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*entity.Customer, error) {
	var customer entity.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByPrefix 根据编号前缀查找客户
func (r *CustomerRepository) FindByPrefix(ctx context.Context, prefix string) (*entity.Customer, error) {
	var customer entity.Customer
	err := r.db.WithContext(ctx).
		Where("identification_prefix = ?", prefix).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建客户
func (r *CustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// Update 更新客户
func (r *CustomerRepository) Update(ctx context.Context, customer *entity.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// Delete 删除客户
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Customer{}).Error
}

// CountQuotes 客户名下的报价数量，用于前缀不可变校验
func (r *CustomerRepository) CountQuotes(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Quote{}).
		Where("customer_id = ?", customerID).
		Count(&n).Error
	return n, err
}

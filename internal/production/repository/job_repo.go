package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"gorm.io/gorm"
)

// JobRepository 工单仓库
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// JobListParams 工单列表查询参数
type JobListParams struct {
	Status     string
	Priority   string
	CustomerID string
	Search     string
	OrderBy    string // due_date / created_at / priority
	Page       int
	PageSize   int
}

// FindAll 查询工单列表
func (r *JobRepository) FindAll(ctx context.Context, params JobListParams) ([]entity.Job, int64, error) {
	var items []entity.Job
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Job{})

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Priority != "" {
		query = query.Where("priority = ?", params.Priority)
	}
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("job_number LIKE ? OR part_number LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "due_date ASC"
	switch params.OrderBy {
	case "created_at":
		order = "created_at DESC"
	case "priority":
		order = "priority ASC"
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.
		Preload("Customer").
		Order(order).
		Offset(offset).
		Limit(params.PageSize).
		Find(&items).Error

	return items, total, err
}

// FindOverdue 逾期工单：已过交期且未完工
func (r *JobRepository) FindOverdue(ctx context.Context, today time.Time) ([]entity.Job, error) {
	var items []entity.Job
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("due_date < ? AND status <> ?", today, entity.JobStatusComplete).
		Order("due_date ASC").
		Find(&items).Error
	return items, err
}

// FindByStatus 按状态检索工单，按交期升序
func (r *JobRepository) FindByStatus(ctx context.Context, status string) ([]entity.Job, error) {
	var items []entity.Job
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ?", status).
		Order("due_date ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找工单（含工序与客户）
func (r *JobRepository) FindByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date ASC")
		}).
		Preload("Customer").
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Create 创建工单
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update 更新工单
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// Delete 删除工单及其工序
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&entity.Operation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Job{}).Error
	})
}

package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"gorm.io/gorm"
)

// OperationRepository 工序仓库
type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// FindByJob 工单名下工序，按开始日期排序
func (r *OperationRepository) FindByJob(ctx context.Context, jobID string) ([]entity.Operation, error) {
	var items []entity.Operation
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_date ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找工序
func (r *OperationRepository) FindByID(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// Create 创建工序
func (r *OperationRepository) Create(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// Update 更新工序
func (r *OperationRepository) Update(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

// Delete 删除工序
func (r *OperationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Operation{}).Error
}

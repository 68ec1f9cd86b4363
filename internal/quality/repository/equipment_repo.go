package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"gorm.io/gorm"
)

// EquipmentRepository 检测设备数据访问
type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// FindAll 获取设备列表
func (r *EquipmentRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.Equipment, int64, error) {
	var items []entity.Equipment
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Equipment{})
	if search != "" {
		query = query.Where("name LIKE ? OR serial_number LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("name ASC").Offset(offset).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindEvery 获取全部设备，校准到期筛选在内存进行，不分页
func (r *EquipmentRepository) FindEvery(ctx context.Context) ([]entity.Equipment, error) {
	var items []entity.Equipment
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// FindByID 根据 ID 获取设备
func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*entity.Equipment, error) {
	var equipment entity.Equipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&equipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &equipment, nil
}

// Create 创建设备
func (r *EquipmentRepository) Create(ctx context.Context, equipment *entity.Equipment) error {
	return r.db.WithContext(ctx).Create(equipment).Error
}

// Update 更新设备
func (r *EquipmentRepository) Update(ctx context.Context, equipment *entity.Equipment) error {
	return r.db.WithContext(ctx).Save(equipment).Error
}

// Delete 删除设备
func (r *EquipmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Equipment{}).Error
}

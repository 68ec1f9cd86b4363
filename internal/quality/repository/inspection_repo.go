package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"gorm.io/gorm"
)

// InspectionRepository 检验报告、特性与附件数据访问
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// FindReports 获取检验报告列表
func (r *InspectionRepository) FindReports(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InspectionReport, int64, error) {
	var reports []entity.InspectionReport
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InspectionReport{})
	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["inspection_type"]; v != "" {
		query = query.Where("inspection_type = ?", v)
	}
	if v := filters["job_id"]; v != "" {
		query = query.Where("job_id = ?", v)
	}
	if v := filters["search"]; v != "" {
		query = query.Where("fai_report_number LIKE ? OR part_number LIKE ?", "%"+v+"%", "%"+v+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// FindReportByID 获取报告详情，含特性（按气泡号排序）
func (r *InspectionRepository) FindReportByID(ctx context.Context, id string) (*entity.InspectionReport, error) {
	var report entity.InspectionReport
	err := r.db.WithContext(ctx).
		Preload("Characteristics", func(db *gorm.DB) *gorm.DB {
			return db.Order("char_number ASC")
		}).
		Preload("Characteristics.Equipment").
		Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// CreateReport 创建检验报告
func (r *InspectionRepository) CreateReport(ctx context.Context, report *entity.InspectionReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// UpdateReport 更新检验报告
func (r *InspectionRepository) UpdateReport(ctx context.Context, report *entity.InspectionReport) error {
	return r.db.WithContext(ctx).Save(report).Error
}

// DeleteReport 删除报告及其特性、附件
func (r *InspectionRepository) DeleteReport(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&entity.InspectionCharacteristic{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&entity.ReportAttachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.InspectionReport{}).Error
	})
}

// FindCharacteristics 获取特性列表
func (r *InspectionRepository) FindCharacteristics(ctx context.Context, reportID, result string) ([]entity.InspectionCharacteristic, error) {
	var items []entity.InspectionCharacteristic
	query := r.db.WithContext(ctx).Where("report_id = ?", reportID)
	if result != "" {
		query = query.Where("result = ?", result)
	}
	err := query.Order("char_number ASC").Find(&items).Error
	return items, err
}

// FindCharacteristicByID 根据 ID 获取特性
func (r *InspectionRepository) FindCharacteristicByID(ctx context.Context, id string) (*entity.InspectionCharacteristic, error) {
	var item entity.InspectionCharacteristic
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateCharacteristic 创建特性
func (r *InspectionRepository) CreateCharacteristic(ctx context.Context, item *entity.InspectionCharacteristic) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateCharacteristic 更新特性
func (r *InspectionRepository) UpdateCharacteristic(ctx context.Context, item *entity.InspectionCharacteristic) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteCharacteristic 删除特性
func (r *InspectionRepository) DeleteCharacteristic(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.InspectionCharacteristic{}).Error
}

// CountCharacteristicsByResult 统计指定报告各判定结果的特性数
func (r *InspectionRepository) CountCharacteristicsByResult(ctx context.Context, reportID string) (map[string]int64, error) {
	type row struct {
		Result string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entity.InspectionCharacteristic{}).
		Select("result, COUNT(*) as count").
		Where("report_id = ?", reportID).
		Group("result").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Result] = r.Count
	}
	return counts, nil
}

// FindAttachments 获取报告附件列表
func (r *InspectionRepository) FindAttachments(ctx context.Context, reportID string) ([]entity.ReportAttachment, error) {
	var items []entity.ReportAttachment
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("created_at DESC").Find(&items).Error
	return items, err
}

// FindAttachmentByID 根据 ID 获取附件
func (r *InspectionRepository) FindAttachmentByID(ctx context.Context, id string) (*entity.ReportAttachment, error) {
	var item entity.ReportAttachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateAttachment 创建附件记录
func (r *InspectionRepository) CreateAttachment(ctx context.Context, item *entity.ReportAttachment) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// DeleteAttachment 删除附件记录
func (r *InspectionRepository) DeleteAttachment(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ReportAttachment{}).Error
}

package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"github.com/bitfantasy/nimo-mes/internal/quality/repository"
	"github.com/google/uuid"
)

// EquipmentService 检测设备服务
type EquipmentService struct {
	repo *repository.EquipmentRepository
}

func NewEquipmentService(repo *repository.EquipmentRepository) *EquipmentService {
	return &EquipmentService{repo: repo}
}

// CreateEquipmentRequest 创建设备请求
type CreateEquipmentRequest struct {
	Name                    string    `json:"name" binding:"required"`
	SerialNumber            string    `json:"serial_number" binding:"required"`
	LastCalibrationDate     time.Time `json:"last_calibration_date" binding:"required"`
	CalibrationIntervalDays int       `json:"calibration_interval_days"`
}

// CreateEquipment 创建设备
func (s *EquipmentService) CreateEquipment(ctx context.Context, req *CreateEquipmentRequest) (*entity.Equipment, error) {
	intervalDays := req.CalibrationIntervalDays
	if intervalDays <= 0 {
		intervalDays = 365
	}

	equipment := &entity.Equipment{
		ID:                      uuid.New().String()[:32],
		Name:                    req.Name,
		SerialNumber:            req.SerialNumber,
		LastCalibrationDate:     req.LastCalibrationDate,
		CalibrationIntervalDays: intervalDays,
	}
	if err := s.repo.Create(ctx, equipment); err != nil {
		return nil, err
	}
	s.fillCalibrationStatus(equipment, time.Now())
	return equipment, nil
}

// GetEquipment 获取设备详情
func (s *EquipmentService) GetEquipment(ctx context.Context, id string) (*entity.Equipment, error) {
	equipment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillCalibrationStatus(equipment, time.Now())
	return equipment, nil
}

// ListEquipment 获取设备列表
func (s *EquipmentService) ListEquipment(ctx context.Context, page, pageSize int, search string) ([]entity.Equipment, int64, error) {
	items, total, err := s.repo.FindAll(ctx, page, pageSize, search)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	for i := range items {
		s.fillCalibrationStatus(&items[i], now)
	}
	return items, total, nil
}

// ListCalibrationDue 校准到期设备清单
func (s *EquipmentService) ListCalibrationDue(ctx context.Context, today time.Time) ([]entity.Equipment, error) {
	items, err := s.repo.FindEvery(ctx)
	if err != nil {
		return nil, err
	}
	due := make([]entity.Equipment, 0)
	for i := range items {
		if items[i].IsCalibrationDue(today) {
			s.fillCalibrationStatus(&items[i], today)
			due = append(due, items[i])
		}
	}
	return due, nil
}

// UpdateEquipmentRequest 更新设备请求
type UpdateEquipmentRequest struct {
	Name                    *string    `json:"name"`
	SerialNumber            *string    `json:"serial_number"`
	LastCalibrationDate     *time.Time `json:"last_calibration_date"`
	CalibrationIntervalDays *int       `json:"calibration_interval_days"`
}

// UpdateEquipment 更新设备（校准登记通过更新 LastCalibrationDate 完成）
func (s *EquipmentService) UpdateEquipment(ctx context.Context, id string, req *UpdateEquipmentRequest) (*entity.Equipment, error) {
	equipment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		equipment.Name = *req.Name
	}
	if req.SerialNumber != nil {
		equipment.SerialNumber = *req.SerialNumber
	}
	if req.LastCalibrationDate != nil {
		equipment.LastCalibrationDate = *req.LastCalibrationDate
	}
	if req.CalibrationIntervalDays != nil && *req.CalibrationIntervalDays > 0 {
		equipment.CalibrationIntervalDays = *req.CalibrationIntervalDays
	}
	equipment.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, equipment); err != nil {
		return nil, err
	}
	s.fillCalibrationStatus(equipment, time.Now())
	return equipment, nil
}

// DeleteEquipment 删除设备
func (s *EquipmentService) DeleteEquipment(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *EquipmentService) fillCalibrationStatus(equipment *entity.Equipment, today time.Time) {
	if equipment.IsCalibrationDue(today) {
		equipment.CalibrationStatus = entity.CalibrationStatusDue
	} else {
		equipment.CalibrationStatus = entity.CalibrationStatusCurrent
	}
}

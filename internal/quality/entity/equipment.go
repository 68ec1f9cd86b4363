package entity

import "time"

// Equipment 检测设备/量具
type Equipment struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	Name         string `json:"name" gorm:"size:100;not null"`
	SerialNumber string `json:"serial_number" gorm:"size:50;not null"`

	LastCalibrationDate     time.Time `json:"last_calibration_date" gorm:"not null"`
	CalibrationIntervalDays int       `json:"calibration_interval_days" gorm:"not null;default:365"`

	// 序列化时填充，DUE / CURRENT
	CalibrationStatus string `json:"calibration_status,omitempty" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Equipment) TableName() string {
	return "mes_equipment"
}

// 校准状态
const (
	CalibrationStatusDue     = "DUE"
	CalibrationStatusCurrent = "CURRENT"
)

// NextCalibrationDue 下次校准到期日
func (e *Equipment) NextCalibrationDue() time.Time {
	return e.LastCalibrationDate.AddDate(0, 0, e.CalibrationIntervalDays)
}

// IsCalibrationDue 校准是否到期（到期日当天即到期）
func (e *Equipment) IsCalibrationDue(today time.Time) bool {
	return !e.NextCalibrationDue().After(today)
}

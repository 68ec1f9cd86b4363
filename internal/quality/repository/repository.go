package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Repositories 质量域数据访问层聚合
type Repositories struct {
	Equipment  *EquipmentRepository
	Inspection *InspectionRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Equipment:  NewEquipmentRepository(db),
		Inspection: NewInspectionRepository(db),
	}
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InspectionReport 首件检验报告（AS9102）
type InspectionReport struct {
	ID    string  `json:"id" gorm:"primaryKey;size:32"`
	JobID *string `json:"job_id" gorm:"size:32;index"`

	InspectionType string `json:"inspection_type" gorm:"size:20;default:FAI"` // FAI/IN_PROCESS/FINAL

	PartNumber      string `json:"part_number" gorm:"size:50;not null"`
	PartName        string `json:"part_name" gorm:"size:100"`
	SerialNumber    string `json:"serial_number" gorm:"size:50"`
	FAIReportNumber string `json:"fai_report_number" gorm:"size:50;uniqueIndex;not null"`

	Status         string     `json:"status" gorm:"size:10;default:PENDING"` // PENDING/PASS/FAIL
	InspectionDate *time.Time `json:"inspection_date"`

	Characteristics []InspectionCharacteristic `json:"characteristics,omitempty" gorm:"foreignKey:ReportID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InspectionReport) TableName() string {
	return "mes_inspection_reports"
}

// 报告状态
const (
	ReportStatusPending = "PENDING"
	ReportStatusPass    = "PASS"
	ReportStatusFail    = "FAIL"
)

// 检验类型
const (
	InspectionTypeFAI       = "FAI"
	InspectionTypeInProcess = "IN_PROCESS"
	InspectionTypeFinal     = "FINAL"
)

// InspectionCharacteristic AS9102 Form 3 的一行：一个带公差的检测尺寸
//
// Result 在 ActualValue 写入的同一持久化操作内计算，三态区分
// 未测量与不合格，不会出现基于过期实测值的判定。
type InspectionCharacteristic struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	ReportID string `json:"report_id" gorm:"size:32;not null;index"`

	// 图纸气泡号
	CharNumber  int    `json:"char_number" gorm:"not null"`
	Description string `json:"description" gorm:"size:200"`
	Requirement string `json:"requirement" gorm:"size:100"` // 如 0.500 +/- 0.005

	// 公差按幅值存储，调用方负责保证非负
	NominalValue   decimal.Decimal `json:"nominal_value" gorm:"type:decimal(10,4)"`
	UpperTolerance decimal.Decimal `json:"upper_tolerance" gorm:"type:decimal(10,4)"`
	LowerTolerance decimal.Decimal `json:"lower_tolerance" gorm:"type:decimal(10,4)"`

	ActualValue decimal.NullDecimal `json:"actual_value" gorm:"type:decimal(10,4)"`
	Result      string              `json:"result" gorm:"size:12;default:UNMEASURED"` // UNMEASURED/PASS/FAIL

	EquipmentID *string    `json:"equipment_id" gorm:"size:32"`
	Equipment   *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InspectionCharacteristic) TableName() string {
	return "mes_inspection_characteristics"
}

// 判定结果
const (
	ResultUnmeasured = "UNMEASURED"
	ResultPass       = "PASS"
	ResultFail       = "FAIL"
)

// UpperLimit 公差带上限 nominal + upperTol
func (ch *InspectionCharacteristic) UpperLimit() decimal.Decimal {
	return ch.NominalValue.Add(ch.UpperTolerance)
}

// LowerLimit 公差带下限 nominal - lowerTol
func (ch *InspectionCharacteristic) LowerLimit() decimal.Decimal {
	return ch.NominalValue.Sub(ch.LowerTolerance)
}

// ReportAttachment 检验报告附件（扫描件、证书等），对象存储于 MinIO
type ReportAttachment struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	ReportID string `json:"report_id" gorm:"size:32;not null;index"`

	FileName    string `json:"file_name" gorm:"size:255;not null"`
	ObjectKey   string `json:"object_key" gorm:"size:500;not null"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
}

func (ReportAttachment) TableName() string {
	return "mes_report_attachments"
}

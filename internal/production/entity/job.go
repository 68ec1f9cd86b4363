package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job 生产工单
type Job struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	CustomerID string `json:"customer_id" gorm:"size:32;not null;index"`
	JobNumber  string `json:"job_number" gorm:"size:50;uniqueIndex;not null"`

	PartNumber string    `json:"part_number" gorm:"size:50;not null"`
	Quantity   int       `json:"quantity" gorm:"not null"`
	DueDate    time.Time `json:"due_date" gorm:"not null"`

	Status   string `json:"status" gorm:"size:20;default:QUOTE"`    // QUOTE/SCHEDULED/IN_PROCESS/COMPLETE
	Priority string `json:"priority" gorm:"size:20;default:NORMAL"` // LOW/NORMAL/HIGH/URGENT

	// 来源报价（报价转工单时填写）
	SourceQuoteID *string `json:"source_quote_id" gorm:"size:32"`

	Operations []Operation `json:"operations,omitempty" gorm:"foreignKey:JobID"`
	Customer   *Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string {
	return "mes_jobs"
}

// 工单状态
const (
	JobStatusQuote     = "QUOTE"
	JobStatusScheduled = "SCHEDULED"
	JobStatusInProcess = "IN_PROCESS"
	JobStatusComplete  = "COMPLETE"
)

// 工单优先级
const (
	JobPriorityLow    = "LOW"
	JobPriorityNormal = "NORMAL"
	JobPriorityHigh   = "HIGH"
	JobPriorityUrgent = "URGENT"
)

// IsOverdue 工单是否逾期：已过交期且未完工
//
// today 须为当日零点，交期按日比较，当天到期不算逾期。
func (j *Job) IsOverdue(today time.Time) bool {
	return j.DueDate.Before(today) && j.Status != JobStatusComplete
}

// StartOfDay 截断到当日零点
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Operation 工序，如 CNC Mill Op 1
type Operation struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	JobID string `json:"job_id" gorm:"size:32;not null;index"`

	Name           string          `json:"name" gorm:"size:100;not null"`
	EstimatedHours decimal.Decimal `json:"estimated_hours" gorm:"type:decimal(5,2)"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Operation) TableName() string {
	return "mes_operations"
}

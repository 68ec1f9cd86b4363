package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote 报价单
//
// Subtotal 与 Total 是派生缓存字段：任何行项写入之后都会在同一事务内
// 重新计算，事务结束时必然与当前行项一致。
type Quote struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	QuoteNumber string `json:"quote_number" gorm:"size:50;uniqueIndex;not null"`
	CustomerID  string `json:"customer_id" gorm:"size:32;not null;index"`

	Status     string     `json:"status" gorm:"size:20;default:PENDING"` // PENDING/SENT/ACCEPTED/REJECTED/CONVERTED
	ValidUntil *time.Time `json:"valid_until"`

	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2)"`
	OverheadAmount decimal.Decimal `json:"overhead_amount" gorm:"type:decimal(12,2)"`
	ProfitAmount   decimal.Decimal `json:"profit_amount" gorm:"type:decimal(12,2)"`
	Total          decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`

	LineItems []QuoteLineItem `json:"line_items,omitempty" gorm:"foreignKey:QuoteID"`
	Customer  *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quote) TableName() string {
	return "mes_quotes"
}

// 报价状态
const (
	QuoteStatusPending   = "PENDING"
	QuoteStatusSent      = "SENT"
	QuoteStatusAccepted  = "ACCEPTED"
	QuoteStatusRejected  = "REJECTED"
	QuoteStatusConverted = "CONVERTED"
)

// IsValidQuoteStatus 报价状态是否为合法枚举值
func IsValidQuoteStatus(s string) bool {
	switch s {
	case QuoteStatusPending, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusConverted:
		return true
	}
	return false
}

// QuoteLineItem 报价行项，TotalPrice = UnitPrice × Quantity
type QuoteLineItem struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	QuoteID string `json:"quote_id" gorm:"size:32;not null;index"`

	PartNumber  string `json:"part_number" gorm:"size:50;not null"`
	Description string `json:"description" gorm:"size:200"`
	Quantity    int    `json:"quantity" gorm:"not null"`

	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuoteLineItem) TableName() string {
	return "mes_quote_line_items"
}

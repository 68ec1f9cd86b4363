package entity

import "time"

// Customer 客户
type Customer struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Name string `json:"name" gorm:"size:100;not null"`

	// 报价编号前缀，如 SPX、BOE。为空时无法创建报价
	IdentificationPrefix string `json:"identification_prefix" gorm:"size:10;index"`

	Email          string `json:"email" gorm:"size:100"`
	CompanyName    string `json:"company_name" gorm:"size:200"`
	BillingAddress string `json:"billing_address" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "mes_customers"
}

// Contact 客户联系人
type Contact struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	CustomerID string `json:"customer_id" gorm:"size:32;not null;index"`

	FirstName    string `json:"first_name" gorm:"size:50;not null"`
	LastName     string `json:"last_name" gorm:"size:50;not null"`
	Email        string `json:"email" gorm:"size:100"`
	Title        string `json:"title" gorm:"size:100"`
	IsKeyContact bool   `json:"is_key_contact" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "mes_contacts"
}

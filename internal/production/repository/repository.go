package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 生产域仓库集合
type Repositories struct {
	Customer  *CustomerRepository
	Contact   *ContactRepository
	Sequence  *SequenceRepository
	Quote     *QuoteRepository
	Job       *JobRepository
	Operation *OperationRepository
}

// NewRepositories 创建生产域仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Customer:  NewCustomerRepository(db),
		Contact:   NewContactRepository(db),
		Sequence:  NewSequenceRepository(db),
		Quote:     NewQuoteRepository(db),
		Job:       NewJobRepository(db),
		Operation: NewOperationRepository(db),
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/google/uuid"
)

var (
	// ErrPrefixTaken 报价编号前缀已被其他客户占用
	ErrPrefixTaken = errors.New("identification prefix already in use")
	// ErrPrefixImmutable 客户已有报价，前缀不可再变更
	ErrPrefixImmutable = errors.New("identification prefix cannot change after quotes exist")
)

// CustomerService 客户与联系人服务
type CustomerService struct {
	repo        *repository.CustomerRepository
	contactRepo *repository.ContactRepository
}

func NewCustomerService(repo *repository.CustomerRepository, contactRepo *repository.ContactRepository) *CustomerService {
	return &CustomerService{repo: repo, contactRepo: contactRepo}
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name                 string `json:"name" binding:"required"`
	IdentificationPrefix string `json:"identification_prefix"`
	Email                string `json:"email"`
	CompanyName          string `json:"company_name"`
	BillingAddress       string `json:"billing_address"`
}

// CreateCustomer 创建客户；前缀可留空，填写时须全局唯一
func (s *CustomerService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*entity.Customer, error) {
	if req.IdentificationPrefix != "" {
		if err := s.checkPrefixFree(ctx, req.IdentificationPrefix, ""); err != nil {
			return nil, err
		}
	}

	customer := &entity.Customer{
		ID:                   uuid.New().String()[:32],
		Name:                 req.Name,
		IdentificationPrefix: req.IdentificationPrefix,
		Email:                req.Email,
		CompanyName:          req.CompanyName,
		BillingAddress:       req.BillingAddress,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer 获取客户详情
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

// ListCustomers 获取客户列表
func (s *CustomerService) ListCustomers(ctx context.Context, params repository.CustomerListParams) ([]entity.Customer, int64, error) {
	return s.repo.FindAll(ctx, params)
}

// UpdateCustomerRequest 更新客户请求
type UpdateCustomerRequest struct {
	Name                 *string `json:"name"`
	IdentificationPrefix *string `json:"identification_prefix"`
	Email                *string `json:"email"`
	CompanyName          *string `json:"company_name"`
	BillingAddress       *string `json:"billing_address"`
}

// UpdateCustomer 更新客户
//
// 前缀一旦有报价引用就冻结：历史报价编号中嵌入了前缀，改写会让
// 编号与客户对不上。
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, req *UpdateCustomerRequest) (*entity.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IdentificationPrefix != nil && *req.IdentificationPrefix != customer.IdentificationPrefix {
		count, err := s.repo.CountQuotes(ctx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrPrefixImmutable
		}
		if *req.IdentificationPrefix != "" {
			if err := s.checkPrefixFree(ctx, *req.IdentificationPrefix, id); err != nil {
				return nil, err
			}
		}
		customer.IdentificationPrefix = *req.IdentificationPrefix
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.CompanyName != nil {
		customer.CompanyName = *req.CompanyName
	}
	if req.BillingAddress != nil {
		customer.BillingAddress = *req.BillingAddress
	}
	customer.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer 删除客户
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *CustomerService) checkPrefixFree(ctx context.Context, prefix, selfID string) error {
	existing, err := s.repo.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrPrefixTaken
	}
	return nil
}

// CreateContactRequest 创建联系人请求
type CreateContactRequest struct {
	CustomerID   string `json:"customer_id" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Title        string `json:"title"`
	IsKeyContact bool   `json:"is_key_contact"`
}

// CreateContact 创建联系人
func (s *CustomerService) CreateContact(ctx context.Context, req *CreateContactRequest) (*entity.Contact, error) {
	if _, err := s.repo.FindByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	contact := &entity.Contact{
		ID:           uuid.New().String()[:32],
		CustomerID:   req.CustomerID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Title:        req.Title,
		IsKeyContact: req.IsKeyContact,
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// GetContact 获取联系人详情
func (s *CustomerService) GetContact(ctx context.Context, id string) (*entity.Contact, error) {
	return s.contactRepo.FindByID(ctx, id)
}

// ListContacts 获取联系人列表
func (s *CustomerService) ListContacts(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Contact, int64, error) {
	return s.contactRepo.FindAll(ctx, page, pageSize, filters)
}

// UpdateContactRequest 更新联系人请求
type UpdateContactRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	Title        *string `json:"title"`
	IsKeyContact *bool   `json:"is_key_contact"`
}

// UpdateContact 更新联系人
func (s *CustomerService) UpdateContact(ctx context.Context, id string, req *UpdateContactRequest) (*entity.Contact, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		contact.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		contact.LastName = *req.LastName
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Title != nil {
		contact.Title = *req.Title
	}
	if req.IsKeyContact != nil {
		contact.IsKeyContact = *req.IsKeyContact
	}
	contact.UpdatedAt = time.Now()

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// DeleteContact 删除联系人
func (s *CustomerService) DeleteContact(ctx context.Context, id string) error {
	return s.contactRepo.Delete(ctx, id)
}

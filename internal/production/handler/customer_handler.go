package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/production/service"
	"github.com/gin-gonic/gin"
)

// CustomerHandler 客户与联系人接口
type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// Create 创建客户
// POST /api/v1/production/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	customer, err := h.svc.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrPrefixTaken) {
			Conflict(c, "报价前缀已被占用")
			return
		}
		InternalError(c, "创建客户失败: "+err.Error())
		return
	}
	Created(c, customer)
}

// List 客户列表
// GET /api/v1/production/customers
func (h *CustomerHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.CustomerListParams{
		Search:   c.Query("search"),
		OrderBy:  c.Query("order_by"),
		Page:     page,
		PageSize: pageSize,
	}

	items, total, err := h.svc.ListCustomers(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取客户列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// Get 客户详情
// GET /api/v1/production/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "客户不存在")
			return
		}
		InternalError(c, "获取客户失败: "+err.Error())
		return
	}
	Success(c, customer)
}

// Update 更新客户
// PUT /api/v1/production/customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	var req service.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	customer, err := h.svc.UpdateCustomer(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "客户不存在")
		case errors.Is(err, service.ErrPrefixImmutable):
			Conflict(c, "客户已有报价，前缀不可变更")
		case errors.Is(err, service.ErrPrefixTaken):
			Conflict(c, "报价前缀已被占用")
		default:
			InternalError(c, "更新客户失败: "+err.Error())
		}
		return
	}
	Success(c, customer)
}

// Delete 删除客户
// DELETE /api/v1/production/customers/:id
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除客户失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// CreateContact 创建联系人
// POST /api/v1/production/contacts
func (h *CustomerHandler) CreateContact(c *gin.Context) {
	var req service.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	contact, err := h.svc.CreateContact(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "客户不存在")
			return
		}
		InternalError(c, "创建联系人失败: "+err.Error())
		return
	}
	Created(c, contact)
}

// ListContacts 联系人列表
// GET /api/v1/production/contacts
func (h *CustomerHandler) ListContacts(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"customer_id":    c.Query("customer_id"),
		"is_key_contact": c.Query("is_key_contact"),
		"search":         c.Query("search"),
	}

	items, total, err := h.svc.ListContacts(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取联系人列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// GetContact 联系人详情
// GET /api/v1/production/contacts/:id
func (h *CustomerHandler) GetContact(c *gin.Context) {
	contact, err := h.svc.GetContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "联系人不存在")
			return
		}
		InternalError(c, "获取联系人失败: "+err.Error())
		return
	}
	Success(c, contact)
}

// UpdateContact 更新联系人
// PUT /api/v1/production/contacts/:id
func (h *CustomerHandler) UpdateContact(c *gin.Context) {
	var req service.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	contact, err := h.svc.UpdateContact(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "联系人不存在")
			return
		}
		InternalError(c, "更新联系人失败: "+err.Error())
		return
	}
	Success(c, contact)
}

// DeleteContact 删除联系人
// DELETE /api/v1/production/contacts/:id
func (h *CustomerHandler) DeleteContact(c *gin.Context) {
	if err := h.svc.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除联系人失败: "+err.Error())
		return
	}
	Success(c, nil)
}

package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/production/service"
	"github.com/gin-gonic/gin"
)

// QuoteHandler 报价接口
type QuoteHandler struct {
	svc *service.QuoteService
}

func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// Create 创建报价，编号由系统按客户前缀与季度自动分配
// POST /api/v1/production/quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req service.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quote, err := h.svc.CreateQuote(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "客户不存在")
		case errors.Is(err, service.ErrCustomerPrefixMissing):
			BadRequest(c, "客户未配置报价前缀")
		case errors.Is(err, service.ErrInvalidQuoteStatus):
			BadRequest(c, "无效的报价状态")
		case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidUnitPrice):
			BadRequest(c, "行项数据无效: "+err.Error())
		case isUniqueViolation(err):
			Conflict(c, "报价编号冲突，请重试")
		default:
			InternalError(c, "创建报价失败: "+err.Error())
		}
		return
	}
	Created(c, quote)
}

// List 报价列表
// GET /api/v1/production/quotes
func (h *QuoteHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"customer_id": c.Query("customer_id"),
		"search":      c.Query("search"),
	}

	items, total, err := h.svc.ListQuotes(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取报价列表失败: "+err.Error())
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

// Get 报价详情（含行项）
// GET /api/v1/production/quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.svc.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "报价不存在")
			return
		}
		InternalError(c, "获取报价失败: "+err.Error())
		return
	}
	Success(c, quote)
}

// Update 更新报价
// PUT /api/v1/production/quotes/:id
func (h *QuoteHandler) Update(c *gin.Context) {
	var req service.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quote, err := h.svc.UpdateQuote(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "报价不存在")
		case errors.Is(err, service.ErrInvalidQuoteStatus):
			BadRequest(c, "无效的报价状态")
		default:
			InternalError(c, "更新报价失败: "+err.Error())
		}
		return
	}
	Success(c, quote)
}

// Delete 删除报价
// DELETE /api/v1/production/quotes/:id
func (h *QuoteHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteQuote(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "报价不存在")
			return
		}
		InternalError(c, "删除报价失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// AddLineItem 新增行项
// POST /api/v1/production/quotes/:id/line-items
func (h *QuoteHandler) AddLineItem(c *gin.Context) {
	var req service.CreateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.AddLineItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "报价不存在")
		case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidUnitPrice):
			BadRequest(c, "行项数据无效: "+err.Error())
		default:
			InternalError(c, "新增行项失败: "+err.Error())
		}
		return
	}
	Created(c, item)
}

// UpdateLineItem 更新行项
// PUT /api/v1/production/line-items/:id
func (h *QuoteHandler) UpdateLineItem(c *gin.Context) {
	var req service.UpdateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateLineItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "行项不存在")
		case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidUnitPrice):
			BadRequest(c, "行项数据无效: "+err.Error())
		default:
			InternalError(c, "更新行项失败: "+err.Error())
		}
		return
	}
	Success(c, item)
}

// DeleteLineItem 删除行项
// DELETE /api/v1/production/line-items/:id
func (h *QuoteHandler) DeleteLineItem(c *gin.Context) {
	if err := h.svc.DeleteLineItem(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "行项不存在")
			return
		}
		InternalError(c, "删除行项失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// Convert 报价转工单
// POST /api/v1/production/quotes/:id/convert
func (h *QuoteHandler) Convert(c *gin.Context) {
	var req service.ConvertQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.ConvertQuote(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "报价不存在")
		case errors.Is(err, service.ErrQuoteAlreadyConverted):
			Conflict(c, "报价已转工单")
		case isUniqueViolation(err):
			Conflict(c, "工单号已存在")
		default:
			InternalError(c, "报价转工单失败: "+err.Error())
		}
		return
	}
	Created(c, job)
}

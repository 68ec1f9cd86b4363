package handler

import (
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/production/service"
	"github.com/gin-gonic/gin"
)

// JobHandler 工单与工序接口
type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// Create 创建工单
// POST /api/v1/production/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), &req)
	if err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "工单号已存在")
			return
		}
		InternalError(c, "创建工单失败: "+err.Error())
		return
	}
	Created(c, job)
}

// List 工单列表
// GET /api/v1/production/jobs
func (h *JobHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.JobListParams{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		CustomerID: c.Query("customer_id"),
		Search:     c.Query("search"),
		OrderBy:    c.Query("order_by"),
		Page:       page,
		PageSize:   pageSize,
	}

	items, total, err := h.svc.ListJobs(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取工单列表失败: "+err.Error())
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

// ListOverdue 逾期工单列表，交期按日比较，当天到期不算逾期
// GET /api/v1/production/jobs/overdue
func (h *JobHandler) ListOverdue(c *gin.Context) {
	items, err := h.svc.ListOverdueJobs(c.Request.Context(), entity.StartOfDay(time.Now()))
	if err != nil {
		InternalError(c, "获取逾期工单失败: "+err.Error())
		return
	}
	Success(c, items)
}

// ListByStatus 按状态检索工单
// GET /api/v1/production/jobs/by-status?status=IN_PROCESS
func (h *JobHandler) ListByStatus(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case entity.JobStatusQuote, entity.JobStatusScheduled, entity.JobStatusInProcess, entity.JobStatusComplete:
	default:
		BadRequest(c, "无效的工单状态: "+status)
		return
	}

	items, err := h.svc.ListJobsByStatus(c.Request.Context(), status)
	if err != nil {
		InternalError(c, "获取工单列表失败: "+err.Error())
		return
	}
	Success(c, items)
}

// Get 工单详情（含工序）
// GET /api/v1/production/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工单不存在")
			return
		}
		InternalError(c, "获取工单失败: "+err.Error())
		return
	}
	Success(c, job)
}

// Update 更新工单
// PUT /api/v1/production/jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	var req service.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.UpdateJob(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工单不存在")
			return
		}
		InternalError(c, "更新工单失败: "+err.Error())
		return
	}
	Success(c, job)
}

// Delete 删除工单及其工序
// DELETE /api/v1/production/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除工单失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// CreateOperation 创建工序
// POST /api/v1/production/operations
func (h *JobHandler) CreateOperation(c *gin.Context) {
	var req service.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	op, err := h.svc.CreateOperation(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工单不存在")
			return
		}
		InternalError(c, "创建工序失败: "+err.Error())
		return
	}
	Created(c, op)
}

// ListOperations 工单工序列表
// GET /api/v1/production/jobs/:id/operations
func (h *JobHandler) ListOperations(c *gin.Context) {
	items, err := h.svc.ListOperations(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取工序列表失败: "+err.Error())
		return
	}
	Success(c, items)
}

// UpdateOperation 更新工序
// PUT /api/v1/production/operations/:id
func (h *JobHandler) UpdateOperation(c *gin.Context) {
	var req service.UpdateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	op, err := h.svc.UpdateOperation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工序不存在")
			return
		}
		InternalError(c, "更新工序失败: "+err.Error())
		return
	}
	Success(c, op)
}

// DeleteOperation 删除工序
// DELETE /api/v1/production/operations/:id
func (h *JobHandler) DeleteOperation(c *gin.Context) {
	if err := h.svc.DeleteOperation(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除工序失败: "+err.Error())
		return
	}
	Success(c, nil)
}

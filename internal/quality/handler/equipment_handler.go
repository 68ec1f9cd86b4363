package handler

import (
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/quality/repository"
	"github.com/bitfantasy/nimo-mes/internal/quality/service"
	"github.com/gin-gonic/gin"
)

// EquipmentHandler 检测设备接口
type EquipmentHandler struct {
	svc *service.EquipmentService
}

func NewEquipmentHandler(svc *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{svc: svc}
}

// Create 创建设备
// POST /api/v1/quality/equipment
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req service.CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	equipment, err := h.svc.CreateEquipment(c.Request.Context(), &req)
	if err != nil {
		InternalError(c, "创建设备失败: "+err.Error())
		return
	}
	Created(c, equipment)
}

// List 设备列表
// GET /api/v1/quality/equipment
func (h *EquipmentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	items, total, err := h.svc.ListEquipment(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		InternalError(c, "获取设备列表失败: "+err.Error())
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

// ListCalibrationDue 校准到期设备清单
// GET /api/v1/quality/equipment/calibration-due
func (h *EquipmentHandler) ListCalibrationDue(c *gin.Context) {
	items, err := h.svc.ListCalibrationDue(c.Request.Context(), time.Now())
	if err != nil {
		InternalError(c, "获取校准到期设备失败: "+err.Error())
		return
	}
	Success(c, items)
}

// Get 设备详情
// GET /api/v1/quality/equipment/:id
func (h *EquipmentHandler) Get(c *gin.Context) {
	equipment, err := h.svc.GetEquipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "获取设备失败: "+err.Error())
		return
	}
	Success(c, equipment)
}

// Update 更新设备
// PUT /api/v1/quality/equipment/:id
func (h *EquipmentHandler) Update(c *gin.Context) {
	var req service.UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	equipment, err := h.svc.UpdateEquipment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "更新设备失败: "+err.Error())
		return
	}
	Success(c, equipment)
}

// Delete 删除设备
// DELETE /api/v1/quality/equipment/:id
func (h *EquipmentHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteEquipment(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除设备失败: "+err.Error())
		return
	}
	Success(c, nil)
}

package handler

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/quality/repository"
	"github.com/bitfantasy/nimo-mes/internal/quality/service"
	"github.com/gin-gonic/gin"
)

// InspectionHandler 检验报告接口
type InspectionHandler struct {
	svc *service.InspectionService
}

func NewInspectionHandler(svc *service.InspectionService) *InspectionHandler {
	return &InspectionHandler{svc: svc}
}

// Create 创建检验报告
// POST /api/v1/quality/reports
func (h *InspectionHandler) Create(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	report, err := h.svc.CreateReport(c.Request.Context(), &req)
	if err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "报告编号已存在")
			return
		}
		InternalError(c, "创建检验报告失败: "+err.Error())
		return
	}
	Created(c, report)
}

// List 检验报告列表
// GET /api/v1/quality/reports
func (h *InspectionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":          c.Query("status"),
		"inspection_type": c.Query("inspection_type"),
		"job_id":          c.Query("job_id"),
		"search":          c.Query("search"),
	}

	items, total, err := h.svc.ListReports(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取检验报告列表失败: "+err.Error())
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

// Get 检验报告详情（含特性）
// GET /api/v1/quality/reports/:id
func (h *InspectionHandler) Get(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检验报告不存在")
			return
		}
		InternalError(c, "获取检验报告失败: "+err.Error())
		return
	}
	Success(c, report)
}

// Update 更新检验报告
// PUT /api/v1/quality/reports/:id
func (h *InspectionHandler) Update(c *gin.Context) {
	var req service.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	report, err := h.svc.UpdateReport(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检验报告不存在")
			return
		}
		InternalError(c, "更新检验报告失败: "+err.Error())
		return
	}
	Success(c, report)
}

// Delete 删除检验报告
// DELETE /api/v1/quality/reports/:id
func (h *InspectionHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除检验报告失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// ExportForm3 导出 AS9102 Form 3
// GET /api/v1/quality/reports/:id/export
func (h *InspectionHandler) ExportForm3(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检验报告不存在")
			return
		}
		InternalError(c, "获取检验报告失败: "+err.Error())
		return
	}

	f, err := h.svc.ExportForm3(c.Request.Context(), report.ID)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	fileName := fmt.Sprintf("%s_form3.xlsx", report.FAIReportNumber)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}
}

// CreateCharacteristic 创建检测特性
// POST /api/v1/quality/characteristics
func (h *InspectionHandler) CreateCharacteristic(c *gin.Context) {
	var req service.CreateCharacteristicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.CreateCharacteristic(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "检验报告不存在")
		case errors.Is(err, service.ErrInvalidTolerance):
			BadRequest(c, "公差不能为负")
		default:
			InternalError(c, "创建检测特性失败: "+err.Error())
		}
		return
	}
	Created(c, item)
}

// ListCharacteristics 报告特性列表
// GET /api/v1/quality/reports/:id/characteristics
func (h *InspectionHandler) ListCharacteristics(c *gin.Context) {
	items, err := h.svc.ListCharacteristics(c.Request.Context(), c.Param("id"), c.Query("result"))
	if err != nil {
		InternalError(c, "获取检测特性列表失败: "+err.Error())
		return
	}
	Success(c, items)
}

// GetCharacteristic 特性详情
// GET /api/v1/quality/characteristics/:id
func (h *InspectionHandler) GetCharacteristic(c *gin.Context) {
	item, err := h.svc.GetCharacteristic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检测特性不存在")
			return
		}
		InternalError(c, "获取检测特性失败: "+err.Error())
		return
	}
	Success(c, item)
}

// UpdateCharacteristic 更新检测特性（录入实测值并自动判定）
// PUT /api/v1/quality/characteristics/:id
func (h *InspectionHandler) UpdateCharacteristic(c *gin.Context) {
	var req service.UpdateCharacteristicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateCharacteristic(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "检测特性不存在")
		case errors.Is(err, service.ErrInvalidTolerance):
			BadRequest(c, "公差不能为负")
		default:
			InternalError(c, "更新检测特性失败: "+err.Error())
		}
		return
	}
	Success(c, item)
}

// DeleteCharacteristic 删除检测特性
// DELETE /api/v1/quality/characteristics/:id
func (h *InspectionHandler) DeleteCharacteristic(c *gin.Context) {
	if err := h.svc.DeleteCharacteristic(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检测特性不存在")
			return
		}
		InternalError(c, "删除检测特性失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// UploadAttachment 上传报告附件
// POST /api/v1/quality/reports/:id/attachments
func (h *InspectionHandler) UploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	attachment, err := h.svc.UploadAttachment(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "检验报告不存在")
		case errors.Is(err, service.ErrStorageNotConfigured):
			InternalError(c, "对象存储未配置")
		default:
			InternalError(c, "上传附件失败: "+err.Error())
		}
		return
	}
	Created(c, attachment)
}

// ListAttachments 附件列表
// GET /api/v1/quality/reports/:id/attachments
func (h *InspectionHandler) ListAttachments(c *gin.Context) {
	items, err := h.svc.ListAttachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取附件列表失败: "+err.Error())
		return
	}
	Success(c, items)
}

// DownloadAttachment 获取附件预签名下载链接
// GET /api/v1/quality/attachments/:id/download
func (h *InspectionHandler) DownloadAttachment(c *gin.Context) {
	downloadURL, err := h.svc.AttachmentDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "附件不存在")
		case errors.Is(err, service.ErrStorageNotConfigured):
			InternalError(c, "对象存储未配置")
		default:
			InternalError(c, "生成下载链接失败: "+err.Error())
		}
		return
	}
	Success(c, gin.H{"url": downloadURL})
}

// DeleteAttachment 删除附件
// DELETE /api/v1/quality/attachments/:id
func (h *InspectionHandler) DeleteAttachment(c *gin.Context) {
	if err := h.svc.DeleteAttachment(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "附件不存在")
			return
		}
		InternalError(c, "删除附件失败: "+err.Error())
		return
	}
	Success(c, nil)
}

package dashboard

import (
	"github.com/gin-gonic/gin"
)

// Handler 概览接口
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetSummary 车间概览
// GET /api/v1/dashboard/summary
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.svc.GetSummary(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{
			"code":    50000,
			"message": "获取概览失败: " + err.Error(),
		})
		return
	}
	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    summary,
	})
}

package handler

import (
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统处理器
type SystemHandler struct{}

// NewSystemHandler 创建系统处理器
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

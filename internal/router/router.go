// Package router 提供路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/localmind/localmind/internal/handler"
	"github.com/localmind/localmind/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Dataset 数据集文件
		datasets := v1.Group("/datasets")
		{
			datasets.POST("/upload", h.Dataset.UploadDataset)
			datasets.GET("", h.Dataset.ListDatasets)
			datasets.GET("/stats", h.Dataset.GetDatasetStats)
			datasets.GET("/:id", h.Dataset.GetDataset)
			datasets.GET("/:id/preview", h.Dataset.PreviewDataset)
			datasets.POST("/:id/process", h.Dataset.ProcessDataset)
			datasets.DELETE("/:id", h.Dataset.DeleteDataset)
		}

		// Sample 训练样本
		samples := v1.Group("/samples")
		{
			samples.POST("", h.Sample.CreateSample)
			samples.GET("", h.Sample.ListSamples)
			samples.GET("/stats", h.Sample.GetSampleStats)
			samples.POST("/search", h.Sample.SearchSamples)
			samples.GET("/:id", h.Sample.GetSample)
			samples.PUT("/:id", h.Sample.UpdateSample)
			samples.DELETE("/:id", h.Sample.DeleteSample)
		}
	}

	return r
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/localmind/localmind/internal/service/dataset"
)

// DatasetHandler 数据集处理器
type DatasetHandler struct {
	svc *dataset.Service
}

// NewDatasetHandler 创建数据集处理器
func NewDatasetHandler(svc *dataset.Service) *DatasetHandler {
	return &DatasetHandler{svc: svc}
}

// UploadDataset 上传数据集文件
// POST /api/v1/datasets/upload
func (h *DatasetHandler) UploadDataset(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := h.svc.Upload(c.Request.Context(), &dataset.UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Content:      file,
	})
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, data)
}

// ProcessDataset 触发数据集处理
// POST /api/v1/datasets/:id/process
func (h *DatasetHandler) ProcessDataset(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Process(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}

	Accepted(c, gin.H{"id": id, "status": "processing"})
}

// PreviewDataset 预览数据集解析结果
// GET /api/v1/datasets/:id/preview
func (h *DatasetHandler) PreviewDataset(c *gin.Context) {
	id := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.svc.Preview(c.Request.Context(), id, limit)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, result)
}

// GetDataset 获取数据集文件及其活跃样本数
// GET /api/v1/datasets/:id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	id := c.Param("id")

	data, err := h.svc.Get(id)
	if err != nil {
		Error(c, err)
		return
	}

	activeSamples, err := h.svc.ActiveSamples(id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{"dataset": data, "active_samples": activeSamples})
}

// ListDatasets 列出数据集文件
// GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	datasets, total, err := h.svc.List(status, page, pageSize)
	if err != nil {
		Error(c, err)
		return
	}

	SuccessWithPagination(c, datasets, total, page, pageSize)
}

// GetDatasetStats 获取数据集统计信息
// GET /api/v1/datasets/stats
func (h *DatasetHandler) GetDatasetStats(c *gin.Context) {
	stats, err := h.svc.Stats()
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, stats)
}

// DeleteDataset 删除数据集
// DELETE /api/v1/datasets/:id
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(id); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}

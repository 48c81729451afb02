package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/localmind/localmind/internal/service/sample"
)

// SampleHandler 训练样本处理器
type SampleHandler struct {
	svc *sample.Service
}

// NewSampleHandler 创建训练样本处理器
func NewSampleHandler(svc *sample.Service) *SampleHandler {
	return &SampleHandler{svc: svc}
}

// CreateSample 创建训练样本
// POST /api/v1/samples
func (h *SampleHandler) CreateSample(c *gin.Context) {
	var req sample.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, data)
}

// GetSample 获取训练样本
// GET /api/v1/samples/:id
func (h *SampleHandler) GetSample(c *gin.Context) {
	id := c.Param("id")

	data, err := h.svc.Get(id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// ListSamples 列出训练样本
// GET /api/v1/samples
func (h *SampleHandler) ListSamples(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	opts := &sample.ListOptions{
		Types:      splitParam(c.Query("types")),
		Tags:       splitParam(c.Query("tags")),
		SourceType: c.Query("source_type"),
		Language:   c.Query("language"),
		DatasetID:  c.Query("dataset_id"),
		Page:       page,
		PageSize:   pageSize,
	}
	if active := c.Query("is_active"); active != "" {
		value := active == "true"
		opts.IsActive = &value
	}

	samples, total, err := h.svc.List(opts)
	if err != nil {
		Error(c, err)
		return
	}

	SuccessWithPagination(c, samples, total, page, pageSize)
}

// UpdateSample 更新训练样本
// PUT /api/v1/samples/:id
func (h *SampleHandler) UpdateSample(c *gin.Context) {
	id := c.Param("id")
	var req sample.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, data)
}

// DeleteSample 删除训练样本
// DELETE /api/v1/samples/:id
func (h *SampleHandler) DeleteSample(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(id); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}

// SearchSamples 语义检索训练样本
// POST /api/v1/samples/search
func (h *SampleHandler) SearchSamples(c *gin.Context) {
	var req sample.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, resp)
}

// GetSampleStats 获取样本统计信息
// GET /api/v1/samples/stats
func (h *SampleHandler) GetSampleStats(c *gin.Context) {
	stats, err := h.svc.Stats()
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, stats)
}

// splitParam 解析逗号分隔的查询参数
func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

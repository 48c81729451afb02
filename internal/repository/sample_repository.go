package repository

import (
	"encoding/json"
	"strings"

	"github.com/localmind/localmind/internal/model"
	"gorm.io/gorm"
)

// SampleFilter 训练样本过滤条件，各条件之间为 AND 关系
type SampleFilter struct {
	Types      []string
	Tags       []string // 与样本 tags 有交集即命中
	SourceType string
	Language   string
	IsActive   *bool
	DatasetID  string
}

// SampleRepository 训练样本仓库
type SampleRepository struct {
	db *gorm.DB
}

// NewSampleRepository 创建训练样本仓库
func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// Create 创建训练样本
func (r *SampleRepository) Create(sample *model.TrainingSample) error {
	return r.db.Create(sample).Error
}

// CreateBatch 批量创建训练样本
func (r *SampleRepository) CreateBatch(samples []*model.TrainingSample) error {
	if len(samples) == 0 {
		return nil
	}
	return r.db.Create(&samples).Error
}

// GetByID 根据ID获取训练样本
func (r *SampleRepository) GetByID(id string) (*model.TrainingSample, error) {
	var sample model.TrainingSample
	err := r.db.Where("id = ?", id).First(&sample).Error
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// applyFilter 应用过滤条件
func (r *SampleRepository) applyFilter(query *gorm.DB, filter *SampleFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.DatasetID != "" {
		query = query.Where("dataset_id = ?", filter.DatasetID)
	}
	if len(filter.Tags) > 0 {
		// jsonb 包含判断：任意一个 tag 命中即可
		conds := make([]string, 0, len(filter.Tags))
		args := make([]interface{}, 0, len(filter.Tags))
		for _, tag := range filter.Tags {
			b, err := json.Marshal([]string{tag})
			if err != nil {
				continue
			}
			conds = append(conds, "tags @> ?")
			args = append(args, string(b))
		}
		if len(conds) > 0 {
			query = query.Where(strings.Join(conds, " OR "), args...)
		}
	}
	return query
}

// FindMany 查询训练样本列表
func (r *SampleRepository) FindMany(filter *SampleFilter, offset, limit int) ([]*model.TrainingSample, error) {
	var samples []*model.TrainingSample
	query := r.applyFilter(r.db.Model(&model.TrainingSample{}), filter).
		Order("created_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&samples).Error
	return samples, err
}

// Count 统计符合条件的样本数量
func (r *SampleRepository) Count(filter *SampleFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.Model(&model.TrainingSample{}), filter).Count(&total).Error
	return total, err
}

// Update 更新训练样本
func (r *SampleRepository) Update(sample *model.TrainingSample) error {
	return r.db.Save(sample).Error
}

// SoftDelete 软删除训练样本（置 is_active 为 false）
func (r *SampleRepository) SoftDelete(id string) error {
	result := r.db.Model(&model.TrainingSample{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteByDataset 批量软删除某数据集的全部样本
func (r *SampleRepository) SoftDeleteByDataset(datasetID string) (int64, error) {
	result := r.db.Model(&model.TrainingSample{}).
		Where("dataset_id = ?", datasetID).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// CountActiveByDataset 统计某数据集当前活跃样本数量
func (r *SampleRepository) CountActiveByDataset(datasetID string) (int64, error) {
	var total int64
	err := r.db.Model(&model.TrainingSample{}).
		Where("dataset_id = ? AND is_active = ?", datasetID, true).
		Count(&total).Error
	return total, err
}

// SampleStats 训练样本统计信息
type SampleStats struct {
	Total      int64            `json:"total"`
	Active     int64            `json:"active"`
	ByType     map[string]int64 `json:"by_type"`
	BySource   map[string]int64 `json:"by_source"`
	ByLanguage map[string]int64 `json:"by_language"`
}

// Stats 聚合训练样本统计信息
func (r *SampleRepository) Stats() (*SampleStats, error) {
	stats := &SampleStats{
		ByType:     make(map[string]int64),
		BySource:   make(map[string]int64),
		ByLanguage: make(map[string]int64),
	}

	if err := r.db.Model(&model.TrainingSample{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.TrainingSample{}).
		Where("is_active = ?", true).
		Count(&stats.Active).Error; err != nil {
		return nil, err
	}

	type groupCount struct {
		Key   string
		Count int64
	}

	groupings := []struct {
		column string
		dest   map[string]int64
	}{
		{"type", stats.ByType},
		{"source_type", stats.BySource},
		{"language", stats.ByLanguage},
	}
	for _, g := range groupings {
		var rows []groupCount
		if err := r.db.Model(&model.TrainingSample{}).
			Select(g.column + " AS key, count(*) AS count").
			Group(g.column).Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			g.dest[row.Key] = row.Count
		}
	}

	return stats, nil
}

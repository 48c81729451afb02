package repository

import (
	"github.com/localmind/localmind/internal/model"
	"gorm.io/gorm"
)

// DatasetFileRepository 数据集文件仓库
type DatasetFileRepository struct {
	db *gorm.DB
}

// NewDatasetFileRepository 创建数据集文件仓库
func NewDatasetFileRepository(db *gorm.DB) *DatasetFileRepository {
	return &DatasetFileRepository{db: db}
}

// Create 创建数据集文件记录
func (r *DatasetFileRepository) Create(file *model.DatasetFile) error {
	return r.db.Create(file).Error
}

// GetByID 根据ID获取数据集文件
func (r *DatasetFileRepository) GetByID(id string) (*model.DatasetFile, error) {
	var file model.DatasetFile
	err := r.db.Where("id = ?", id).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// List 列出数据集文件
func (r *DatasetFileRepository) List(status string, offset, limit int) ([]*model.DatasetFile, error) {
	var files []*model.DatasetFile
	query := r.db.Order("created_at DESC").Offset(offset).Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&files).Error
	return files, err
}

// Count 统计数据集文件数量
func (r *DatasetFileRepository) Count(status string) (int64, error) {
	var total int64
	query := r.db.Model(&model.DatasetFile{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&total).Error
	return total, err
}

// Update 更新数据集文件
func (r *DatasetFileRepository) Update(file *model.DatasetFile) error {
	return r.db.Save(file).Error
}

// UpdateFields 更新数据集文件的指定字段
func (r *DatasetFileRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.db.Model(&model.DatasetFile{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateStatusIf 条件更新数据集状态。
// 只有当前状态在 from 列表中时才写入新状态，返回是否实际更新。
// 通过单条带条件的 UPDATE 实现比较并交换，避免读后写之间的竞争窗口。
func (r *DatasetFileRepository) UpdateStatusIf(id string, from []string, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.Model(&model.DatasetFile{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除数据集文件记录
func (r *DatasetFileRepository) Delete(id string) error {
	return r.db.Delete(&model.DatasetFile{}, "id = ?", id).Error
}

// DatasetStats 数据集统计信息
type DatasetStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByType       map[string]int64 `json:"by_type"`
	TotalSamples int64            `json:"total_samples"`
}

// Stats 聚合数据集统计信息
func (r *DatasetFileRepository) Stats() (*DatasetStats, error) {
	stats := &DatasetStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
	}

	if err := r.db.Model(&model.DatasetFile{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type groupCount struct {
		Key   string
		Count int64
	}

	var byStatus []groupCount
	if err := r.db.Model(&model.DatasetFile{}).
		Select("status AS key, count(*) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
	}

	var byType []groupCount
	if err := r.db.Model(&model.DatasetFile{}).
		Select("file_type AS key, count(*) AS count").
		Group("file_type").Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		stats.ByType[row.Key] = row.Count
	}

	if err := r.db.Model(&model.DatasetFile{}).
		Select("COALESCE(SUM(total_samples_generated), 0)").
		Scan(&stats.TotalSamples).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

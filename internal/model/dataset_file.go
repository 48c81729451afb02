package model

import (
	"time"
)

// 数据集文件状态常量
const (
	DatasetStatusUploaded   = "uploaded"   // 已上传，等待处理
	DatasetStatusProcessing = "processing" // 处理中
	DatasetStatusCompleted  = "completed"  // 处理完成
	DatasetStatusFailed     = "failed"     // 处理失败
)

// 数据集文件类型常量
const (
	FileTypeCSV      = "csv"
	FileTypeJSON     = "json"
	FileTypeMarkdown = "markdown"
	FileTypeText     = "text"
	FileTypeExcel    = "excel"
	FileTypePDF      = "pdf"
)

// DatasetFile 上传的数据集文件
type DatasetFile struct {
	ID                    string     `json:"id" gorm:"primaryKey;size:36"`
	OriginalName          string     `json:"original_name"`
	StoredName            string     `json:"stored_name"`
	StoredPath            string     `json:"stored_path"`
	MimeType              string     `json:"mime_type"`
	SizeBytes             int64      `json:"size_bytes"`
	FileType              string     `json:"file_type" gorm:"size:20;index"` // csv, json, markdown, text, excel, pdf
	Status                string     `json:"status" gorm:"size:20;index"`    // uploaded, processing, completed, failed
	ErrorSummary          StringList `json:"error_summary" gorm:"type:jsonb"`
	TotalSamplesGenerated int        `json:"total_samples_generated"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (DatasetFile) TableName() string {
	return "dataset_files"
}

// IsValidFileType 检查文件类型是否受支持
func IsValidFileType(fileType string) bool {
	switch fileType {
	case FileTypeCSV, FileTypeJSON, FileTypeMarkdown, FileTypeText, FileTypeExcel, FileTypePDF:
		return true
	}
	return false
}

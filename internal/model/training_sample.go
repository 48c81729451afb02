package model

import (
	"time"
)

// 训练样本类型常量
const (
	SampleTypeQA      = "qa"
	SampleTypeSnippet = "snippet"
	SampleTypeDoc     = "doc"
	SampleTypeFAQ     = "faq"
	SampleTypeOther   = "other"
)

// 训练样本来源常量
const (
	SourceTypeManual  = "manual"  // 手工录入
	SourceTypeDataset = "dataset" // 数据集导入
)

// DefaultLanguage 默认语言
const DefaultLanguage = "en"

// TrainingSample 训练样本
type TrainingSample struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Question    string         `json:"question" gorm:"type:text;not null"`
	Answer      AnswerTemplate `json:"answer" gorm:"type:jsonb"`
	Type        string         `json:"type" gorm:"size:20;index"` // qa, snippet, doc, faq, other
	CodeSnippet string         `json:"code_snippet,omitempty" gorm:"type:text"`
	Embedding   Vector         `json:"embedding,omitempty" gorm:"type:jsonb"`
	Tags        StringList     `json:"tags" gorm:"type:jsonb"`
	Language    string         `json:"language" gorm:"size:10;default:en"`
	SourceType  string         `json:"source_type" gorm:"size:20;index"` // manual, dataset
	DatasetID   string         `json:"dataset_id,omitempty" gorm:"size:36;index"`
	IsActive    bool           `json:"is_active" gorm:"index;default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (TrainingSample) TableName() string {
	return "training_samples"
}

// IsValidSampleType 检查样本类型是否在枚举内
func IsValidSampleType(sampleType string) bool {
	switch sampleType {
	case SampleTypeQA, SampleTypeSnippet, SampleTypeDoc, SampleTypeFAQ, SampleTypeOther:
		return true
	}
	return false
}

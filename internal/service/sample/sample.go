// Package sample 提供训练样本管理服务
// 包含样本增删改查、向量化与语义检索
package sample

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/localmind/localmind/internal/config"
	"github.com/localmind/localmind/internal/model"
	"github.com/localmind/localmind/internal/repository"
	embeddingsvc "github.com/localmind/localmind/internal/service/embedding"
)

// 样本服务错误
var (
	// ErrSampleNotFound 样本不存在
	ErrSampleNotFound = errors.New("sample not found")
	// ErrInvalidSample 样本字段校验失败
	ErrInvalidSample = errors.New("invalid sample")
)

// SampleStore 样本存储接口，便于测试
type SampleStore interface {
	Create(sample *model.TrainingSample) error
	GetByID(id string) (*model.TrainingSample, error)
	FindMany(filter *repository.SampleFilter, offset, limit int) ([]*model.TrainingSample, error)
	Count(filter *repository.SampleFilter) (int64, error)
	Update(sample *model.TrainingSample) error
	SoftDelete(id string) error
	Stats() (*repository.SampleStats, error)
}

// Embedder 向量化接口，便于测试
type Embedder interface {
	Embed(ctx context.Context, text string) (model.Vector, error)
	EmbedBatch(ctx context.Context, texts []string) []embeddingsvc.Result
}

// Service 训练样本服务
type Service struct {
	store    SampleStore
	embedder Embedder
	cfg      *config.Config
	rdb      *redis.Client // 查询向量缓存，可为 nil
}

// NewService 创建训练样本服务
func NewService(repos *repository.Repositories, cfg *config.Config, embedder Embedder, rdb *redis.Client) *Service {
	return &Service{
		store:    repos.Sample,
		embedder: embedder,
		cfg:      cfg,
		rdb:      rdb,
	}
}

// CreateInput 创建样本的输入
type CreateInput struct {
	Question    string               `json:"question" binding:"required"`
	Answer      model.AnswerTemplate `json:"answer" binding:"required"`
	Type        string               `json:"type"`
	CodeSnippet string               `json:"code_snippet"`
	Tags        []string             `json:"tags"`
	Language    string               `json:"language"`
}

// Create 创建训练样本并向量化
func (s *Service) Create(ctx context.Context, input *CreateInput) (*model.TrainingSample, error) {
	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer.Answer)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidSample)
	}
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrInvalidSample)
	}

	sampleType := input.Type
	if sampleType == "" {
		sampleType = model.SampleTypeQA
	}
	if !model.IsValidSampleType(sampleType) {
		return nil, fmt.Errorf("%w: unknown sample type: %s", ErrInvalidSample, sampleType)
	}

	language := input.Language
	if language == "" {
		language = model.DefaultLanguage
	}

	vector, err := s.embedder.Embed(ctx, embeddingsvc.BuildText(question, answer))
	if err != nil {
		return nil, fmt.Errorf("failed to embed sample: %w", err)
	}

	sample := &model.TrainingSample{
		ID:          uuid.New().String(),
		Question:    question,
		Answer:      input.Answer,
		Type:        sampleType,
		CodeSnippet: input.CodeSnippet,
		Embedding:   vector,
		Tags:        model.StringList(input.Tags),
		Language:    language,
		SourceType:  model.SourceTypeManual,
		IsActive:    true,
	}

	if err := s.store.Create(sample); err != nil {
		return nil, fmt.Errorf("failed to create sample: %w", err)
	}
	return sample, nil
}

// Get 获取训练样本
func (s *Service) Get(id string) (*model.TrainingSample, error) {
	sample, err := s.store.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	return sample, nil
}

// ListOptions 样本列表查询条件
type ListOptions struct {
	Types      []string
	Tags       []string
	SourceType string
	Language   string
	DatasetID  string
	IsActive   *bool
	Page       int
	PageSize   int
}

// List 分页查询训练样本
func (s *Service) List(opts *ListOptions) ([]*model.TrainingSample, int64, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := &repository.SampleFilter{
		Types:      opts.Types,
		Tags:       opts.Tags,
		SourceType: opts.SourceType,
		Language:   opts.Language,
		DatasetID:  opts.DatasetID,
		IsActive:   opts.IsActive,
	}

	total, err := s.store.Count(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	samples, err := s.store.FindMany(filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list samples: %w", err)
	}
	return samples, total, nil
}

// UpdateInput 更新样本的输入，nil 字段保持原值
type UpdateInput struct {
	Question    *string               `json:"question"`
	Answer      *model.AnswerTemplate `json:"answer"`
	Type        *string               `json:"type"`
	CodeSnippet *string               `json:"code_snippet"`
	Tags        []string              `json:"tags"`
	Language    *string               `json:"language"`
	IsActive    *bool                 `json:"is_active"`
}

// Update 更新训练样本。
// 问题或答案变更时重新向量化，其余字段更新不触发。
func (s *Service) Update(ctx context.Context, id string, input *UpdateInput) (*model.TrainingSample, error) {
	sample, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	needsEmbedding := false

	if input.Question != nil {
		question := strings.TrimSpace(*input.Question)
		if question == "" {
			return nil, fmt.Errorf("%w: question cannot be empty", ErrInvalidSample)
		}
		if question != sample.Question {
			sample.Question = question
			needsEmbedding = true
		}
	}
	if input.Answer != nil {
		if strings.TrimSpace(input.Answer.Answer) == "" {
			return nil, fmt.Errorf("%w: answer cannot be empty", ErrInvalidSample)
		}
		if input.Answer.Answer != sample.Answer.Answer {
			needsEmbedding = true
		}
		sample.Answer = *input.Answer
	}
	if input.Type != nil {
		if !model.IsValidSampleType(*input.Type) {
			return nil, fmt.Errorf("%w: unknown sample type: %s", ErrInvalidSample, *input.Type)
		}
		sample.Type = *input.Type
	}
	if input.CodeSnippet != nil {
		sample.CodeSnippet = *input.CodeSnippet
	}
	if input.Tags != nil {
		sample.Tags = model.StringList(input.Tags)
	}
	if input.Language != nil && *input.Language != "" {
		sample.Language = *input.Language
	}
	if input.IsActive != nil {
		sample.IsActive = *input.IsActive
	}

	if needsEmbedding {
		vector, err := s.embedder.Embed(ctx, embeddingsvc.BuildText(sample.Question, sample.Answer.Answer))
		if err != nil {
			return nil, fmt.Errorf("failed to re-embed sample: %w", err)
		}
		sample.Embedding = vector
	}

	if err := s.store.Update(sample); err != nil {
		return nil, fmt.Errorf("failed to update sample: %w", err)
	}
	return sample, nil
}

// Delete 软删除训练样本
func (s *Service) Delete(id string) error {
	if err := s.store.SoftDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSampleNotFound
		}
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return nil
}

// Stats 获取样本统计信息
func (s *Service) Stats() (*repository.SampleStats, error) {
	stats, err := s.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to get sample stats: %w", err)
	}
	return stats, nil
}

// Package dataset 提供数据集文件管理服务
// 负责文件上传、解析处理、预览与生命周期管理
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localmind/localmind/internal/config"
	"github.com/localmind/localmind/internal/model"
	"github.com/localmind/localmind/internal/repository"
	"github.com/localmind/localmind/internal/service/embedding"
	"github.com/localmind/localmind/internal/service/parser"
)

// 数据集服务错误
var (
	// ErrDatasetNotFound 数据集不存在
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrUnsupportedType 文件类型不受支持
	ErrUnsupportedType = errors.New("unsupported dataset file type")
	// ErrProcessingConflict 数据集正在处理中，拒绝重复处理
	ErrProcessingConflict = errors.New("dataset is already being processed")
)

// DatasetStore 数据集存储接口，便于测试
type DatasetStore interface {
	Create(file *model.DatasetFile) error
	GetByID(id string) (*model.DatasetFile, error)
	List(status string, offset, limit int) ([]*model.DatasetFile, error)
	Count(status string) (int64, error)
	UpdateStatusIf(id string, from []string, to string, fields map[string]interface{}) (bool, error)
	Delete(id string) error
	Stats() (*repository.DatasetStats, error)
}

// SampleWriter 样本写入接口，便于测试
type SampleWriter interface {
	CreateBatch(samples []*model.TrainingSample) error
	SoftDeleteByDataset(datasetID string) (int64, error)
	CountActiveByDataset(datasetID string) (int64, error)
}

// Embedder 批量向量化接口，便于测试
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) []embedding.Result
}

// Service 数据集文件服务
type Service struct {
	datasets DatasetStore
	samples  SampleWriter
	embedder Embedder
	cfg      *config.Config

	// 解析器入口，测试时可替换
	openParser func(ctx context.Context, filePath, fileType string) (parser.Iterator, error)
}

// NewService 创建数据集文件服务
func NewService(repos *repository.Repositories, cfg *config.Config, embedder Embedder) *Service {
	return &Service{
		datasets:   repos.Dataset,
		samples:    repos.Sample,
		embedder:   embedder,
		cfg:        cfg,
		openParser: parser.Open,
	}
}

// UploadInput 上传数据集文件的输入
type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

// Upload 上传数据集文件。
// 识别文件类型、落盘存储并创建 uploaded 状态的记录。
func (s *Service) Upload(ctx context.Context, input *UploadInput) (*model.DatasetFile, error) {
	fileType := parser.DetectFileType(input.OriginalName, input.MimeType)
	if fileType == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, input.OriginalName)
	}

	id := uuid.New().String()
	storedName := id + filepath.Ext(input.OriginalName)
	storedPath := filepath.Join(s.cfg.File.BasePath, storedName)

	if err := os.MkdirAll(s.cfg.File.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store dataset file: %w", err)
	}
	written, err := io.Copy(dst, input.Content)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to store dataset file: %w", err)
	}

	dataset := &model.DatasetFile{
		ID:           id,
		OriginalName: input.OriginalName,
		StoredName:   storedName,
		StoredPath:   storedPath,
		MimeType:     input.MimeType,
		SizeBytes:    written,
		FileType:     fileType,
		Status:       model.DatasetStatusUploaded,
	}

	if err := s.datasets.Create(dataset); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to create dataset record: %w", err)
	}
	return dataset, nil
}

// Get 获取数据集文件
func (s *Service) Get(id string) (*model.DatasetFile, error) {
	dataset, err := s.datasets.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return dataset, nil
}

// ActiveSamples 统计数据集当前的活跃样本数量
func (s *Service) ActiveSamples(id string) (int64, error) {
	count, err := s.samples.CountActiveByDataset(id)
	if err != nil {
		return 0, fmt.Errorf("failed to count dataset samples: %w", err)
	}
	return count, nil
}

// List 分页查询数据集文件，status 为空时不过滤
func (s *Service) List(status string, page, pageSize int) ([]*model.DatasetFile, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	total, err := s.datasets.Count(status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count datasets: %w", err)
	}

	datasets, err := s.datasets.List(status, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, total, nil
}

// Stats 获取数据集统计信息
func (s *Service) Stats() (*repository.DatasetStats, error) {
	stats, err := s.datasets.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset stats: %w", err)
	}
	return stats, nil
}

// Delete 删除数据集。
// 软删除该数据集生成的全部样本，移除磁盘文件并删除记录。
func (s *Service) Delete(id string) error {
	dataset, err := s.Get(id)
	if err != nil {
		return err
	}

	deactivated, err := s.samples.SoftDeleteByDataset(id)
	if err != nil {
		return fmt.Errorf("failed to deactivate dataset samples: %w", err)
	}
	if deactivated > 0 {
		log.Printf("Dataset %s deleted, %d samples deactivated", id, deactivated)
	}

	if dataset.StoredPath != "" {
		if err := os.Remove(dataset.StoredPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove dataset file %s: %v", dataset.StoredPath, err)
		}
	}

	if err := s.datasets.Delete(id); err != nil {
		return fmt.Errorf("failed to delete dataset record: %w", err)
	}
	return nil
}

// PreviewResult 数据集预览结果
type PreviewResult struct {
	Records     []*parser.CanonicalRecord `json:"records"`
	TotalParsed int                       `json:"total_parsed"`
	TotalValid  int                       `json:"total_valid"`
	Skipped     int                       `json:"skipped"`
	Warnings    []string                  `json:"warnings"`
}

// Preview 预览数据集解析结果。
// 只做解析与归一化，不向量化也不写入样本。
func (s *Service) Preview(ctx context.Context, id string, limit int) (*PreviewResult, error) {
	dataset, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	it, err := s.openParser(ctx, dataset.StoredPath, dataset.FileType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	defer it.Close()

	result := &PreviewResult{Records: make([]*parser.CanonicalRecord, 0, limit)}
	for {
		raw, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}

		result.TotalParsed++
		record := parser.Normalize(raw)
		if record == nil {
			result.Skipped++
			continue
		}
		result.TotalValid++
		if len(result.Records) < limit {
			result.Records = append(result.Records, record)
		}
	}

	result.Warnings = it.Warnings()
	return result, nil
}

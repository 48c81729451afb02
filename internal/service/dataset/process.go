package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localmind/localmind/internal/model"
	"github.com/localmind/localmind/internal/service/embedding"
	"github.com/localmind/localmind/internal/service/parser"
)

// Process 触发数据集处理。
// 状态通过单条条件更新抢占，processing 状态下的重复触发返回冲突；
// completed/failed 允许重新处理，计数与错误摘要随之重置。
// 实际解析与向量化在后台进行，本方法立即返回。
func (s *Service) Process(ctx context.Context, id string) error {
	dataset, err := s.datasets.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDatasetNotFound
		}
		return fmt.Errorf("failed to get dataset: %w", err)
	}

	claimed, err := s.datasets.UpdateStatusIf(id,
		[]string{model.DatasetStatusUploaded, model.DatasetStatusCompleted, model.DatasetStatusFailed},
		model.DatasetStatusProcessing,
		map[string]interface{}{
			"error_summary":           model.StringList{},
			"total_samples_generated": 0,
			"processed_at":            nil,
		})
	if err != nil {
		return fmt.Errorf("failed to claim dataset: %w", err)
	}
	if !claimed {
		return ErrProcessingConflict
	}

	// 重新处理时先下线上一轮生成的样本，
	// 保证 total_samples_generated 与活跃样本数一致
	if deactivated, err := s.samples.SoftDeleteByDataset(id); err != nil {
		log.Printf("Warning: failed to deactivate previous samples for dataset %s: %v", id, err)
	} else if deactivated > 0 {
		log.Printf("Dataset %s reprocessing, %d previous samples deactivated", id, deactivated)
	}

	// 后台处理，使用独立的 context 以免随请求结束被取消
	go s.processDataset(context.Background(), dataset)

	return nil
}

// ingestState 单次处理过程的累计状态
type ingestState struct {
	maxErrors int

	parsed      int
	invalid     int
	embedFailed int
	success     int
	errs        []string
	truncated   int
}

func (st *ingestState) addError(msg string) {
	if len(st.errs) < st.maxErrors {
		st.errs = append(st.errs, msg)
		return
	}
	st.truncated++
}

func (st *ingestState) summary() model.StringList {
	errs := st.errs
	if st.truncated > 0 {
		errs = append(errs, fmt.Sprintf("... and %d more errors", st.truncated))
	}
	return model.StringList(errs)
}

// processDataset 后台处理数据集：解析、归一化、向量化、入库
func (s *Service) processDataset(ctx context.Context, dataset *model.DatasetFile) {
	log.Printf("Processing dataset %s (%s)", dataset.ID, dataset.OriginalName)

	st := &ingestState{maxErrors: s.cfg.Ingest.MaxErrorSummary}

	it, err := s.openParser(ctx, dataset.StoredPath, dataset.FileType)
	if err != nil {
		st.addError(err.Error())
		s.finish(dataset.ID, model.DatasetStatusFailed, st)
		return
	}
	defer it.Close()

	batchSize := s.cfg.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	batch := make([]*parser.CanonicalRecord, 0, batchSize)
	for {
		raw, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			st.addError(fmt.Sprintf("read aborted: %v", err))
			break
		}

		st.parsed++
		record := parser.Normalize(raw)
		if record == nil {
			st.invalid++
			st.addError(fmt.Sprintf("record %d: missing or too-short question/answer, skipped", st.parsed))
			continue
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			s.flushBatch(ctx, dataset.ID, batch, st)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		s.flushBatch(ctx, dataset.ID, batch, st)
	}

	for _, warning := range it.Warnings() {
		st.addError(warning)
	}

	status := model.DatasetStatusCompleted
	if st.success == 0 {
		st.addError("no valid samples generated")
		status = model.DatasetStatusFailed
	}
	s.finish(dataset.ID, status, st)
}

// flushBatch 向量化一批记录并写入样本表。
// 单条向量化失败只跳过该条，不影响同批其他记录。
func (s *Service) flushBatch(ctx context.Context, datasetID string, batch []*parser.CanonicalRecord, st *ingestState) {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = embedding.BuildText(record.Question, record.Answer)
	}

	results := s.embedder.EmbedBatch(ctx, texts)

	samples := make([]*model.TrainingSample, 0, len(batch))
	for i, record := range batch {
		if results[i].Err != nil {
			st.embedFailed++
			st.addError(fmt.Sprintf("embedding failed: %v", results[i].Err))
			continue
		}
		samples = append(samples, &model.TrainingSample{
			ID:       uuid.New().String(),
			Question: record.Question,
			Answer: model.AnswerTemplate{
				Answer:      record.Answer,
				Sections:    []model.AnswerSection{},
				Suggestions: []string{},
			},
			Type:        record.Type,
			CodeSnippet: record.CodeSnippet,
			Embedding:   results[i].Vector,
			Tags:        model.StringList(record.Tags),
			Language:    record.Language,
			SourceType:  model.SourceTypeDataset,
			DatasetID:   datasetID,
			IsActive:    true,
		})
	}

	if len(samples) == 0 {
		return
	}
	if err := s.samples.CreateBatch(samples); err != nil {
		st.embedFailed += len(samples)
		st.addError(fmt.Sprintf("failed to persist batch: %v", err))
		return
	}
	st.success += len(samples)
}

// finish 写入处理结果状态
func (s *Service) finish(id, status string, st *ingestState) {
	now := time.Now()
	fields := map[string]interface{}{
		"error_summary":           st.summary(),
		"total_samples_generated": st.success,
		"processed_at":            &now,
	}

	updated, err := s.datasets.UpdateStatusIf(id, []string{model.DatasetStatusProcessing}, status, fields)
	if err != nil {
		log.Printf("Error: failed to finalize dataset %s: %v", id, err)
		return
	}
	if !updated {
		log.Printf("Warning: dataset %s no longer in processing state, result discarded", id)
		return
	}

	log.Printf("Dataset %s finished: status=%s parsed=%d success=%d invalid=%d embed_failed=%d",
		id, status, st.parsed, st.success, st.invalid, st.embedFailed)
}

package dataset

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/localmind/localmind/internal/config"
	"github.com/localmind/localmind/internal/model"
	"github.com/localmind/localmind/internal/repository"
	"github.com/localmind/localmind/internal/service/embedding"
	"github.com/localmind/localmind/internal/service/parser"
	"github.com/localmind/localmind/internal/testutil"
)

// fakeDatasetStore 内存数据集存储
type fakeDatasetStore struct {
	files map[string]*model.DatasetFile
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{files: make(map[string]*model.DatasetFile)}
}

func (f *fakeDatasetStore) Create(file *model.DatasetFile) error {
	f.files[file.ID] = file
	return nil
}

func (f *fakeDatasetStore) GetByID(id string) (*model.DatasetFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *file
	return &copied, nil
}

func (f *fakeDatasetStore) List(status string, offset, limit int) ([]*model.DatasetFile, error) {
	var files []*model.DatasetFile
	for _, file := range f.files {
		if status == "" || file.Status == status {
			files = append(files, file)
		}
	}
	return files, nil
}

func (f *fakeDatasetStore) Count(status string) (int64, error) {
	files, _ := f.List(status, 0, 0)
	return int64(len(files)), nil
}

func (f *fakeDatasetStore) UpdateStatusIf(id string, from []string, to string, fields map[string]interface{}) (bool, error) {
	file, ok := f.files[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if file.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	file.Status = to
	if v, ok := fields["error_summary"].(model.StringList); ok {
		file.ErrorSummary = v
	}
	if v, ok := fields["total_samples_generated"].(int); ok {
		file.TotalSamplesGenerated = v
	}
	switch v := fields["processed_at"].(type) {
	case *time.Time:
		file.ProcessedAt = v
	case nil:
		file.ProcessedAt = nil
	}
	return true, nil
}

func (f *fakeDatasetStore) Delete(id string) error {
	if _, ok := f.files[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeDatasetStore) Stats() (*repository.DatasetStats, error) {
	return &repository.DatasetStats{Total: int64(len(f.files))}, nil
}

// fakeSampleWriter 内存样本写入器
type fakeSampleWriter struct {
	samples  []*model.TrainingSample
	writeErr error
}

func (f *fakeSampleWriter) CreateBatch(samples []*model.TrainingSample) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.samples = append(f.samples, samples...)
	return nil
}

func (f *fakeSampleWriter) SoftDeleteByDataset(datasetID string) (int64, error) {
	var count int64
	for _, sample := range f.samples {
		if sample.DatasetID == datasetID && sample.IsActive {
			sample.IsActive = false
			count++
		}
	}
	return count, nil
}

func (f *fakeSampleWriter) CountActiveByDataset(datasetID string) (int64, error) {
	var count int64
	for _, sample := range f.samples {
		if sample.DatasetID == datasetID && sample.IsActive {
			count++
		}
	}
	return count, nil
}

// fakeBatchEmbedder 按输入长度生成向量，可整体注入错误
type fakeBatchEmbedder struct {
	err   error
	calls int
}

func (f *fakeBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) []embedding.Result {
	f.calls++
	results := make([]embedding.Result, len(texts))
	for i, text := range texts {
		if f.err != nil {
			results[i].Err = f.err
			continue
		}
		results[i].Vector = model.Vector{float64(len(text))}
	}
	return results
}

func datasetTestConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Ingest.BatchSize = 5
	cfg.Ingest.MaxErrorSummary = 5
	cfg.File.BasePath = t.TempDir()
	return cfg
}

func newDatasetTestService(t *testing.T, store *fakeDatasetStore, writer *fakeSampleWriter, embedder Embedder) *Service {
	return &Service{
		datasets:   store,
		samples:    writer,
		embedder:   embedder,
		cfg:        datasetTestConfig(t),
		openParser: parser.Open,
	}
}

func TestUpload(t *testing.T) {
	store := newFakeDatasetStore()
	svc := newDatasetTestService(t, store, &fakeSampleWriter{}, &fakeBatchEmbedder{})

	content := "question,answer\nWhat is Go?,A programming language.\n"
	dataset, err := svc.Upload(context.Background(), &UploadInput{
		OriginalName: "training.csv",
		MimeType:     "text/csv",
		Content:      strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if dataset.FileType != model.FileTypeCSV {
		t.Errorf("expected csv file type, got %s", dataset.FileType)
	}
	if dataset.Status != model.DatasetStatusUploaded {
		t.Errorf("expected uploaded status, got %s", dataset.Status)
	}
	if dataset.SizeBytes != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), dataset.SizeBytes)
	}

	stored, err := os.ReadFile(dataset.StoredPath)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(stored) != content {
		t.Error("stored content does not match upload")
	}
}

func TestUploadUnsupportedType(t *testing.T) {
	svc := newDatasetTestService(t, newFakeDatasetStore(), &fakeSampleWriter{}, &fakeBatchEmbedder{})

	_, err := svc.Upload(context.Background(), &UploadInput{
		OriginalName: "archive.zip",
		MimeType:     "application/zip",
		Content:      strings.NewReader("data"),
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestProcessNotFound(t *testing.T) {
	svc := newDatasetTestService(t, newFakeDatasetStore(), &fakeSampleWriter{}, &fakeBatchEmbedder{})

	err := svc.Process(context.Background(), "missing")
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestProcessConflict(t *testing.T) {
	store := newFakeDatasetStore()
	store.files["d1"] = &model.DatasetFile{ID: "d1", Status: model.DatasetStatusProcessing}
	svc := newDatasetTestService(t, store, &fakeSampleWriter{}, &fakeBatchEmbedder{})

	err := svc.Process(context.Background(), "d1")
	if !errors.Is(err, ErrProcessingConflict) {
		t.Fatalf("expected ErrProcessingConflict, got %v", err)
	}
}

// seedProcessing 放置一个已进入 processing 状态的数据集
func seedProcessing(store *fakeDatasetStore, id, path, fileType string) *model.DatasetFile {
	file := &model.DatasetFile{
		ID:         id,
		StoredPath: path,
		FileType:   fileType,
		Status:     model.DatasetStatusProcessing,
	}
	store.files[id] = file
	return file
}

func TestProcessDatasetSuccess(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer,tags\n"+
			"What is Go?,A programming language from Google.,go\n"+
			"What is Gin?,A web framework for Go services.,web\n")

	store := newFakeDatasetStore()
	writer := &fakeSampleWriter{}
	embedder := &fakeBatchEmbedder{}
	svc := newDatasetTestService(t, store, writer, embedder)

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", final.Status, final.ErrorSummary)
	}
	if final.TotalSamplesGenerated != 2 {
		t.Errorf("expected 2 samples generated, got %d", final.TotalSamplesGenerated)
	}
	if final.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}

	if len(writer.samples) != 2 {
		t.Fatalf("expected 2 samples persisted, got %d", len(writer.samples))
	}
	first := writer.samples[0]
	if first.SourceType != model.SourceTypeDataset {
		t.Errorf("expected dataset source, got %s", first.SourceType)
	}
	if first.DatasetID != "d1" {
		t.Errorf("expected dataset id d1, got %s", first.DatasetID)
	}
	if len(first.Embedding) == 0 {
		t.Error("expected embedding to be set")
	}
	if first.Answer.Answer != "A programming language from Google." {
		t.Errorf("unexpected answer: %q", first.Answer.Answer)
	}
}

func TestProcessDatasetSkipsInvalidRecords(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer\n"+
			"What is Go?,A programming language from Google.\n"+
			"Hi?,too short question\n"+
			"What is Gin?,short\n")

	store := newFakeDatasetStore()
	writer := &fakeSampleWriter{}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.TotalSamplesGenerated != 1 {
		t.Errorf("expected 1 sample, got %d", final.TotalSamplesGenerated)
	}
	if len(final.ErrorSummary) != 2 {
		t.Errorf("expected 2 skip entries in summary, got %v", final.ErrorSummary)
	}
}

func TestProcessReprocessDeactivatesPreviousSamples(t *testing.T) {
	path := testutil.WriteTempFile(t, "empty.csv", "")

	store := newFakeDatasetStore()
	store.files["d1"] = &model.DatasetFile{
		ID:         "d1",
		StoredPath: path,
		FileType:   model.FileTypeCSV,
		Status:     model.DatasetStatusCompleted,
	}
	writer := &fakeSampleWriter{samples: []*model.TrainingSample{
		{ID: "s1", DatasetID: "d1", IsActive: true},
		{ID: "s2", DatasetID: "d2", IsActive: true},
	}}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	if err := svc.Process(context.Background(), "d1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// 上一轮样本在后台处理启动前已同步下线
	if writer.samples[0].IsActive {
		t.Error("expected previous dataset sample deactivated on reprocess")
	}
	if !writer.samples[1].IsActive {
		t.Error("unrelated dataset sample must stay active")
	}
	if count, err := svc.ActiveSamples("d1"); err != nil || count != 0 {
		t.Errorf("expected 0 active samples after reprocess claim, got %d (%v)", count, err)
	}
}

func TestProcessDatasetMalformedRowInSummary(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer\n"+
			"What is Go?,A programming language from Google.\n"+
			"What is Gin?,A web framework for Go services.\n"+
			"broken row without answer column\n"+
			"What is GORM?,An ORM library for Go databases.\n")

	store := newFakeDatasetStore()
	writer := &fakeSampleWriter{}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", final.Status, final.ErrorSummary)
	}
	if final.TotalSamplesGenerated != 3 {
		t.Errorf("expected 3 samples, got %d", final.TotalSamplesGenerated)
	}
	if len(final.ErrorSummary) != 1 {
		t.Errorf("expected exactly 1 summary entry for the malformed row, got %v", final.ErrorSummary)
	}
}

func TestProcessDatasetFatalParse(t *testing.T) {
	path := testutil.WriteTempFile(t, "empty.csv", "")

	store := newFakeDatasetStore()
	svc := newDatasetTestService(t, store, &fakeSampleWriter{}, &fakeBatchEmbedder{})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if len(final.ErrorSummary) == 0 {
		t.Error("expected error summary for fatal parse")
	}
}

func TestProcessDatasetAllRecordsInvalid(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer\nHi?,no\nNo?,nope\n")

	store := newFakeDatasetStore()
	writer := &fakeSampleWriter{}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusFailed {
		t.Fatalf("expected failed when nothing valid, got %s", final.Status)
	}
	if len(writer.samples) != 0 {
		t.Errorf("expected no samples, got %d", len(writer.samples))
	}
}

func TestProcessDatasetEmbeddingFailure(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer\nWhat is Go?,A programming language from Google.\n")

	store := newFakeDatasetStore()
	svc := newDatasetTestService(t, store, &fakeSampleWriter{},
		&fakeBatchEmbedder{err: errors.New("provider down")})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
}

func TestProcessDatasetBoundsErrorSummary(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("question,answer\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("Hi?,no\n")
	}
	sb.WriteString("What is Go?,A programming language from Google.\n")
	path := testutil.WriteTempFile(t, "data.csv", sb.String())

	store := newFakeDatasetStore()
	svc := newDatasetTestService(t, store, &fakeSampleWriter{}, &fakeBatchEmbedder{})

	dataset := seedProcessing(store, "d1", path, model.FileTypeCSV)
	svc.processDataset(context.Background(), dataset)

	final := store.files["d1"]
	if final.Status != model.DatasetStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	// 摘要上限 5 条，外加一条截断提示
	if len(final.ErrorSummary) != 6 {
		t.Errorf("expected bounded summary of 6 entries, got %d: %v",
			len(final.ErrorSummary), final.ErrorSummary)
	}
	if !strings.Contains(final.ErrorSummary[5], "more errors") {
		t.Errorf("expected truncation marker, got %q", final.ErrorSummary[5])
	}
}

func TestPreview(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv",
		"question,answer\n"+
			"What is Go?,A programming language from Google.\n"+
			"Hi?,invalid row\n"+
			"What is Gin?,A web framework for Go services.\n")

	store := newFakeDatasetStore()
	store.files["d1"] = &model.DatasetFile{
		ID:         "d1",
		StoredPath: path,
		FileType:   model.FileTypeCSV,
		Status:     model.DatasetStatusUploaded,
	}
	writer := &fakeSampleWriter{}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	result, err := svc.Preview(context.Background(), "d1", 1)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if result.TotalParsed != 3 {
		t.Errorf("expected 3 parsed, got %d", result.TotalParsed)
	}
	if result.TotalValid != 2 {
		t.Errorf("expected 2 valid, got %d", result.TotalValid)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if len(result.Records) != 1 {
		t.Errorf("expected 1 preview record for limit 1, got %d", len(result.Records))
	}

	// 预览不落库也不改状态
	if len(writer.samples) != 0 {
		t.Error("preview must not persist samples")
	}
	if store.files["d1"].Status != model.DatasetStatusUploaded {
		t.Error("preview must not change status")
	}
}

func TestDeleteDataset(t *testing.T) {
	path := testutil.WriteTempFile(t, "data.csv", "question,answer\n")

	store := newFakeDatasetStore()
	store.files["d1"] = &model.DatasetFile{ID: "d1", StoredPath: path}
	writer := &fakeSampleWriter{samples: []*model.TrainingSample{
		{ID: "s1", DatasetID: "d1", IsActive: true},
		{ID: "s2", DatasetID: "d2", IsActive: true},
	}}
	svc := newDatasetTestService(t, store, writer, &fakeBatchEmbedder{})

	if err := svc.Delete("d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := store.files["d1"]; ok {
		t.Error("expected dataset record removed")
	}
	if writer.samples[0].IsActive {
		t.Error("expected dataset sample deactivated")
	}
	if !writer.samples[1].IsActive {
		t.Error("unrelated sample must stay active")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected stored file removed")
	}
}

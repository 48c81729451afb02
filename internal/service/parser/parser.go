// Package parser 提供数据集文件解析服务
// 将不同格式的文件转换为统一的原始记录序列
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/localmind/localmind/internal/model"
)

// RawRecord 解析出的原始记录，键为列名/字段名
type RawRecord map[string]interface{}

// 解析错误
var (
	// ErrUnsupportedFormat 不支持的文件格式，不产生任何记录
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFatalParse 整文件级解析失败，终止本次处理
	ErrFatalParse = errors.New("fatal parse error")
)

// Iterator 原始记录迭代器。
// 序列有限且只能向前，不重新打开文件无法重放。
// Next 在序列结束时返回 io.EOF。
type Iterator interface {
	Next(ctx context.Context) (RawRecord, error)
	// Warnings 返回到目前为止跳过的记录级告警
	Warnings() []string
	Close() error
}

// Open 按文件类型打开对应的解析器
func Open(ctx context.Context, filePath, fileType string) (Iterator, error) {
	switch fileType {
	case model.FileTypeCSV:
		return newCSVIterator(filePath)
	case model.FileTypeJSON:
		return newJSONIterator(filePath)
	case model.FileTypeText:
		return newTextIterator(filePath)
	case model.FileTypeMarkdown:
		return newMarkdownIterator(filePath)
	case model.FileTypeExcel:
		return newExcelIterator(ctx, filePath)
	case model.FileTypePDF:
		return newPDFIterator(ctx, filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

// DetectFileType 根据扩展名或 MIME 类型识别文件类型，未知返回空串
func DetectFileType(filename, mimeType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	extMap := map[string]string{
		"csv":      model.FileTypeCSV,
		"xlsx":     model.FileTypeExcel,
		"xls":      model.FileTypeExcel,
		"json":     model.FileTypeJSON,
		"txt":      model.FileTypeText,
		"md":       model.FileTypeMarkdown,
		"markdown": model.FileTypeMarkdown,
		"pdf":      model.FileTypePDF,
	}
	if fileType, ok := extMap[ext]; ok {
		return fileType
	}

	mimeMap := map[string]string{
		"text/csv":                 model.FileTypeCSV,
		"application/vnd.ms-excel": model.FileTypeExcel,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": model.FileTypeExcel,
		"application/json": model.FileTypeJSON,
		"text/plain":       model.FileTypeText,
		"text/markdown":    model.FileTypeMarkdown,
		"application/pdf":  model.FileTypePDF,
	}
	return mimeMap[mimeType]
}

// sliceIterator 基于内存切片的迭代器，用于整文件一次解析出的格式
type sliceIterator struct {
	records  []RawRecord
	pos      int
	warnings []string
}

func (it *sliceIterator) Next(ctx context.Context) (RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.records) {
		return nil, io.EOF
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, nil
}

func (it *sliceIterator) Warnings() []string {
	return it.warnings
}

func (it *sliceIterator) Close() error {
	return nil
}

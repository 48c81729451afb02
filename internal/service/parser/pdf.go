package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/localmind/localmind/internal/model"
)

// minPageContentLen 低于该长度的页面视为空页被丢弃
const minPageContentLen = 10

// newPDFIterator 解析 PDF 文件。
// 按页切分，每页一条文档记录，近似空白的页面跳过。
func newPDFIterator(ctx context.Context, filePath string) (Iterator, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf parser: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pdf file: %v", ErrFatalParse, err)
	}
	defer file.Close()

	docs, err := pdfParser.Parse(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse pdf: %v", ErrFatalParse, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: pdf has no readable content", ErrFatalParse)
	}

	it := &sliceIterator{}
	for i, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if len(content) < minPageContentLen {
			it.warnings = append(it.warnings, fmt.Sprintf("page %d: near-empty page, skipped", i+1))
			continue
		}
		it.records = append(it.records, RawRecord{
			"question": fmt.Sprintf("Page %d", i+1),
			"answer":   content,
			"type":     model.SampleTypeDoc,
		})
	}

	return it, nil
}

package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/localmind/localmind/internal/model"
)

var blankLineSplit = regexp.MustCompile(`\n\s*\n`)

var (
	questionPrefix = regexp.MustCompile(`(?i)^Q:\s*`)
	answerPrefix   = regexp.MustCompile(`(?i)^A:\s*`)
)

// newTextIterator 解析纯文本文件。
// 按空行分段；段落带 Q:/A: 前缀时成对提取问答，
// 否则每段作为一条文档记录。整个文件为空视为致命错误。
func newTextIterator(filePath string) (Iterator, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read text file: %v", ErrFatalParse, err)
	}

	blocks := splitBlocks(string(content))
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: text file is empty", ErrFatalParse)
	}

	it := &sliceIterator{}

	if questionPrefix.MatchString(blocks[0]) {
		// Q/A 成对模式
		for i := 0; i+1 < len(blocks); i += 2 {
			question := strings.TrimSpace(questionPrefix.ReplaceAllString(blocks[i], ""))
			answer := strings.TrimSpace(answerPrefix.ReplaceAllString(blocks[i+1], ""))
			if question == "" || answer == "" {
				it.warnings = append(it.warnings, fmt.Sprintf("block %d: incomplete q/a pair, skipped", i+1))
				continue
			}
			it.records = append(it.records, RawRecord{
				"question": question,
				"answer":   answer,
				"type":     model.SampleTypeQA,
			})
		}
		if len(blocks)%2 != 0 {
			it.warnings = append(it.warnings, fmt.Sprintf("block %d: question without answer, skipped", len(blocks)))
		}
		return it, nil
	}

	// 文档分段模式：每段一条记录
	for i, block := range blocks {
		it.records = append(it.records, RawRecord{
			"question": fmt.Sprintf("Document Section %d", i+1),
			"answer":   block,
			"type":     model.SampleTypeDoc,
		})
	}

	return it, nil
}

// splitBlocks 按空行切分并去掉空白段
func splitBlocks(content string) []string {
	parts := blankLineSplit.Split(content, -1)
	blocks := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}

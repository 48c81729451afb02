package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/localmind/localmind/internal/model"
)

var headingSplit = regexp.MustCompile(`(?m)^#{1,3}\s+`)

// newMarkdownIterator 解析 Markdown 文件。
// 按一到三级标题切分，标题作为问题、正文作为答案。
// 没有任何标题时退化为空行分段。
func newMarkdownIterator(filePath string) (Iterator, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read markdown file: %v", ErrFatalParse, err)
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: markdown file is empty", ErrFatalParse)
	}

	if !headingSplit.MatchString(text) {
		// 无标题的 Markdown 按纯文本分段处理
		return newTextIterator(filePath)
	}

	it := &sliceIterator{}

	sections := headingSplit.Split(text, -1)
	for i, section := range sections {
		trimmed := strings.TrimSpace(section)
		if trimmed == "" {
			continue
		}

		lines := strings.SplitN(trimmed, "\n", 2)
		title := strings.TrimSpace(lines[0])
		body := ""
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}

		if title == "" || body == "" {
			it.warnings = append(it.warnings, fmt.Sprintf("section %d: missing title or body, skipped", i))
			continue
		}

		it.records = append(it.records, RawRecord{
			"question": title,
			"answer":   body,
			"type":     model.SampleTypeDoc,
		})
	}

	return it, nil
}

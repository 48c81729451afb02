package parser

import (
	"fmt"
	"strings"

	"github.com/localmind/localmind/internal/model"
)

// 字段最小长度要求
const (
	minQuestionLen = 5
	minAnswerLen   = 10
)

// CanonicalRecord 归一化后的训练记录
type CanonicalRecord struct {
	Question    string
	Answer      string
	Type        string
	Tags        []string
	Language    string
	CodeSnippet string
}

// 字段别名表，统一小写匹配
var (
	questionAliases = []string{"question", "q", "prompt", "query"}
	answerAliases   = []string{"answer", "a", "response"}
	codeAliases     = []string{"code", "codesnippet", "snippet"}
)

// Normalize 将原始记录归一化为规范训练记录。
// 问题过短、答案过短或字段缺失的记录返回 nil。
func Normalize(rec RawRecord) *CanonicalRecord {
	if rec == nil {
		return nil
	}

	lowered := make(map[string]interface{}, len(rec))
	for key, value := range rec {
		lowered[strings.ToLower(strings.TrimSpace(key))] = value
	}

	question := strings.TrimSpace(firstString(lowered, questionAliases))
	answer := strings.TrimSpace(firstString(lowered, answerAliases))
	if len(question) < minQuestionLen || len(answer) < minAnswerLen {
		return nil
	}

	sampleType := strings.ToLower(strings.TrimSpace(asString(lowered["type"])))
	if !model.IsValidSampleType(sampleType) {
		sampleType = model.SampleTypeQA
	}

	language := strings.TrimSpace(asString(lowered["language"]))
	if language == "" {
		language = model.DefaultLanguage
	}

	return &CanonicalRecord{
		Question:    question,
		Answer:      answer,
		Type:        sampleType,
		Tags:        normalizeTags(lowered["tags"]),
		Language:    language,
		CodeSnippet: strings.TrimSpace(firstString(lowered, codeAliases)),
	}
}

// firstString 按别名顺序取第一个非空字符串值
func firstString(fields map[string]interface{}, aliases []string) string {
	for _, alias := range aliases {
		if value := asString(fields[alias]); strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// asString 宽松转字符串，数字等标量也接受
func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// normalizeTags 解析标签字段。
// 接受字符串数组或逗号/分号分隔的字符串，去重去空。
func normalizeTags(value interface{}) []string {
	var raw []string
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			raw = append(raw, asString(item))
		}
	case []string:
		raw = v
	case string:
		raw = strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ';'
		})
	default:
		return nil
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		tags = append(tags, trimmed)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

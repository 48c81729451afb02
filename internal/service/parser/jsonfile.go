package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kaptinlin/jsonrepair"
)

// newJSONIterator 解析 JSON 文件。
// 支持对象数组、单个对象以及 {data: []} / {items: []} 包装格式；
// 语法损坏的文件先尝试修复再解析。
func newJSONIterator(filePath string) (Iterator, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read json file: %v", ErrFatalParse, err)
	}

	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(content))
		if repairErr != nil {
			return nil, fmt.Errorf("%w: invalid json: %v", ErrFatalParse, err)
		}
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return nil, fmt.Errorf("%w: invalid json after repair: %v", ErrFatalParse, err)
		}
	}

	it := &sliceIterator{}

	items := extractJSONItems(data)
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			it.warnings = append(it.warnings, fmt.Sprintf("element %d: not a json object, skipped", i))
			continue
		}
		it.records = append(it.records, RawRecord(obj))
	}

	return it, nil
}

// extractJSONItems 提取记录数组。
// 数组直接使用；对象优先取 data/items 包装字段，否则视为单条记录。
func extractJSONItems(data interface{}) []interface{} {
	switch v := data.(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		if arr, ok := v["data"].([]interface{}); ok {
			return arr
		}
		if arr, ok := v["items"].([]interface{}); ok {
			return arr
		}
		return []interface{}{v}
	default:
		return nil
	}
}

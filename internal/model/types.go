// Package model 提供训练数据相关的数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector 嵌入向量，存储为 jsonb
type Vector []float64

// Value 实现 driver.Valuer 接口
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal([]float64{})
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner 接口
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for Vector: %T", value)
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, v)
}

// StringList 字符串数组，存储为 jsonb
type StringList []string

// Value 实现 driver.Valuer 接口
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for StringList: %T", value)
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, l)
}

// AnswerSection 答案分段
type AnswerSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AnswerTemplate 结构化答案，存储为 jsonb
type AnswerTemplate struct {
	Greeting    string          `json:"greeting,omitempty"`
	Answer      string          `json:"answer"`
	Sections    []AnswerSection `json:"sections"`
	Suggestions []string        `json:"suggestions"`
}

// Value 实现 driver.Valuer 接口
func (a AnswerTemplate) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan 实现 sql.Scanner 接口
func (a *AnswerTemplate) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for AnswerTemplate: %T", value)
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, a)
}

// Package testutil 提供测试辅助工具
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteTempFile 在临时目录写入测试文件，返回文件路径
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", name, err)
	}
	return path
}

// AlmostEqual 浮点近似相等
func AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// VectorsAlmostEqual 向量近似相等
func VectorsAlmostEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !AlmostEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

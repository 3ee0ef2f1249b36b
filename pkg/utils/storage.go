package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureWritableDir 确保目录存在并可写
//
// 返回：
//   - error: 如果创建目录失败或目录不可写返回错误
func EnsureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// 验证目录可写
	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	os.Remove(testFile)

	return nil
}

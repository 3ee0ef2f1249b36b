//go:build !android

package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// stagingDirName 桌面平台上暂存目录相对于用户主目录的名称
const stagingDirName = ".doom2df"

// DefaultStagingDir 返回桌面平台上的默认暂存目录（~/.doom2df）
func DefaultStagingDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, stagingDirName), nil
}

// EnsureStorageDir 确保存储目录存在（非 Android 平台的空实现）
// gdata 在非 Android 平台上会自动创建存储目录，无需额外处理
func EnsureStorageDir() error {
	return nil
}

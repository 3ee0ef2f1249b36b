//go:build android

package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultStagingDir 返回 Android 上的默认暂存目录
//
// 使用应用私有目录 /data/data/{package}/files，引擎可以直接用
// 普通文件系统调用打开其中的文件。
func DefaultStagingDir() (string, error) {
	app, err := detectAndroidApp()
	if err != nil {
		return "", fmt.Errorf("failed to detect Android app: %w", err)
	}
	return filepath.Join("/data/data", app, "files"), nil
}

// EnsureStorageDir 确保 Android 存储目录存在并可写
// gdata 库在 Android 上使用 /data/data/{package}/ 作为存储路径，
// 但不会预先创建子目录。此函数在 gdata 初始化前调用。
func EnsureStorageDir() error {
	app, err := detectAndroidApp()
	if err != nil {
		return fmt.Errorf("failed to detect Android app: %w", err)
	}
	return EnsureWritableDir(filepath.Join("/data/data", app))
}

// detectAndroidApp 检测 Android 应用包名
// 从 /proc/self/cmdline 读取应用标识符
func detectAndroidApp() (string, error) {
	data, err := os.ReadFile("/proc/self/cmdline")
	if err != nil {
		return "", err
	}

	// cmdline 以 NUL 分隔参数，包名是第一个参数
	for i, ch := range data {
		if ch == 0 || ch == '\n' {
			data = data[:i]
			break
		}
	}

	if len(data) == 0 {
		return "", fmt.Errorf("got empty output from /proc/self/cmdline")
	}
	return string(data), nil
}

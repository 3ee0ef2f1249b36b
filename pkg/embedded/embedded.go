// Package embedded 提供只读资源包（bundle）的统一访问接口
//
// 资源包可以是编译进二进制的 embed.FS（-tags bundled），也可以是
// 磁盘上的资源目录（os.DirFS）。路径均为相对于资源包根目录的
// 正斜杠路径，空字符串 "" 表示根目录本身。
//
// 使用前必须调用 Init() 初始化。
package embedded

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

var (
	bundleFS    fs.FS
	initialized bool
)

// ErrNotInitialized 在 Init() 之前访问资源包时返回
var ErrNotInitialized = errors.New("embedded package not initialized, call Init() first")

// Init 设置资源包文件系统
// 必须在 main() 开始时、任何资源访问之前调用
func Init(bundle fs.FS) {
	bundleFS = bundle
	initialized = bundle != nil
}

// IsInitialized 返回 embedded 包是否已初始化
func IsInitialized() bool {
	return initialized
}

// FS 返回资源包文件系统
func FS() (fs.FS, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	return bundleFS, nil
}

// Clean 将资源路径规范化为 fs.FS 可接受的形式
//
// 规则：
//   - 反斜杠转换为正斜杠
//   - 移除 "./" 前缀和多余的分隔符
//   - ""、"." 和 "/" 都表示根目录，返回 "."
//
// 逃逸出根目录的路径（以 ".." 开头）和绝对路径返回错误。
func Clean(name string) (string, error) {
	name = filepath.ToSlash(name)
	if strings.HasPrefix(name, "/") && name != "/" {
		return "", fmt.Errorf("invalid resource path %q: must be relative", name)
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ".", nil
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid resource path %q: escapes bundle root", name)
	}
	return cleaned, nil
}

// Open 打开资源包中的文件或目录
func Open(name string) (fs.File, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	p, err := Clean(name)
	if err != nil {
		return nil, err
	}
	return bundleFS.Open(p)
}

// ReadFile 读取资源包中的文件内容
func ReadFile(name string) ([]byte, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	p, err := Clean(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(bundleFS, p)
}

// ReadDir 读取资源包中的目录内容
func ReadDir(name string) ([]fs.DirEntry, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	p, err := Clean(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadDir(bundleFS, p)
}

// Stat 获取资源包中文件的信息
func Stat(name string) (fs.FileInfo, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	p, err := Clean(name)
	if err != nil {
		return nil, err
	}
	return fs.Stat(bundleFS, p)
}

// Exists 检查资源包中是否存在指定路径
func Exists(name string) bool {
	_, err := Stat(name)
	return err == nil
}

// Sub 返回资源包中指定目录的子文件系统
func Sub(dir string) (fs.FS, error) {
	if !initialized {
		return nil, ErrNotInitialized
	}
	p, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	if p == "." {
		return bundleFS, nil
	}
	return fs.Sub(bundleFS, p)
}

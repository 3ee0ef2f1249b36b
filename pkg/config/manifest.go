package config

import (
	"fmt"

	"github.com/d2df/d2df-launcher/pkg/embedded"
)

// EntryKind 清单条目类型
type EntryKind string

const (
	// EntryDir 目录条目：递归暂存目录下所有层级的文件
	EntryDir EntryKind = "dir"
	// EntryFile 文件条目：只暂存单个文件
	EntryFile EntryKind = "file"
)

// ManifestEntry 资源清单条目
//
// 标识资源包中一个必须在引擎启动前出现在暂存目录里的目录或文件。
// Path 是相对于资源包根目录的正斜杠路径，"" 表示根目录。
type ManifestEntry struct {
	Path string    `yaml:"path"`
	Kind EntryKind `yaml:"kind"`

	// Optional 为 true 时，资源包中缺少该条目只记录日志，不视为启动失败
	Optional bool `yaml:"optional,omitempty"`
}

// String 返回条目的可读描述（用于日志）
func (e ManifestEntry) String() string {
	p := e.Path
	if p == "" {
		p = "<root>"
	}
	return fmt.Sprintf("%s (%s)", p, e.Kind)
}

// DefaultManifest 返回游戏的默认资源清单
//
// 顺序即暂存顺序：根目录、data、data/models、maps、maps/megawads、
// wads、instruments，最后是 timidity.cfg 单个文件。
func DefaultManifest() []ManifestEntry {
	return []ManifestEntry{
		{Path: "", Kind: EntryDir},
		{Path: "data", Kind: EntryDir},
		{Path: "data/models", Kind: EntryDir},
		{Path: "maps", Kind: EntryDir},
		{Path: "maps/megawads", Kind: EntryDir},
		{Path: "wads", Kind: EntryDir},
		{Path: "instruments", Kind: EntryDir},
		{Path: "timidity.cfg", Kind: EntryFile},
	}
}

// ValidateManifest 验证资源清单
//
// 检查：
//   - 清单不能为空
//   - 条目类型必须是 dir 或 file
//   - 路径必须是资源包内的相对路径
//   - file 条目不能指向根目录
//   - 同一路径不能重复出现
func ValidateManifest(entries []ManifestEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("manifest is empty")
	}

	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Kind != EntryDir && e.Kind != EntryFile {
			return fmt.Errorf("manifest entry %d (%q): unknown kind %q", i, e.Path, e.Kind)
		}

		p, err := embedded.Clean(e.Path)
		if err != nil {
			return fmt.Errorf("manifest entry %d: %w", i, err)
		}
		if e.Kind == EntryFile && p == "." {
			return fmt.Errorf("manifest entry %d: file entry cannot be the bundle root", i)
		}
		if seen[p] {
			return fmt.Errorf("manifest entry %d: duplicate path %q", i, e.Path)
		}
		seen[p] = true
	}
	return nil
}

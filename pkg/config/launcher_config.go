package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StagePolicy 暂存目标文件已存在时的处理策略
type StagePolicy string

const (
	// PolicyOverwrite 每次启动都重写所有文件
	PolicyOverwrite StagePolicy = "overwrite"
	// PolicySkipIfPresent 目标文件存在时不做任何处理
	PolicySkipIfPresent StagePolicy = "skip-if-present"
	// PolicyCompare 仅在内容与资源包不一致时重写
	PolicyCompare StagePolicy = "compare"
)

// ParseStagePolicy 解析暂存策略字符串，空字符串返回默认策略 compare
func ParseStagePolicy(s string) (StagePolicy, error) {
	switch StagePolicy(s) {
	case "":
		return PolicyCompare, nil
	case PolicyOverwrite, PolicySkipIfPresent, PolicyCompare:
		return StagePolicy(s), nil
	}
	return "", fmt.Errorf("unknown stage policy %q (want overwrite, skip-if-present or compare)", s)
}

// DefaultEngineEntry 引擎库导出的入口符号
const DefaultEngineEntry = "SDL_main"

// LauncherConfig 启动器配置
//
// 配置文件示例（launcher.yaml）:
//
//	stagingDir: ""
//	policy: compare
//	libraries: [SDL2, mpg123, SDL2_mixer, enet, Doom2DF]
//	engineLibrary: Doom2DF
//	libraryDir: lib
//	engineEntry: SDL_main
//	manifest:
//	  - {path: "", kind: dir}
//	  - {path: timidity.cfg, kind: file}
//
// 未出现在文件中的字段保留默认值。
type LauncherConfig struct {
	// StagingDir 暂存目录，为空时使用平台默认位置
	StagingDir string `yaml:"stagingDir"`

	// Policy 目标文件已存在时的处理策略
	Policy StagePolicy `yaml:"policy"`

	// Libraries 按加载顺序声明的原生库
	Libraries []string `yaml:"libraries"`

	// EngineLibrary 引擎库名称，必须是 Libraries 的最后一项
	EngineLibrary string `yaml:"engineLibrary"`

	// LibraryDir 原生库所在目录，为空时交给系统动态链接器搜索
	LibraryDir string `yaml:"libraryDir"`

	// EngineEntry 引擎库中的入口符号
	EngineEntry string `yaml:"engineEntry"`

	// EngineArgs 传递给引擎入口的附加参数
	EngineArgs []string `yaml:"engineArgs,omitempty"`

	// Manifest 资源清单，按顺序暂存
	Manifest []ManifestEntry `yaml:"manifest"`
}

// DefaultLauncherConfig 返回默认启动器配置
func DefaultLauncherConfig() *LauncherConfig {
	return &LauncherConfig{
		Policy:        PolicyCompare,
		Libraries:     DefaultLibraries(),
		EngineLibrary: EngineLibrary,
		EngineEntry:   DefaultEngineEntry,
		Manifest:      DefaultManifest(),
	}
}

// LoadLauncherConfig 从文件加载启动器配置
//
// 参数:
//   - path: 配置文件路径，为空时直接返回默认配置
//
// 返回:
//   - *LauncherConfig: 合并默认值后的配置
//   - error: 文件读取、解析或验证失败时返回错误
func LoadLauncherConfig(path string) (*LauncherConfig, error) {
	if path == "" {
		return DefaultLauncherConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read launcher config: %w", err)
	}
	return ParseLauncherConfig(data)
}

// ParseLauncherConfig 解析 YAML 格式的启动器配置
func ParseLauncherConfig(data []byte) (*LauncherConfig, error) {
	cfg := DefaultLauncherConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse launcher config: %w", err)
	}

	if cfg.Policy == "" {
		cfg.Policy = PolicyCompare
	}
	if cfg.EngineEntry == "" {
		cfg.EngineEntry = DefaultEngineEntry
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launcher config: %w", err)
	}
	return cfg, nil
}

// Validate 验证配置有效性
func (c *LauncherConfig) Validate() error {
	if _, err := ParseStagePolicy(string(c.Policy)); err != nil {
		return err
	}
	if err := ValidateLibraryOrder(c.Libraries, c.EngineLibrary); err != nil {
		return fmt.Errorf("libraries: %w", err)
	}
	if c.EngineEntry == "" {
		return errors.New("engine entry symbol is empty")
	}
	if err := ValidateManifest(c.Manifest); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

package config

import "fmt"

// EngineLibrary 游戏引擎原生库名称
const EngineLibrary = "Doom2DF"

// DefaultLibraries 返回宿主在调用引擎入口前必须加载的原生库列表
//
// 顺序即加载顺序，后面的库可能依赖前面库导出的符号：
// SDL2 <- mpg123 <- SDL2_mixer <- enet <- Doom2DF
func DefaultLibraries() []string {
	return []string{
		"SDL2",
		"mpg123",
		"SDL2_mixer",
		"enet",
		EngineLibrary,
	}
}

// ValidateLibraryOrder 验证原生库声明顺序
//
// 引擎库必须出现且只能出现在最后，库名不能为空或重复。
func ValidateLibraryOrder(libraries []string, engine string) error {
	if len(libraries) == 0 {
		return fmt.Errorf("library list is empty")
	}
	if engine == "" {
		return fmt.Errorf("engine library name is empty")
	}

	seen := make(map[string]bool, len(libraries))
	for i, name := range libraries {
		if name == "" {
			return fmt.Errorf("library %d has an empty name", i)
		}
		if seen[name] {
			return fmt.Errorf("library %q declared twice", name)
		}
		seen[name] = true
	}

	if last := libraries[len(libraries)-1]; last != engine {
		if seen[engine] {
			return fmt.Errorf("engine library %q must be loaded last, got %q last", engine, last)
		}
		return fmt.Errorf("engine library %q is not declared", engine)
	}
	return nil
}

package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrLibraryNotFound 声明的原生库在库目录中不存在
var ErrLibraryNotFound = errors.New("native library not found")

// LibraryFileName 返回当前平台上原生库的文件名
//
//	linux/android/freebsd: libSDL2.so
//	darwin/ios:            libSDL2.dylib
//	windows:               SDL2.dll
func LibraryFileName(name string) string {
	return libraryFileName(runtime.GOOS, name)
}

func libraryFileName(goos, name string) string {
	switch goos {
	case "windows":
		return name + ".dll"
	case "darwin", "ios":
		return "lib" + name + ".dylib"
	}
	return "lib" + name + ".so"
}

// ResolveLibraries 按声明顺序把库名解析为可加载的路径
//
// dir 为空时只返回文件名，由系统动态链接器搜索；否则要求每个库都
// 存在于 dir 中。
func ResolveLibraries(dir string, names []string) ([]string, error) {
	paths := make([]string, 0, len(names))
	for _, name := range names {
		file := LibraryFileName(name)
		if dir == "" {
			paths = append(paths, file)
			continue
		}

		p := filepath.Join(dir, file)
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%s)", ErrLibraryNotFound, name, p)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrLibraryNotFound, p)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// loaderPathVar 返回动态链接器搜索路径的环境变量名
func loaderPathVar(goos string) string {
	switch goos {
	case "windows":
		return "PATH"
	case "darwin", "ios":
		return "DYLD_LIBRARY_PATH"
	}
	return "LD_LIBRARY_PATH"
}

// prependLoaderPath 返回把 dir 加到动态链接器搜索路径最前面的环境变量
func prependLoaderPath(goos, dir string, environ []string) string {
	key := loaderPathVar(goos)
	prefix := key + "="
	for _, kv := range environ {
		if strings.HasPrefix(kv, prefix) && len(kv) > len(prefix) {
			return prefix + dir + string(os.PathListSeparator) + kv[len(prefix):]
		}
	}
	return prefix + dir
}

//go:build darwin || freebsd || linux

package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/ebitengine/purego"
)

// NativeRuntime 在当前进程中加载原生库并调用引擎入口
//
// 每个库都以 RTLD_NOW|RTLD_GLOBAL 打开，后加载的库可以解析先加载库
// 导出的符号，因此声明顺序必须满足依赖关系。
type NativeRuntime struct {
	// LibraryDir 原生库目录，为空时由系统动态链接器搜索
	LibraryDir string

	// Entry 引擎库中的入口符号，签名为 int (*)(int argc, char **argv)
	Entry string

	// Args 传给引擎入口的参数（不含 argv[0]）
	Args []string

	// WorkDir 调用入口前切换到的工作目录（暂存目录）
	WorkDir string

	handles []uintptr
}

// LoadLibraries 按顺序打开原生库
func (n *NativeRuntime) LoadLibraries(names []string) error {
	if len(names) == 0 {
		return errors.New("no native libraries declared")
	}

	paths, err := ResolveLibraries(n.LibraryDir, names)
	if err != nil {
		return err
	}

	for i, p := range paths {
		handle, err := purego.Dlopen(p, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", names[i], err)
		}
		n.handles = append(n.handles, handle)
		log.Printf("[Host] Loaded %s", p)
	}
	return nil
}

// Main 调用引擎入口
//
// 入口在当前 OS 线程上同步执行，无法被 ctx 取消；拆除由宿主的
// OnStop 强制终止进程完成。
func (n *NativeRuntime) Main(ctx context.Context) error {
	if len(n.handles) == 0 {
		return errors.New("native libraries not loaded")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entryName := n.Entry
	if entryName == "" {
		entryName = "SDL_main"
	}
	engine := n.handles[len(n.handles)-1]
	sym, err := purego.Dlsym(engine, entryName)
	if err != nil {
		return fmt.Errorf("entry symbol %s: %w", entryName, err)
	}

	var entry func(argc int32, argv **byte) int32
	purego.RegisterFunc(&entry, sym)

	if n.WorkDir != "" {
		if err := os.Chdir(n.WorkDir); err != nil {
			return fmt.Errorf("failed to enter staging dir: %w", err)
		}
	}

	args := append([]string{os.Args[0]}, n.Args...)
	argv, bufs := cStrings(args)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	status := entry(int32(len(args)), &argv[0])
	runtime.KeepAlive(bufs)
	runtime.KeepAlive(argv)

	if status != 0 {
		return fmt.Errorf("engine exited with status %d", status)
	}
	return nil
}

// cStrings 构造以 NULL 结尾的 C 字符串数组
func cStrings(args []string) ([]*byte, [][]byte) {
	bufs := make([][]byte, len(args))
	argv := make([]*byte, len(args)+1)
	for i, a := range args {
		bufs[i] = append([]byte(a), 0)
		argv[i] = &bufs[i][0]
	}
	return argv, bufs
}

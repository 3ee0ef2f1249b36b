package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// ProcessRuntime 以独立进程运行引擎可执行文件
//
// 用于引擎以可执行文件而非共享库发布的平台。LoadLibraries 只验证
// 声明的库存在，并把库目录加入子进程的动态链接器搜索路径。
type ProcessRuntime struct {
	// Binary 引擎可执行文件
	Binary string

	// Args 传给引擎的参数
	Args []string

	// LibraryDir 原生库目录，为空时不做验证
	LibraryDir string

	// WorkDir 子进程工作目录（暂存目录）
	WorkDir string

	// Stdout/Stderr 子进程输出，为 nil 时继承当前进程
	Stdout io.Writer
	Stderr io.Writer

	env    []string
	loaded bool

	mu  sync.Mutex
	cmd *exec.Cmd
}

// LoadLibraries 验证原生库存在并准备子进程环境
func (p *ProcessRuntime) LoadLibraries(names []string) error {
	if _, err := ResolveLibraries(p.LibraryDir, names); err != nil {
		return err
	}
	if p.LibraryDir != "" {
		p.env = append(p.env, prependLoaderPath(runtime.GOOS, p.LibraryDir, os.Environ()))
	}
	p.loaded = true
	return nil
}

// Main 运行引擎进程并等待其退出，ctx 取消时杀死子进程
func (p *ProcessRuntime) Main(ctx context.Context) error {
	if !p.loaded {
		return errors.New("native libraries not loaded")
	}
	if p.Binary == "" {
		return errors.New("engine binary not set")
	}

	cmd := exec.CommandContext(ctx, p.Binary, p.Args...)
	cmd.Dir = p.WorkDir
	cmd.Env = append(os.Environ(), p.env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = p.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	err := cmd.Wait()

	p.mu.Lock()
	p.cmd = nil
	p.mu.Unlock()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("engine exited with status %d", exitErr.ExitCode())
	}
	return err
}

// Close 杀死仍在运行的引擎进程
func (p *ProcessRuntime) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

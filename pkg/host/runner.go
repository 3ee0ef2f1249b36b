// Package host 提供运行生命周期垫片的宿主
//
// 宿主负责在正确的时机调用垫片的钩子：先执行宿主自身的默认启动处理，
// 再调用 OnStart；OnStart 完全返回后按声明顺序加载原生库并调用引擎入口；
// 引擎返回（或收到终止信号）后执行宿主的默认拆除处理，最后调用 OnStop。
// 任何致命错误都先通过 OnFailure 告知垫片，再拆除。
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/d2df/d2df-launcher/pkg/bootstrap"
)

// Runtime 原生引擎运行时
type Runtime interface {
	// LoadLibraries 按顺序加载原生库，后加载的库可以使用先加载库的符号
	LoadLibraries(names []string) error

	// Main 调用引擎入口并阻塞到引擎返回
	Main(ctx context.Context) error
}

// Runner 宿主运行器
type Runner struct {
	// Runtime 原生引擎运行时
	Runtime Runtime

	// Report 报告致命错误，为 nil 时写入日志
	Report func(err error)

	// HandleSignals 为 true 时 SIGINT/SIGTERM 触发拆除
	HandleSignals bool

	teardownOnce sync.Once
}

// Run 按宿主生命周期运行钩子
//
// 返回的错误只在 OnStop 没有终止进程时可见（例如测试中替换了退出函数）。
func (r *Runner) Run(ctx context.Context, hooks bootstrap.Hooks) error {
	if r.HandleSignals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	// 原生引擎入口无法取消，收到信号时直接拆除
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			log.Printf("[Host] Context done (%v), tearing down", ctx.Err())
			r.teardown(hooks)
		case <-done:
		}
	}()

	err := r.run(ctx, hooks)
	if err != nil {
		r.report(err)
		if hooks.OnFailure != nil {
			hooks.OnFailure(err)
		}
	}
	r.teardown(hooks)
	return err
}

func (r *Runner) run(ctx context.Context, hooks bootstrap.Hooks) error {
	if err := r.defaultStart(); err != nil {
		return fmt.Errorf("host start: %w", err)
	}

	if hooks.OnStart != nil {
		if err := hooks.OnStart(ctx); err != nil {
			return fmt.Errorf("startup failed: %w", err)
		}
	}

	log.Printf("[Host] Loading native libraries: %v", hooks.Libraries)
	if err := r.Runtime.LoadLibraries(hooks.Libraries); err != nil {
		return fmt.Errorf("failed to load native libraries: %w", err)
	}

	log.Printf("[Host] Entering engine main")
	if err := r.Runtime.Main(ctx); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	log.Printf("[Host] Engine main returned")
	return nil
}

// defaultStart 宿主默认启动处理
func (r *Runner) defaultStart() error {
	if r.Runtime == nil {
		return errors.New("no engine runtime configured")
	}
	return nil
}

// teardown 宿主默认拆除处理后调用 OnStop，只执行一次
func (r *Runner) teardown(hooks bootstrap.Hooks) {
	r.teardownOnce.Do(func() {
		if c, ok := r.Runtime.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("[Host] Warning: runtime close: %v", err)
			}
		}
		if hooks.OnStop != nil {
			hooks.OnStop()
		}
	})
}

func (r *Runner) report(err error) {
	if r.Report != nil {
		r.Report(err)
		return
	}
	log.Printf("[Host] Fatal: %v", err)
}

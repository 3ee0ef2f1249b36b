// Package bootstrap 实现游戏的生命周期垫片
//
// 垫片在进程启动时把资源包中的游戏资源暂存到引擎可见的目录，
// 向宿主声明需要加载的原生库，并在进程拆除时强制立即退出。
//
// 宿主通过 Hooks() 获取生命周期钩子，而不是继承某个宿主基类。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/stager"
	"github.com/d2df/d2df-launcher/pkg/utils"
)

// ErrTerminated 进程已经进入终止状态后再调用生命周期回调时返回
var ErrTerminated = errors.New("bootstrap: process already terminated")

// State 垫片的生命周期状态
type State int

const (
	// StateCreated 尚未开始暂存
	StateCreated State = iota
	// StateStaging 正在暂存资源
	StateStaging
	// StateRunning 暂存完成，引擎可以运行
	StateRunning
	// StateFailed 暂存失败（致命的启动错误）
	StateFailed
	// StateTerminated 已强制终止
	StateTerminated
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateStaging:
		return "Staging"
	case StateRunning:
		return "Running"
	case StateFailed:
		return "Failed"
	case StateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stager 资源暂存接口，*stager.Stager 实现了该接口
type Stager interface {
	Stage(ctx context.Context, manifest []config.ManifestEntry) (stager.Result, error)
}

// Hooks 交给宿主的生命周期钩子
type Hooks struct {
	// Libraries 宿主在调用引擎入口前按顺序加载的原生库
	Libraries []string

	// OnStart 进程启动时调用，返回错误表示致命的启动失败
	OnStart func(ctx context.Context) error

	// OnFailure 宿主在 OnStart 之外遇到致命错误（原生库加载失败、
	// 引擎异常退出）时调用，之后的 OnStop 以非零状态退出
	OnFailure func(err error)

	// OnStop 进程拆除时调用，不会返回（默认实现直接退出进程）
	OnStop func()
}

// Options 垫片选项
type Options struct {
	// Manifest 资源清单，为 nil 时使用 config.DefaultManifest()
	Manifest []config.ManifestEntry

	// Libraries 原生库列表，为 nil 时使用 config.DefaultLibraries()
	Libraries []string

	// StagingDir 暂存目录，非空时 OnStart 在暂存前确保它存在且可写
	StagingDir string

	// Exit 终止进程的函数，为 nil 时使用 os.Exit。
	// 正常拆除时退出码为 0，启动失败或宿主报告失败后拆除时为 1
	Exit func(code int)
}

// Shim 生命周期垫片
type Shim struct {
	mu         sync.Mutex
	state      State
	stager     Stager
	manifest   []config.ManifestEntry
	libraries  []string
	stagingDir string
	exit       func(code int)
	result     stager.Result
	startErr   error
}

// New 创建生命周期垫片
func New(s Stager, opts Options) *Shim {
	manifest := opts.Manifest
	if manifest == nil {
		manifest = config.DefaultManifest()
	}
	libraries := opts.Libraries
	if libraries == nil {
		libraries = config.DefaultLibraries()
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &Shim{
		state:     StateCreated,
		stager:    s,
		manifest:   manifest,
		libraries:  libraries,
		stagingDir: opts.StagingDir,
		exit:       exit,
	}
}

// Libraries 返回原生库声明（副本）
func (s *Shim) Libraries() []string {
	return append([]string(nil), s.libraries...)
}

// State 返回当前状态
func (s *Shim) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result 返回最近一次暂存的结果
func (s *Shim) Result() stager.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err 返回启动错误
func (s *Shim) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startErr
}

// OnStart 暂存资源清单中的所有条目
//
// 成功后进入 Running 状态，宿主随后加载原生库并调用引擎入口；
// 失败时进入 Failed 状态并返回错误，宿主必须将其视为致命错误。
// 只能调用一次。
func (s *Shim) OnStart(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateTerminated:
		s.mu.Unlock()
		return ErrTerminated
	case StateCreated:
	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("bootstrap: OnStart called twice (state %s)", st)
	}
	s.state = StateStaging
	s.mu.Unlock()

	result, err := s.stage(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	// 暂存期间已被拆除
	if s.state == StateTerminated {
		return ErrTerminated
	}
	// 暂存期间宿主已报告失败
	if s.state == StateFailed && err == nil {
		return s.startErr
	}
	if err != nil {
		s.state = StateFailed
		s.startErr = err
		log.Printf("[Shim] Startup failed: %v", err)
		return err
	}

	s.state = StateRunning
	log.Printf("[Shim] Assets staged, handing off to engine (libraries: %v)", s.libraries)
	return nil
}

// stage 确保暂存目录可写后暂存资源清单
func (s *Shim) stage(ctx context.Context) (stager.Result, error) {
	if s.stagingDir != "" {
		if err := utils.EnsureWritableDir(s.stagingDir); err != nil {
			return stager.Result{}, err
		}
	}
	if s.stager == nil {
		return stager.Result{}, errors.New("bootstrap: no asset stager")
	}
	log.Printf("[Shim] Staging %d manifest entries", len(s.manifest))
	return s.stager.Stage(ctx, s.manifest)
}

// Fail 记录宿主遇到的致命错误
//
// 垫片进入 Failed 状态，之后的 OnStop 以状态码 1 退出。已终止时无效。
func (s *Shim) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		return
	}
	s.state = StateFailed
	if s.startErr == nil {
		s.startErr = err
	}
	log.Printf("[Shim] Host reported fatal error: %v", err)
}

// OnStop 无条件立即终止进程
//
// 不这样做时，残留的原生引擎和音频库状态会带入下一次启动，
// 造成崩溃或卡死。无论之前处于什么状态都必须执行。
// 终止之后的所有生命周期回调都不再生效。
func (s *Shim) OnStop() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateTerminated
	s.mu.Unlock()

	// 启动失败或宿主报告失败时以非零状态退出
	code := 0
	if prev == StateFailed {
		code = 1
	}
	log.Printf("[Shim] Teardown from state %s, terminating process", prev)
	s.exit(code)
}

// Hooks 返回交给宿主的生命周期钩子
func (s *Shim) Hooks() Hooks {
	return Hooks{
		Libraries: s.Libraries(),
		OnStart:   s.OnStart,
		OnFailure: s.Fail,
		OnStop:    s.OnStop,
	}
}

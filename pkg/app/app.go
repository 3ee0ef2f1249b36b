// Package app 提供启动器的启动窗口
//
// 启动窗口在主线程上同步执行资源暂存。暂存期间显示提示；成功后窗口
// 关闭，控制权交给原生引擎；失败时保留窗口显示错误信息，直到用户
// 关闭窗口。
package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// 启动窗口的逻辑尺寸
const (
	ScreenWidth  = 480
	ScreenHeight = 200
)

// 每行最多显示的字符数（调试字体宽 6 像素）
const maxLineChars = (ScreenWidth - 20) / 6

// Config 定义启动窗口配置
type Config struct {
	// Title 窗口标题
	Title string
	// StagingDir 暂存目录（仅用于显示）
	StagingDir string
}

// phase 启动窗口所处阶段
type phase int

const (
	phaseWaiting phase = iota // 等待第一帧绘制完成
	phaseStaging              // 本帧执行暂存
	phaseDone                 // 暂存成功
	phaseFailed               // 暂存失败，显示错误
)

// App 启动窗口，实现 ebiten.Game 接口
type App struct {
	cfg   Config
	ctx   context.Context
	start func(ctx context.Context) error

	phase phase
	err   error

	// closing 返回用户是否请求关闭窗口
	closing func() bool
}

// NewApp 创建启动窗口
//
// 参数：
//   - ctx: 传给 start 的上下文
//   - cfg: 窗口配置
//   - start: 在主线程上同步执行的启动函数（通常是 OnStart 钩子）
func NewApp(ctx context.Context, cfg Config, start func(ctx context.Context) error) *App {
	return &App{
		cfg:     cfg,
		ctx:     ctx,
		start:   start,
		closing: ebiten.IsWindowBeingClosed,
	}
}

// Err 返回启动错误
func (a *App) Err() error {
	return a.err
}

// Update 推进启动流程
// 第一帧只绘制提示，第二帧执行暂存，保证用户在暂存阻塞期间能看到提示
func (a *App) Update() error {
	switch a.phase {
	case phaseWaiting:
		a.phase = phaseStaging

	case phaseStaging:
		if err := a.start(a.ctx); err != nil {
			a.err = err
			a.phase = phaseFailed
			log.Printf("[App] Startup failed: %v", err)
			return nil
		}
		a.phase = phaseDone
		return ebiten.Termination

	case phaseDone:
		return ebiten.Termination

	case phaseFailed:
		if a.closing() {
			return ebiten.Termination
		}
	}
	return nil
}

// Draw 绘制启动窗口
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 24, G: 16, B: 16, A: 255})
	ebitenutil.DebugPrintAt(screen, a.message(), 10, 10)
}

// Layout 返回启动窗口的逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// message 返回当前阶段要显示的文本
func (a *App) message() string {
	switch a.phase {
	case phaseFailed:
		return "Doom2DF failed to start:\n\n" + wrap(a.err.Error(), maxLineChars) +
			"\n\nClose this window to exit."
	case phaseDone:
		return "Starting engine..."
	}
	msg := "Preparing game data..."
	if a.cfg.StagingDir != "" {
		msg += "\n\n" + wrap(a.cfg.StagingDir, maxLineChars)
	}
	return msg
}

// wrap 按字符数折行
func wrap(s string, width int) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			b.WriteString(string(runes[:width]))
			b.WriteByte('\n')
			runes = runes[width:]
		}
		b.WriteString(string(runes))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// WithSplash 包装启动钩子，使其在启动窗口中执行
//
// 返回的函数打开窗口并阻塞到窗口关闭，返回启动钩子的错误。
func WithSplash(cfg Config, start func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		a := NewApp(ctx, cfg, start)

		title := cfg.Title
		if title == "" {
			title = "Doom2DF"
		}
		ebiten.SetWindowTitle(title)
		ebiten.SetWindowSize(ScreenWidth*2, ScreenHeight*2)
		ebiten.SetWindowClosingHandled(true)

		if err := ebiten.RunGame(a); err != nil && !errors.Is(err, ebiten.Termination) {
			if a.err != nil {
				return a.err
			}
			return fmt.Errorf("splash window: %w", err)
		}
		return a.err
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/d2df/d2df-launcher/pkg/app"
	"github.com/d2df/d2df-launcher/pkg/bootstrap"
	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/embedded"
	"github.com/d2df/d2df-launcher/pkg/host"
	"github.com/d2df/d2df-launcher/pkg/stager"
	"github.com/d2df/d2df-launcher/pkg/utils"
)

// appName gdata 存储使用的应用名
const appName = "doom2df"

var (
	configPath = flag.String("config", "", "启动器配置文件路径（YAML），为空使用默认配置")
	bundleDir  = flag.String("bundle", "assets", "资源包目录（使用 -tags bundled 构建时忽略）")
	stagingDir = flag.String("staging-dir", "", "暂存目录，覆盖配置文件")
	policy     = flag.String("policy", "", "暂存策略: overwrite, skip-if-present, compare")
	libraryDir = flag.String("lib-dir", "", "原生库目录，覆盖配置文件")
	processBin = flag.String("process", "", "以独立进程运行的引擎可执行文件（不在本进程加载原生库）")
	headless   = flag.Bool("headless", false, "不显示启动窗口")
	verbose    = flag.Bool("verbose", false, "显示详细日志")
)

func main() {
	flag.Parse()

	// 配置日志输出
	if !*verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fatalf("配置加载失败: %v", err)
	}

	bundle, err := openBundle(*bundleDir)
	if err != nil {
		fatalf("资源包打开失败: %v", err)
	}
	embedded.Init(bundle)

	root := cfg.StagingDir
	if root == "" {
		if root, err = utils.DefaultStagingDir(); err != nil {
			fatalf("无法确定暂存目录: %v", err)
		}
	}
	log.Printf("[Main] Staging dir: %s (policy %s)", root, cfg.Policy)

	st := stager.New(bundle, root, stager.Options{
		Policy: cfg.Policy,
		Index:  stager.OpenAppIndex(appName, root),
	})
	shim := bootstrap.New(st, bootstrap.Options{
		Manifest:   cfg.Manifest,
		Libraries:  cfg.Libraries,
		StagingDir: root,
	})

	hooks := shim.Hooks()
	if !*headless {
		hooks.OnStart = app.WithSplash(app.Config{StagingDir: root}, hooks.OnStart)
	}

	runner := &host.Runner{
		Runtime:       newRuntime(cfg, root),
		HandleSignals: true,
		Report: func(err error) {
			fmt.Fprintf(os.Stderr, "doom2df: %v\n", err)
		},
	}

	// 拆除时 OnStop 以相应的退出码终止进程，Run 不会返回
	runner.Run(context.Background(), hooks)
}

// loadConfig 加载配置文件并应用命令行覆盖
func loadConfig() (*config.LauncherConfig, error) {
	cfg, err := config.LoadLauncherConfig(*configPath)
	if err != nil {
		return nil, err
	}

	if *stagingDir != "" {
		cfg.StagingDir = *stagingDir
	}
	if *libraryDir != "" {
		cfg.LibraryDir = *libraryDir
	}
	if *policy != "" {
		p, err := config.ParseStagePolicy(*policy)
		if err != nil {
			return nil, err
		}
		cfg.Policy = p
	}
	return cfg, nil
}

// newRuntime 根据命令行选择引擎运行时
func newRuntime(cfg *config.LauncherConfig, root string) host.Runtime {
	if *processBin != "" {
		return &host.ProcessRuntime{
			Binary:     *processBin,
			Args:       cfg.EngineArgs,
			LibraryDir: cfg.LibraryDir,
			WorkDir:    root,
		}
	}
	return &host.NativeRuntime{
		LibraryDir: cfg.LibraryDir,
		Entry:      cfg.EngineEntry,
		Args:       cfg.EngineArgs,
		WorkDir:    root,
	}
}

// fatalf 输出错误并退出（日志可能已被关闭，因此直接写 stderr）
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "doom2df: "+format+"\n", args...)
	os.Exit(1)
}

// Package mobile 提供 Android 绑定入口
//
// 此包用于构建 Android (.aar) 包，由 SDLActivity 子类在生命周期回调中
// 调用。资源包在使用 -tags mobile 构建时嵌入。
//
//	gomobile bind -target android -tags mobile -androidapi 23 -javapkg org.d2df -o build/android/d2df.aar -v ./mobile
//
// Java 端：
//
//	@Override protected String[] getLibraries() {
//	    return Mobile.libraries().split(",");
//	}
//	@Override protected void onCreate(Bundle state) {
//	    try {
//	        Mobile.onStart(getFilesDir().getAbsolutePath());
//	    } catch (Exception e) {
//	        Log.e("Doom2DF", "startup failed", e);
//	    }
//	    super.onCreate(state);
//	}
//	@Override protected void onStop() {
//	    super.onStop();
//	    Mobile.onStop();
//	}
package mobile

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/d2df/d2df-launcher/pkg/bootstrap"
	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/embedded"
	"github.com/d2df/d2df-launcher/pkg/stager"
	"github.com/d2df/d2df-launcher/pkg/utils"
)

// appName gdata 存储使用的应用名
const appName = "doom2df"

// ErrNoBundle 构建时没有嵌入资源包
var ErrNoBundle = errors.New("mobile: asset bundle not embedded, build with -tags mobile")

var (
	mu   sync.Mutex
	shim *bootstrap.Shim

	// 测试中替换
	openBundle = bundleSource
	openIndex  = stager.OpenAppIndex
	exit       = os.Exit
)

// Libraries 返回按加载顺序排列的原生库名，以逗号分隔，引擎库在最后
func Libraries() string {
	return strings.Join(config.DefaultLibraries(), ",")
}

// OnStart 把资源包暂存到 stagingDir
//
// stagingDir 通常是 Context.getFilesDir()，为空时使用平台默认目录。
// 返回错误表示致命的启动失败，之后的 OnStop 以状态码 1 退出。
// 只能调用一次。
func OnStart(stagingDir string) error {
	s, err := prepare(stagingDir)
	if err != nil {
		return err
	}
	return s.OnStart(context.Background())
}

// prepare 创建进程唯一的垫片，已创建时直接返回
func prepare(stagingDir string) (*bootstrap.Shim, error) {
	mu.Lock()
	defer mu.Unlock()

	if shim != nil {
		return shim, nil
	}

	if stagingDir == "" {
		dir, err := utils.DefaultStagingDir()
		if err != nil {
			shim = failedShim(err)
			return nil, err
		}
		stagingDir = dir
	}

	bundle, err := openBundle()
	if err != nil {
		shim = failedShim(err)
		return nil, err
	}
	embedded.Init(bundle)

	log.Printf("[Mobile] Staging dir: %s", stagingDir)
	st := stager.New(bundle, stagingDir, stager.Options{
		Index: openIndex(appName, stagingDir),
	})
	shim = bootstrap.New(st, bootstrap.Options{
		StagingDir: stagingDir,
		Exit:       exit,
	})
	return shim, nil
}

// failedShim 创建已处于失败状态的垫片，拆除时以状态码 1 退出
func failedShim(err error) *bootstrap.Shim {
	log.Printf("[Mobile] Startup failed: %v", err)
	s := bootstrap.New(nil, bootstrap.Options{Exit: exit})
	s.Fail(err)
	return s
}

// OnStop 立即终止进程
//
// 在 OnStart 之前调用同样会终止进程，之后的 OnStart 返回
// bootstrap.ErrTerminated。
func OnStop() {
	mu.Lock()
	if shim == nil {
		shim = bootstrap.New(nil, bootstrap.Options{Exit: exit})
	}
	s := shim
	mu.Unlock()

	s.OnStop()
}

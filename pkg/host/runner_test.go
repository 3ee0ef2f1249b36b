package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/d2df/d2df-launcher/pkg/bootstrap"
	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/stager"
)

// stagerFunc 把函数适配为 bootstrap.Stager
type stagerFunc func()

func (f stagerFunc) Stage(ctx context.Context, manifest []config.ManifestEntry) (stager.Result, error) {
	f()
	return stager.Result{}, nil
}

// fakeRuntime 记录调用顺序的运行时
type fakeRuntime struct {
	events   *[]string
	loadErr  error
	mainErr  error
	mainWait <-chan struct{}
	loaded   []string
	closed   bool
}

func (f *fakeRuntime) LoadLibraries(names []string) error {
	*f.events = append(*f.events, "load")
	f.loaded = names
	return f.loadErr
}

func (f *fakeRuntime) Main(ctx context.Context) error {
	*f.events = append(*f.events, "main")
	if f.mainWait != nil {
		<-f.mainWait
	}
	return f.mainErr
}

func (f *fakeRuntime) Close() error {
	f.closed = true
	return nil
}

// recordingHooks 返回把事件追加到 events 的钩子
func recordingHooks(events *[]string, startErr error) bootstrap.Hooks {
	return bootstrap.Hooks{
		Libraries: []string{"SDL2", "mpg123", "SDL2_mixer", "enet", "Doom2DF"},
		OnStart: func(ctx context.Context) error {
			*events = append(*events, "start")
			return startErr
		},
		OnStop: func() {
			*events = append(*events, "stop")
		},
	}
}

func TestRunnerLifecycleOrder(t *testing.T) {
	var events []string
	rt := &fakeRuntime{events: &events}
	r := &Runner{Runtime: rt}

	if err := r.Run(context.Background(), recordingHooks(&events, nil)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"start", "load", "main", "stop"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if rt.loaded[len(rt.loaded)-1] != "Doom2DF" {
		t.Errorf("libraries passed out of order: %v", rt.loaded)
	}
	if !rt.closed {
		t.Error("host default teardown should close the runtime")
	}
}

func TestRunnerStartupFailure(t *testing.T) {
	var events []string
	var reported error
	startErr := errors.New("asset missing")
	r := &Runner{
		Runtime: &fakeRuntime{events: &events},
		Report:  func(err error) { reported = err },
	}

	err := r.Run(context.Background(), recordingHooks(&events, startErr))
	if !errors.Is(err, startErr) {
		t.Fatalf("Run() = %v, want %v", err, startErr)
	}
	if !errors.Is(reported, startErr) {
		t.Errorf("fatal error should be reported, got %v", reported)
	}

	// 暂存失败后不加载库、不进入引擎，但仍然拆除
	want := []string{"start", "stop"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRunnerLibraryLoadFailure(t *testing.T) {
	var events []string
	loadErr := errors.New("libenet.so: cannot open shared object file")
	r := &Runner{
		Runtime: &fakeRuntime{events: &events, loadErr: loadErr},
		Report:  func(error) {},
	}

	err := r.Run(context.Background(), recordingHooks(&events, nil))
	if !errors.Is(err, loadErr) {
		t.Fatalf("Run() = %v, want %v", err, loadErr)
	}
	want := []string{"start", "load", "stop"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRunnerEngineFailureStillTearsDown(t *testing.T) {
	var events []string
	r := &Runner{
		Runtime: &fakeRuntime{events: &events, mainErr: errors.New("engine exited with status 1")},
		Report:  func(error) {},
	}

	if err := r.Run(context.Background(), recordingHooks(&events, nil)); err == nil {
		t.Fatal("expected engine error")
	}
	if events[len(events)-1] != "stop" {
		t.Errorf("teardown must run after abnormal engine exit, events = %v", events)
	}
}

func TestRunnerCancelTearsDownOnce(t *testing.T) {
	var events []string
	release := make(chan struct{})
	stopped := make(chan struct{})
	stops := 0

	hooks := bootstrap.Hooks{
		Libraries: []string{"Doom2DF"},
		OnStart:   func(context.Context) error { return nil },
		OnStop: func() {
			stops++
			close(stopped)
		},
	}
	r := &Runner{
		Runtime: &fakeRuntime{events: &events, mainWait: release},
		Report:  func(error) {},
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx, hooks) }()

	// 引擎运行中取消，宿主立即拆除
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown did not run after cancellation")
	}

	close(release)
	select {
	case <-result:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
	if stops != 1 {
		t.Errorf("OnStop called %d times, want 1", stops)
	}
}

func TestRunnerWithShim(t *testing.T) {
	var events []string
	exits := 0
	shim := bootstrap.New(stagerFunc(func() { events = append(events, "stage") }), bootstrap.Options{
		Exit: func(int) { exits++ },
	})
	r := &Runner{Runtime: &fakeRuntime{events: &events}}

	if err := r.Run(context.Background(), shim.Hooks()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if exits != 1 {
		t.Errorf("shim teardown should terminate once, got %d", exits)
	}
	if shim.State() != bootstrap.StateTerminated {
		t.Errorf("shim state = %s, want Terminated", shim.State())
	}
	want := []string{"stage", "load", "main"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRunnerWithoutRuntime(t *testing.T) {
	var events []string
	var failed error
	hooks := recordingHooks(&events, nil)
	hooks.OnFailure = func(err error) { failed = err }

	r := &Runner{Report: func(error) {}}
	if err := r.Run(context.Background(), hooks); err == nil {
		t.Fatal("expected error without a runtime")
	}
	if failed == nil {
		t.Error("host start failure should be passed to OnFailure")
	}
	if want := []string{"stop"}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

// TestRunnerExitCodes 测试每种失败都以非零状态终止进程
func TestRunnerExitCodes(t *testing.T) {
	occupied := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(occupied, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		stagingDir string
		stageErr   error
		loadErr    error
		mainErr    error
		wantCode   int
		wantEvents []string
	}{
		{
			name:       "success",
			wantCode:   0,
			wantEvents: []string{"stage", "load", "main"},
		},
		{
			name:       "staging dir not writable",
			stagingDir: filepath.Join(occupied, "staging"),
			wantCode:   1,
		},
		{
			name:       "staging failed",
			stageErr:   errors.New("no space left on device"),
			wantCode:   1,
			wantEvents: []string{"stage"},
		},
		{
			name:       "library load failed",
			loadErr:    errors.New("libSDL2.so: cannot open shared object file"),
			wantCode:   1,
			wantEvents: []string{"stage", "load"},
		},
		{
			name:       "engine failed",
			mainErr:    errors.New("engine exited with status 2"),
			wantCode:   1,
			wantEvents: []string{"stage", "load", "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []string
			var codes []int
			st := &failingStager{events: &events, err: tt.stageErr}
			shim := bootstrap.New(st, bootstrap.Options{
				StagingDir: tt.stagingDir,
				Exit:       func(code int) { codes = append(codes, code) },
			})
			r := &Runner{
				Runtime: &fakeRuntime{events: &events, loadErr: tt.loadErr, mainErr: tt.mainErr},
				Report:  func(error) {},
			}

			r.Run(context.Background(), shim.Hooks())

			if len(codes) != 1 || codes[0] != tt.wantCode {
				t.Errorf("exit codes = %v, want [%d]", codes, tt.wantCode)
			}
			if !reflect.DeepEqual(events, tt.wantEvents) {
				t.Errorf("events = %v, want %v", events, tt.wantEvents)
			}
		})
	}
}

// failingStager 记录调用并返回指定错误的暂存器
type failingStager struct {
	events *[]string
	err    error
}

func (f *failingStager) Stage(ctx context.Context, manifest []config.ManifestEntry) (stager.Result, error) {
	*f.events = append(*f.events, "stage")
	return stager.Result{}, f.err
}

func TestRunnerCancelExitsCleanly(t *testing.T) {
	var events []string
	var codes []int
	release := make(chan struct{})
	exited := make(chan struct{})

	shim := bootstrap.New(&failingStager{events: &events}, bootstrap.Options{
		Exit: func(code int) {
			codes = append(codes, code)
			close(exited)
		},
	})
	r := &Runner{
		Runtime: &fakeRuntime{events: &events, mainWait: release},
		Report:  func(error) {},
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx, shim.Hooks()) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown did not run after cancellation")
	}
	close(release)
	<-result

	if len(codes) != 1 || codes[0] != 0 {
		t.Errorf("exit codes = %v, want [0]", codes)
	}
}

package mobile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/d2df/d2df-launcher/pkg/bootstrap"
	"github.com/d2df/d2df-launcher/pkg/stager"
)

// androidBundle 构造覆盖默认清单的资源包
func androidBundle() fstest.MapFS {
	return fstest.MapFS{
		"data/game.wad":               {Data: []byte("PWAD game data")},
		"data/models/doomer.wad":      {Data: []byte("PWAD doomer model")},
		"maps/megawads/DOOM2.wad":     {Data: []byte("IWAD megawad")},
		"wads/standart.wad":           {Data: []byte("PWAD standart")},
		"instruments/gus/acpiano.pat": {Data: []byte("GF1PATCH110")},
		"timidity.cfg":                {Data: []byte("dir instruments/gus\n")},
	}
}

// setupBinding 替换包级依赖并重置垫片，返回记录退出码的切片
func setupBinding(t *testing.T, bundle fs.FS, bundleErr error) *[]int {
	t.Helper()

	savedBundle, savedIndex, savedExit := openBundle, openIndex, exit
	t.Cleanup(func() {
		openBundle, openIndex, exit = savedBundle, savedIndex, savedExit
		shim = nil
	})

	codes := &[]int{}
	shim = nil
	openBundle = func() (fs.FS, error) { return bundle, bundleErr }
	openIndex = func(_, root string) *stager.Index { return stager.NewMemoryIndex(root) }
	exit = func(code int) { *codes = append(*codes, code) }
	return codes
}

func TestLibraries(t *testing.T) {
	libs := strings.Split(Libraries(), ",")
	want := []string{"SDL2", "mpg123", "SDL2_mixer", "enet", "Doom2DF"}

	if len(libs) != len(want) {
		t.Fatalf("Libraries() = %v, want %v", libs, want)
	}
	for i := range want {
		if libs[i] != want[i] {
			t.Errorf("library %d = %q, want %q", i, libs[i], want[i])
		}
	}
}

func TestOnStartStagesBundle(t *testing.T) {
	codes := setupBinding(t, androidBundle(), nil)
	root := filepath.Join(t.TempDir(), "files")

	if err := OnStart(root); err != nil {
		t.Fatalf("OnStart() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "maps", "megawads", "DOOM2.wad"))
	if err != nil || string(data) != "IWAD megawad" {
		t.Errorf("DOOM2.wad not staged: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(root, "timidity.cfg")); err != nil {
		t.Errorf("timidity.cfg not staged: %v", err)
	}

	if err := OnStart(root); err == nil {
		t.Error("second OnStart should fail")
	}

	OnStop()
	if len(*codes) != 1 || (*codes)[0] != 0 {
		t.Errorf("exit codes = %v, want [0]", *codes)
	}
}

func TestOnStartWithoutBundle(t *testing.T) {
	codes := setupBinding(t, nil, ErrNoBundle)

	if err := OnStart(t.TempDir()); !errors.Is(err, ErrNoBundle) {
		t.Fatalf("OnStart() = %v, want ErrNoBundle", err)
	}

	OnStop()
	if len(*codes) != 1 || (*codes)[0] != 1 {
		t.Errorf("exit codes = %v, want [1]", *codes)
	}
}

func TestOnStartMissingAssets(t *testing.T) {
	bundle := androidBundle()
	delete(bundle, "timidity.cfg")
	codes := setupBinding(t, bundle, nil)

	if err := OnStart(t.TempDir()); !errors.Is(err, stager.ErrEntryMissing) {
		t.Fatalf("OnStart() = %v, want ErrEntryMissing", err)
	}

	OnStop()
	if len(*codes) != 1 || (*codes)[0] != 1 {
		t.Errorf("exit codes = %v, want [1]", *codes)
	}
}

func TestOnStopBeforeStart(t *testing.T) {
	codes := setupBinding(t, androidBundle(), nil)

	OnStop()
	OnStop()
	if len(*codes) != 1 || (*codes)[0] != 0 {
		t.Errorf("exit codes = %v, want a single exit(0)", *codes)
	}

	if err := OnStart(t.TempDir()); !errors.Is(err, bootstrap.ErrTerminated) {
		t.Errorf("OnStart after OnStop = %v, want ErrTerminated", err)
	}
}

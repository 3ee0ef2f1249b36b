//go:build !(darwin || freebsd || linux)

package host

import (
	"context"
	"errors"
	"runtime"
)

var errNativeUnsupported = errors.New("in-process native runtime is not supported on " + runtime.GOOS + ", use -process")

// NativeRuntime 在不支持 dlopen 的平台上不可用
type NativeRuntime struct {
	LibraryDir string
	Entry      string
	Args       []string
	WorkDir    string
}

// LoadLibraries 总是返回错误
func (n *NativeRuntime) LoadLibraries(names []string) error {
	return errNativeUnsupported
}

// Main 总是返回错误
func (n *NativeRuntime) Main(ctx context.Context) error {
	return errNativeUnsupported
}

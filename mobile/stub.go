//go:build !mobile

// stub.go - 非移动端构建时的占位文件
//
// 普通构建不嵌入资源包，OnStart 返回 ErrNoBundle。
// 实际的资源包在 mobile.go 和 embed.go 中，仅在使用 -tags mobile 时编译。
package mobile

import "io/fs"

func bundleSource() (fs.FS, error) {
	return nil, ErrNoBundle
}

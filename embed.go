//go:build bundled

// embed.go - 资源包嵌入声明
//
// 此文件仅在使用 -tags bundled 构建时编译，游戏资源（WAD、地图、
// 音色库、timidity.cfg）放在项目根目录的 assets/ 下。
// 因为 //go:embed 指令只能嵌入当前包目录及其子目录的文件，
// 必须放在项目根目录。
//
//	go build -tags bundled .
package main

import (
	"embed"
	"io/fs"
)

//go:embed all:assets
var assetsFS embed.FS

// openBundle 返回编译进二进制的资源包，dir 参数被忽略
func openBundle(dir string) (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}

//go:build mobile

// embed.go - 移动端资源嵌入声明
//
// 此文件仅在使用 -tags mobile 构建时编译。构建前需要把游戏资源
// （与桌面端 -bundle 目录相同的布局）复制到 mobile/assets/，
// 并生成摘要表以加快启动：
//
//	cp -r assets mobile/assets
//	go run ./cmd/check_bundle -bundle mobile/assets -write-digests
//	gomobile bind -target android -tags mobile ./mobile
package mobile

import "embed"

//go:embed all:assets
var assetsFS embed.FS

//go:build mobile

package mobile

import "io/fs"

// bundleSource 返回编译进 .aar 的资源包
// assetsFS 在 embed.go 中声明
func bundleSource() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}

//go:build !bundled

package main

import (
	"fmt"
	"io/fs"
	"os"
)

// openBundle 返回磁盘上的资源包目录
func openBundle(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

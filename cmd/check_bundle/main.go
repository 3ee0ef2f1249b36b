// check_bundle 检查资源包是否覆盖启动器的资源清单
//
// 用法：
//
//	go run ./cmd/check_bundle -bundle assets [-config launcher.yaml] [-digest] [-write-digests]
//
// 对清单中的每个条目输出文件数和总大小，-digest 时输出每个文件的 SHA-256。
// -write-digests 在资源包根目录生成摘要表（.bundle-digests.yaml），
// 打包前运行一次即可让 compare 策略在启动时跳过读取资源包文件。
// 资源包已有摘要表时会验证其中每一项。
// 存在缺失的必需条目或过期的摘要时以状态码 1 退出。
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/embedded"
	"github.com/d2df/d2df-launcher/pkg/stager"
)

var (
	bundleDir    = flag.String("bundle", "assets", "资源包目录")
	configPath   = flag.String("config", "", "启动器配置文件路径（YAML）")
	digest       = flag.Bool("digest", false, "输出每个文件的 SHA-256")
	writeDigests = flag.Bool("write-digests", false, "在资源包根目录生成摘要表")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadLauncherConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	bundle := os.DirFS(*bundleDir)
	embedded.Init(bundle)

	if *writeDigests {
		if err := writeDigestTable(bundle); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	var digests map[string]string
	if *digest {
		if digests, err = stager.ComputeDigests(bundle); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	failures := 0
	for _, entry := range cfg.Manifest {
		if !embedded.Exists(entry.Path) {
			if entry.Optional {
				fmt.Printf("%-24s optional, not in bundle\n", entry)
				continue
			}
			fmt.Printf("%-24s MISSING\n", entry)
			failures++
			continue
		}

		files, size, err := walkEntry(entry)
		if err != nil {
			fmt.Printf("%-24s error: %v\n", entry, err)
			failures++
			continue
		}
		fmt.Printf("%-24s %5d files %10d bytes\n", entry, len(files), size)

		if *digest {
			for _, f := range files {
				fmt.Printf("    %s  %s\n", digests[f], f)
			}
		}
	}

	failures += verifyDigestTable(bundle)

	if failures > 0 {
		fmt.Printf("%d problems found\n", failures)
		os.Exit(1)
	}
}

// walkEntry 列出条目包含的文件及总大小
func walkEntry(entry config.ManifestEntry) ([]string, int64, error) {
	info, err := embedded.Stat(entry.Path)
	if err != nil {
		return nil, 0, err
	}
	root, err := embedded.Clean(entry.Path)
	if err != nil {
		return nil, 0, err
	}

	if entry.Kind == config.EntryFile {
		if !info.Mode().IsRegular() {
			return nil, 0, fmt.Errorf("expected a file")
		}
		return []string{root}, info.Size(), nil
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("expected a directory")
	}

	bundle, err := embedded.FS()
	if err != nil {
		return nil, 0, err
	}
	files, err := stager.ListFiles(bundle, root)
	if err != nil {
		return nil, 0, err
	}

	var size int64
	for _, f := range files {
		fi, err := embedded.Stat(f)
		if err != nil {
			return nil, 0, err
		}
		size += fi.Size()
	}
	return files, size, nil
}

// writeDigestTable 计算并写入摘要表
func writeDigestTable(bundle fs.FS) error {
	digests, err := stager.ComputeDigests(bundle)
	if err != nil {
		return err
	}
	data, err := stager.EncodeDigests(digests)
	if err != nil {
		return err
	}
	path := filepath.Join(*bundleDir, stager.DigestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write digest table: %w", err)
	}
	fmt.Printf("Wrote %d digests to %s\n", len(digests), path)
	return nil
}

// verifyDigestTable 验证摘要表中的每一项，返回问题数
func verifyDigestTable(bundle fs.FS) int {
	table, err := stager.LoadDigests(bundle)
	if err != nil {
		fmt.Printf("digest table: %v\n", err)
		return 1
	}
	if table == nil {
		return 0
	}

	actual, err := stager.ComputeDigests(bundle)
	if err != nil {
		fmt.Printf("digest table: %v\n", err)
		return 1
	}

	names := make([]string, 0, len(actual))
	for name := range actual {
		names = append(names, name)
	}
	sort.Strings(names)

	problems := 0
	for _, name := range names {
		want, ok := table[name]
		switch {
		case !ok:
			fmt.Printf("digest table: %s not listed\n", name)
			problems++
		case want != actual[name]:
			fmt.Printf("digest table: %s is STALE\n", name)
			problems++
		}
	}
	for name := range table {
		if _, ok := actual[name]; !ok {
			fmt.Printf("digest table: %s listed but not in bundle\n", name)
			problems++
		}
	}
	if problems == 0 {
		fmt.Printf("digest table: %d entries verified\n", len(table))
	}
	return problems
}

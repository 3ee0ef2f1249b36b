package stager

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// DigestFile 资源包根目录下的摘要表文件名
//
// 摘要表在打包时由 cmd/check_bundle -write-digests 生成，随资源包一起
// 发布。有摘要表时 compare 策略无需读取资源包文件就能得到其摘要，
// 这对修改时间为零的嵌入式资源包尤其重要。摘要表本身不会被暂存。
const DigestFile = ".bundle-digests.yaml"

// digestDocument 摘要表的持久化格式
type digestDocument struct {
	Files map[string]string `yaml:"files"`
}

// LoadDigests 读取资源包中的摘要表，资源包没有摘要表时返回 nil
func LoadDigests(bundle fs.FS) (map[string]string, error) {
	data, err := fs.ReadFile(bundle, DigestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read digest table: %w", err)
	}

	var doc digestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse digest table: %w", err)
	}
	return doc.Files, nil
}

// ComputeDigests 计算资源包中每个普通文件的 SHA-256（不含摘要表本身）
func ComputeDigests(bundle fs.FS) (map[string]string, error) {
	files, err := ListFiles(bundle, ".")
	if err != nil {
		return nil, err
	}

	digests := make(map[string]string, len(files))
	for _, f := range files {
		sum, err := hashBundleFile(bundle, f)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", f, err)
		}
		digests[f] = sum
	}
	return digests, nil
}

// EncodeDigests 把摘要表编码为 YAML
func EncodeDigests(digests map[string]string) ([]byte, error) {
	return yaml.Marshal(digestDocument{Files: digests})
}

// ListFiles 列出资源包 root 下所有普通文件（不含摘要表）
//
// 符号链接按其目标判断：指向普通文件时视为普通文件，指向目录或其他
// 类型时返回 ErrKindMismatch，不会被静默跳过。
func ListFiles(bundle fs.FS, root string) ([]string, error) {
	var files []string
	err := fs.WalkDir(bundle, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			info, err := fs.Stat(bundle, p)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", p, err)
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s is not a regular file (%s)", ErrKindMismatch, p, info.Mode().Type())
			}
		}
		if p == DigestFile {
			return nil
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

package stager

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// hashBundleFile 计算资源包中文件内容的 SHA-256
func hashBundleFile(bundle fs.FS, name string) (string, error) {
	f, err := bundle.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashReader(f)
}

// hashFile 计算磁盘文件内容的 SHA-256
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashReader(f)
}

func hashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// tempMarker 临时文件和备份文件名中的标记，形如 .<name>.staging-*
const tempMarker = ".staging-"

// pendingFile 已写入临时文件、等待重命名到目标位置的文件
type pendingFile struct {
	rel  string
	temp string
	dest string
	sum  string
	size int64

	// 资源包文件的大小和修改时间，用于下次启动时识别未变化的源文件
	srcSize    int64
	srcModTime time.Time

	// backup 提交期间被替换的原目标文件
	backup string
}

// writeTemp 将资源包文件复制到目标文件旁的临时文件
//
// 临时文件与目标文件位于同一目录，保证之后的重命名是原子的。
func writeTemp(bundle fs.FS, rel, dest string) (*pendingFile, error) {
	src, err := bundle.Open(rel)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	srcInfo, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+tempMarker+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", rel, err)
	}
	// 出错时删除临时文件
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync %s: %w", rel, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return nil, fmt.Errorf("failed to chmod %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", rel, err)
	}

	ok = true
	return &pendingFile{
		rel:  rel,
		temp: tmp.Name(),
		dest: dest,
		sum:  hex.EncodeToString(h.Sum(nil)),
		size: n,

		srcSize:    srcInfo.Size(),
		srcModTime: srcInfo.ModTime(),
	}, nil
}

// discard 删除尚未提交的临时文件
func discard(pending []*pendingFile) {
	for _, p := range pending {
		os.Remove(p.temp)
	}
}

// backupDest 把将被替换的目标文件移到备份位置
func (p *pendingFile) backupDest() error {
	info, err := os.Lstat(p.dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("destination %s exists and is not a regular file", p.rel)
	}

	backup := p.temp + "-bak"
	if err := os.Rename(p.dest, backup); err != nil {
		return fmt.Errorf("failed to back up %s: %w", p.rel, err)
	}
	p.backup = backup
	return nil
}

// restore 撤销已提交的文件：恢复备份，没有备份时删除新文件
func (p *pendingFile) restore() {
	if p.backup != "" {
		if err := os.Rename(p.backup, p.dest); err != nil {
			log.Printf("[Stager] Warning: failed to restore %s: %v", p.rel, err)
		}
		return
	}
	os.Remove(p.dest)
}

// commit 依次把临时文件重命名到目标位置
//
// 被替换的目标文件先移到备份位置。任何一个文件提交失败时，已提交的
// 文件全部恢复原状，未提交的临时文件被删除，目标目录与提交前一致。
func commit(pending []*pendingFile) error {
	for i, p := range pending {
		err := p.backupDest()
		if err == nil {
			if err = os.Rename(p.temp, p.dest); err != nil {
				err = fmt.Errorf("failed to commit %s: %w", p.rel, err)
				if p.backup != "" {
					p.restore()
				}
			}
		}
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				pending[j].restore()
			}
			discard(pending[i:])
			return err
		}
	}

	for _, p := range pending {
		if p.backup != "" {
			os.Remove(p.backup)
		}
	}
	return nil
}

// isStagingTemp 判断文件名是否为暂存器的临时文件或备份文件
func isStagingTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name[1:], tempMarker)
}

// sweepTemps 删除 dir 中上次运行中断时遗留的临时文件和备份文件
//
// recursive 为 true 时包括所有子目录。dir 不存在时什么也不做。
func sweepTemps(dir string, recursive bool) (int, error) {
	removed := 0
	remove := func(p string) error {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	}

	if !recursive {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && isStagingTemp(e.Name()) {
				if err := remove(filepath.Join(dir, e.Name())); err != nil {
					return removed, err
				}
			}
		}
		return removed, nil
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.Type().IsRegular() && isStagingTemp(d.Name()) {
			return remove(p)
		}
		return nil
	})
	return removed, err
}

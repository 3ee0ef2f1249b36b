// Package stager 将资源包中的游戏资源暂存到引擎可写、可直接用文件系统
// 调用打开的目录中。
//
// 暂存按资源清单顺序进行，每个条目要么全部提交，要么不留下任何
// 部分写入的文件。重复运行是幂等的。
package stager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/d2df/d2df-launcher/pkg/config"
	"github.com/d2df/d2df-launcher/pkg/embedded"
)

var (
	// ErrEntryMissing 资源包中不存在必需的清单条目
	ErrEntryMissing = errors.New("manifest entry missing from bundle")
	// ErrKindMismatch 清单条目类型与资源包中的实际类型不符
	ErrKindMismatch = errors.New("manifest entry kind does not match bundle")
)

// Options 暂存器选项
type Options struct {
	// Policy 目标文件已存在时的处理策略，为空时使用 compare
	Policy config.StagePolicy

	// Index 暂存索引，为 nil 时使用内存索引
	Index *Index
}

// EntryResult 单个清单条目的暂存结果
type EntryResult struct {
	Entry   config.ManifestEntry
	Copied  int   // 写入的文件数
	Skipped int   // 因策略跳过的文件数
	Bytes   int64 // 写入的字节数
	Missing bool  // 可选条目在资源包中不存在
}

// Result 一次暂存的汇总结果
type Result struct {
	Entries []EntryResult
	Copied  int
	Skipped int
	Bytes   int64
}

// Stager 资源暂存器
type Stager struct {
	bundle fs.FS
	root   string
	policy config.StagePolicy
	index  *Index

	// digests 资源包自带的摘要表，可为 nil
	digests map[string]string
}

// run 一次暂存运行的状态
type run struct {
	// staged 已处理过的文件，嵌套条目不会重复复制
	staged map[string]bool
	// swept 已递归清理过临时文件的目录
	swept map[string]bool
}

func newRun() *run {
	return &run{
		staged: make(map[string]bool),
		swept:  make(map[string]bool),
	}
}

// New 创建资源暂存器
//
// 参数：
//   - bundle: 只读资源包
//   - root: 暂存目录
//   - opts: 暂存选项
func New(bundle fs.FS, root string, opts Options) *Stager {
	policy := opts.Policy
	if policy == "" {
		policy = config.PolicyCompare
	}
	index := opts.Index
	if index == nil {
		index = NewMemoryIndex(root)
	}

	digests, err := LoadDigests(bundle)
	if err != nil {
		log.Printf("[Stager] Warning: ignoring digest table: %v", err)
		digests = nil
	}

	return &Stager{
		bundle:  bundle,
		root:    root,
		policy:  policy,
		index:   index,
		digests: digests,
	}
}

// Root 返回暂存目录
func (s *Stager) Root() string {
	return s.root
}

// Policy 返回暂存策略
func (s *Stager) Policy() config.StagePolicy {
	return s.policy
}

// Stage 按清单顺序暂存所有条目
//
// 任何条目失败都会立即中止并返回错误，调用方应将其视为致命的启动错误。
// 同一次运行中被多个条目覆盖的文件只处理一次。
func (s *Stager) Stage(ctx context.Context, manifest []config.ManifestEntry) (Result, error) {
	r := newRun()

	var result Result
	for _, entry := range manifest {
		er, err := s.stageEntry(ctx, r, entry)
		if err != nil {
			return result, fmt.Errorf("failed to stage %s: %w", entry, err)
		}
		result.Entries = append(result.Entries, er)
		result.Copied += er.Copied
		result.Skipped += er.Skipped
		result.Bytes += er.Bytes
	}

	// 索引保存失败只影响下次启动的速度，不影响正确性
	if err := s.index.Save(); err != nil {
		log.Printf("[Stager] Warning: %v", err)
	}

	log.Printf("[Stager] Staged %d entries into %s: %d copied, %d skipped, %d bytes",
		len(result.Entries), s.root, result.Copied, result.Skipped, result.Bytes)
	return result, nil
}

// StageEntry 暂存单个清单条目
//
// 先清理上次中断遗留的临时文件，再把需要更新的文件全部写入临时文件，
// 全部成功后依次重命名到目标位置。任何一步出错时删除所有临时文件并
// 恢复已替换的文件，目标目录保持原样。
func (s *Stager) StageEntry(ctx context.Context, entry config.ManifestEntry) (EntryResult, error) {
	return s.stageEntry(ctx, newRun(), entry)
}

func (s *Stager) stageEntry(ctx context.Context, r *run, entry config.ManifestEntry) (EntryResult, error) {
	result := EntryResult{Entry: entry}

	rel, err := embedded.Clean(entry.Path)
	if err != nil {
		return result, err
	}

	info, err := fs.Stat(s.bundle, rel)
	if errors.Is(err, fs.ErrNotExist) {
		if entry.Optional {
			log.Printf("[Stager] Optional entry %s not in bundle, skipping", entry)
			result.Missing = true
			return result, nil
		}
		return result, fmt.Errorf("%w: %s", ErrEntryMissing, entry)
	}
	if err != nil {
		return result, err
	}

	files, err := s.collect(rel, entry.Kind, info)
	if err != nil {
		return result, err
	}

	if err := s.sweep(r, rel, entry.Kind); err != nil {
		return result, fmt.Errorf("failed to remove leftover temp files: %w", err)
	}

	// 写入阶段
	var pending []*pendingFile
	var verified []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			discard(pending)
			return result, err
		}
		if r.staged[file] {
			continue
		}

		copyNeeded, err := s.needsCopy(file)
		if err != nil {
			discard(pending)
			return result, fmt.Errorf("failed to check %s: %w", file, err)
		}
		if !copyNeeded {
			verified = append(verified, file)
			continue
		}

		p, err := writeTemp(s.bundle, file, s.destPath(file))
		if err != nil {
			discard(pending)
			return result, err
		}
		pending = append(pending, p)
	}

	// 提交阶段
	if entry.Kind == config.EntryDir {
		if err := os.MkdirAll(s.destPath(rel), dirPerm); err != nil {
			discard(pending)
			return result, fmt.Errorf("failed to create directory %s: %w", rel, err)
		}
	}
	if err := commit(pending); err != nil {
		return result, err
	}

	for _, p := range pending {
		s.record(p)
		r.staged[p.rel] = true
		result.Copied++
		result.Bytes += p.size
	}
	for _, file := range verified {
		r.staged[file] = true
		result.Skipped++
	}

	log.Printf("[Stager] %s: %d copied, %d skipped", entry, result.Copied, result.Skipped)
	return result, nil
}

// collect 列出条目包含的所有普通文件
func (s *Stager) collect(rel string, kind config.EntryKind, info fs.FileInfo) ([]string, error) {
	switch kind {
	case config.EntryFile:
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s is not a regular file", ErrKindMismatch, rel)
		}
		return []string{rel}, nil

	case config.EntryDir:
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrKindMismatch, rel)
		}
		files, err := ListFiles(s.bundle, rel)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", rel, err)
		}
		return files, nil
	}
	return nil, fmt.Errorf("unknown entry kind %q", kind)
}

// sweep 清理条目目标位置中遗留的临时文件
//
// 目录条目递归清理，已被祖先目录条目清理过的目录跳过；文件条目只清理
// 所在目录本层。
func (s *Stager) sweep(r *run, rel string, kind config.EntryKind) error {
	dir, recursive := rel, kind == config.EntryDir
	if !recursive {
		dir = path.Dir(rel)
	}

	for d := dir; ; d = path.Dir(d) {
		if r.swept[d] {
			return nil
		}
		if d == "." {
			break
		}
	}

	n, err := sweepTemps(s.destPath(dir), recursive)
	if n > 0 {
		log.Printf("[Stager] Removed %d leftover temp files under %s", n, s.destPath(dir))
	}
	if err != nil {
		return err
	}
	if recursive {
		r.swept[dir] = true
	}
	return nil
}

// needsCopy 按暂存策略判断文件是否需要写入
func (s *Stager) needsCopy(rel string) (bool, error) {
	if s.policy == config.PolicyOverwrite {
		return true, nil
	}

	destInfo, err := os.Stat(s.destPath(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !destInfo.Mode().IsRegular() {
		return false, fmt.Errorf("destination %s exists and is not a regular file", rel)
	}

	if s.policy == config.PolicySkipIfPresent {
		return false, nil
	}

	srcInfo, err := fs.Stat(s.bundle, rel)
	if err != nil {
		return false, err
	}
	if srcInfo.Size() != destInfo.Size() {
		return true, nil
	}

	rec, indexed := s.index.Lookup(rel)
	srcSum, err := s.sourceSum(rel, srcInfo, rec, indexed)
	if err != nil {
		return false, err
	}

	// 索引记录与目标文件一致时直接信任，避免读取目标文件
	if indexed && rec.Sum == srcSum && rec.Size == destInfo.Size() && rec.ModTime.Equal(destInfo.ModTime()) {
		return false, nil
	}

	destSum, err := hashFile(s.destPath(rel))
	if err != nil {
		return false, err
	}
	if destSum != srcSum {
		return true, nil
	}

	s.index.Put(rel, Record{
		Sum:           srcSum,
		Size:          destInfo.Size(),
		ModTime:       destInfo.ModTime(),
		SourceSize:    srcInfo.Size(),
		SourceModTime: srcInfo.ModTime(),
	})
	return false, nil
}

// sourceSum 返回资源包文件的摘要
//
// 依次尝试资源包自带的摘要表、源文件大小和修改时间都未变化的索引
// 记录，都不可用时才读取整个文件。
func (s *Stager) sourceSum(rel string, srcInfo fs.FileInfo, rec Record, indexed bool) (string, error) {
	if sum, ok := s.digests[rel]; ok {
		return sum, nil
	}
	if indexed && rec.sourceMatches(srcInfo) {
		return rec.Sum, nil
	}
	return hashBundleFile(s.bundle, rel)
}

// record 在文件提交后更新索引
func (s *Stager) record(p *pendingFile) {
	info, err := os.Stat(p.dest)
	if err != nil {
		log.Printf("[Stager] Warning: failed to stat %s after commit: %v", p.rel, err)
		return
	}
	s.index.Put(p.rel, Record{
		Sum:           p.sum,
		Size:          info.Size(),
		ModTime:       info.ModTime(),
		SourceSize:    p.srcSize,
		SourceModTime: p.srcModTime,
	})
}

func (s *Stager) destPath(rel string) string {
	if rel == "." {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

package stager

import (
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/d2df/d2df-launcher/pkg/utils"
)

// 存储路径常量
const (
	indexObject   = "staging"
	indexProperty = "index"
)

// Record 记录一个已暂存文件写入时的状态
type Record struct {
	Sum     string    `yaml:"sha256"`  // 资源包文件内容的 SHA-256（十六进制）
	Size    int64     `yaml:"size"`    // 写入后的文件大小
	ModTime time.Time `yaml:"modTime"` // 写入后的修改时间

	// 资源包文件的大小和修改时间。嵌入式资源包的修改时间为零，
	// 此时不能据此认定源文件未变化
	SourceSize    int64     `yaml:"sourceSize,omitempty"`
	SourceModTime time.Time `yaml:"sourceModTime,omitempty"`
}

func (r Record) equal(o Record) bool {
	return r.Sum == o.Sum && r.Size == o.Size && r.ModTime.Equal(o.ModTime) &&
		r.SourceSize == o.SourceSize && r.SourceModTime.Equal(o.SourceModTime)
}

// sourceMatches 判断资源包文件自记录以来是否未变化
func (r Record) sourceMatches(info fs.FileInfo) bool {
	return !r.SourceModTime.IsZero() &&
		r.SourceSize == info.Size() &&
		r.SourceModTime.Equal(info.ModTime())
}

// indexDocument 索引的持久化格式
type indexDocument struct {
	Root  string            `yaml:"root"`
	Files map[string]Record `yaml:"files"`
}

// Index 暂存索引
//
// 记录暂存器写入过的文件，compare 策略据此跳过未变化的文件而无需
// 重新计算目标文件的摘要。索引通过 gdata 持久化；gdataManager 为 nil
// 时只保存在内存中（降级模式）。
type Index struct {
	gdataManager *gdata.Manager
	root         string
	records      map[string]Record
	dirty        bool
}

// NewMemoryIndex 创建只保存在内存中的索引
func NewMemoryIndex(root string) *Index {
	return &Index{
		root:    root,
		records: make(map[string]Record),
	}
}

// OpenIndex 打开暂存索引
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式）
//   - root: 暂存目录，索引只对同一暂存目录有效
//
// 已保存的索引损坏或属于其他暂存目录时会被丢弃并重建，不返回错误。
func OpenIndex(gdataManager *gdata.Manager, root string) *Index {
	ix := NewMemoryIndex(root)
	ix.gdataManager = gdataManager

	if err := ix.load(); err != nil {
		log.Printf("[Stager] Warning: discarding staging index: %v", err)
		ix.records = make(map[string]Record)
		ix.dirty = true
	}
	return ix
}

// OpenAppIndex 打开应用的 gdata 存储并加载暂存索引
//
// 存储不可用时记录警告并返回内存索引。
func OpenAppIndex(appName, root string) *Index {
	if err := utils.EnsureStorageDir(); err != nil {
		log.Printf("[Stager] Warning: %v", err)
		return NewMemoryIndex(root)
	}
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Printf("[Stager] Warning: gdata unavailable, staging index kept in memory: %v", err)
		return NewMemoryIndex(root)
	}
	return OpenIndex(m, root)
}

func (ix *Index) load() error {
	if ix.gdataManager == nil {
		return nil
	}
	if !ix.gdataManager.ObjectPropExists(indexObject, indexProperty) {
		return nil
	}

	data, err := ix.gdataManager.LoadObjectProp(indexObject, indexProperty)
	if err != nil {
		return fmt.Errorf("failed to load staging index: %w", err)
	}

	var doc indexDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal staging index: %w", err)
	}
	if doc.Root != ix.root {
		return fmt.Errorf("index belongs to staging dir %q, not %q", doc.Root, ix.root)
	}

	if doc.Files != nil {
		ix.records = doc.Files
	}
	log.Printf("[Stager] Loaded staging index with %d files", len(ix.records))
	return nil
}

// Lookup 查询文件的记录
func (ix *Index) Lookup(rel string) (Record, bool) {
	rec, ok := ix.records[rel]
	return rec, ok
}

// Put 更新文件的记录
func (ix *Index) Put(rel string, rec Record) {
	if old, ok := ix.records[rel]; ok && old.equal(rec) {
		return
	}
	ix.records[rel] = rec
	ix.dirty = true
}

// Len 返回记录数
func (ix *Index) Len() int {
	return len(ix.records)
}

// Save 持久化索引
//
// 降级模式或索引未变化时直接返回 nil。
func (ix *Index) Save() error {
	if ix.gdataManager == nil || !ix.dirty {
		return nil
	}

	data, err := yaml.Marshal(indexDocument{Root: ix.root, Files: ix.records})
	if err != nil {
		return fmt.Errorf("failed to marshal staging index: %w", err)
	}
	if err := ix.gdataManager.SaveObjectProp(indexObject, indexProperty, data); err != nil {
		return fmt.Errorf("failed to save staging index: %w", err)
	}

	ix.dirty = false
	log.Printf("[Stager] Staging index saved (%d files)", len(ix.records))
	return nil
}

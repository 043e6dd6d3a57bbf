package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charlievieth/fastwalk"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// Options 遍历选项
type Options struct {
	// Workers 并行遍历子目录的 worker 数，0 表示 CPU 核数
	Workers int
	// Exclude 按文件名匹配的 glob 模式，命中的目录整体跳过
	Exclude []string
}

// Item 遍历产生的一个条目：记录或可恢复错误，二者只有一个非空
type Item struct {
	Record *internal.FileRecord
	Err    *internal.ScanError
}

type FileWalker struct {
	workers int
	exclude []string
}

func NewFileWalker(opts Options) *FileWalker {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &FileWalker{
		workers: workers,
		exclude: opts.Exclude,
	}
}

// Traversal 一次单向、不可重启的遍历
type Traversal struct {
	items chan Item
	err   error
}

// Items 返回条目通道，遍历结束后关闭。顺序不保证。
func (t *Traversal) Items() <-chan Item {
	return t.items
}

// Err 根目录级别的致命错误，只有在 Items 关闭之后读取才有意义
func (t *Traversal) Err() error {
	return t.err
}

// Walk 从 root 开始遍历，root 本身也作为目录记录输出。
// 符号链接只记录不跟随；无法读取的子目录记录错误后跳过。
func (w *FileWalker) Walk(ctx context.Context, root string) *Traversal {
	t := &Traversal{items: make(chan Item, internal.DefaultBufferSize)}

	go func() {
		defer close(t.items)
		t.err = w.walk(ctx, root, t.items)
	}()

	return t
}

func (w *FileWalker) walk(ctx context.Context, root string, items chan<- Item) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	logger.Get().Debug().Str("root", root).Int("workers", w.workers).Msg("开始遍历目录")
	send(ctx, items, Item{Record: newRecord(root, info)})

	conf := fastwalk.Config{Follow: false, NumWorkers: w.workers}
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			if path == root {
				return err
			}
			logger.Get().Warn().Err(err).Str("path", path).Msg("无法访问路径，跳过")
			send(ctx, items, Item{Err: &internal.ScanError{Path: path, Stage: internal.StageWalk, Err: err}})
			// 目录读取失败时子树本就不会被遍历
			return nil
		}

		if path == root {
			return nil
		}

		if w.excluded(d.Name()) {
			logger.Get().Debug().Str("path", path).Msg("命中排除规则")
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Get().Warn().Err(err).Str("path", path).Msg("读取文件信息失败")
			send(ctx, items, Item{Err: &internal.ScanError{Path: path, Stage: internal.StageWalk, Err: err}})
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		send(ctx, items, Item{Record: newRecord(path, fi)})
		return nil
	}

	if err := fastwalk.Walk(&conf, root, walkFn); err != nil && !errors.Is(err, fs.SkipAll) {
		return err
	}
	return nil
}

func (w *FileWalker) excluded(name string) bool {
	for _, pattern := range w.exclude {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func send(ctx context.Context, items chan<- Item, item Item) {
	select {
	case items <- item:
	case <-ctx.Done():
	}
}

func newRecord(path string, info fs.FileInfo) *internal.FileRecord {
	rec := &internal.FileRecord{
		Path:     path,
		Modified: info.ModTime(),
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		rec.Kind = internal.KindFile
		rec.Size = info.Size()
		rec.Identity, rec.HasIdentity = identityOf(info)
	case mode.IsDir():
		rec.Kind = internal.KindDirectory
	case mode&fs.ModeSymlink != 0:
		rec.Kind = internal.KindSymlink
	default:
		rec.Kind = internal.KindOther
	}

	return rec
}

package deduplicator

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
	"github.com/WhiteFoxMax/dupemgr/pkg/safety"
)

type Options struct {
	// Fs 用于根目录校验和读取文件内容，默认为操作系统文件系统
	Fs afero.Fs

	WalkWorkers int
	Exclude     []string
	MinSize     int64

	HashWorkers int
	PartialSize int64
	BufferSize  int

	Safety safety.Options
}

// Engine 扫描入口。同一时间只允许一个未结束的扫描；
// 需要并行扫描多个根目录时使用多个 Engine。
type Engine struct {
	opts       Options
	classifier *safety.Classifier

	mu      sync.Mutex
	current *Scan
}

func NewEngine(opts Options) *Engine {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.HashWorkers <= 0 {
		opts.HashWorkers = internal.DefaultWorkers
	}
	if opts.PartialSize <= 0 {
		opts.PartialSize = internal.DefaultPartialSize
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = internal.DefaultReadBufferSize
	}

	return &Engine{
		opts:       opts,
		classifier: safety.NewClassifier(opts.Safety),
	}
}

// StartScan 校验根目录后在后台开始扫描。
// 根目录不存在或不是目录时同步返回 *RootError。
func (e *Engine) StartScan(ctx context.Context, root string) (*Scan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && !e.current.State().Terminal() {
		return nil, ErrAlreadyScanning
	}

	absRoot, err := e.validateRoot(root)
	if err != nil {
		logger.Get().Error().Err(err).Str("root", root).Msg("根目录无效")
		return nil, err
	}

	scan := newScan(ctx, absRoot, e.opts, e.classifier)
	e.current = scan

	logger.Get().Info().Str("scan_id", scan.ID()).Str("root", absRoot).Msg("开始扫描")
	go scan.run()

	return scan, nil
}

// Current 返回最近一次开始的扫描，可能已经结束
func (e *Engine) Current() *Scan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) validateRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Path: root, Err: err}
	}

	info, err := e.opts.Fs.Stat(absRoot)
	if err != nil {
		return "", rootError(absRoot, err)
	}
	if !info.IsDir() {
		return "", &RootError{Path: absRoot, Err: ErrRootNotDir}
	}

	// 根目录本身是符号链接时遍历其目标，树内的符号链接仍然不跟随
	if lstater, ok := e.opts.Fs.(afero.Lstater); ok {
		if li, lstatCalled, err := lstater.LstatIfPossible(absRoot); err == nil && lstatCalled && li.Mode()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(absRoot)
			if err != nil {
				return "", rootError(absRoot, err)
			}
			absRoot = resolved
		}
	}

	return absRoot, nil
}

func rootError(path string, err error) *RootError {
	if errors.Is(err, fs.ErrNotExist) {
		return &RootError{Path: path, Err: ErrRootNotExist}
	}
	return &RootError{Path: path, Err: err}
}

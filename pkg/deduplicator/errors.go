package deduplicator

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyScanning = errors.New("already scanning")
	ErrScanInProgress  = errors.New("scan has not finished")
	ErrScanCancelled   = errors.New("scan cancelled")
	ErrRootNotExist    = errors.New("root path does not exist")
	ErrRootNotDir      = errors.New("root path is not a directory")
)

// RootError 根目录无效或不可访问，扫描无法开始或进入 Failed
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

//go:build windows

package safety

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

type osChecker struct{}

// Locked 以读写方式打开，共享冲突说明文件被其他进程占用
func (osChecker) Locked(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		f.Close()
		return false, nil
	}
	var errno windows.Errno
	if errors.As(err, &errno) && (errno == windows.ERROR_SHARING_VIOLATION || errno == windows.ERROR_LOCK_VIOLATION) {
		return true, nil
	}
	return false, err
}

func (osChecker) Writable(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0200 != 0, nil
}

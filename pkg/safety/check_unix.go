//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package safety

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

type osChecker struct{}

// Locked 尝试非阻塞地获取排他 flock，失败说明其他进程持有锁
func (osChecker) Locked(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	fd := int(f.Fd())
	err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		_ = unix.Flock(fd, unix.LOCK_UN)
		return false, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return true, nil
	}
	return false, err
}

func (osChecker) Writable(dir string) (bool, error) {
	err := unix.Access(dir, unix.W_OK)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EROFS) || errors.Is(err, unix.EPERM) {
		return false, nil
	}
	return false, err
}

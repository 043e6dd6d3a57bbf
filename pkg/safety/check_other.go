//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package safety

import "errors"

var errUnsupported = errors.New("safety checks not supported on this platform")

type osChecker struct{}

func (osChecker) Locked(string) (bool, error) {
	return false, errUnsupported
}

func (osChecker) Writable(string) (bool, error) {
	return false, errUnsupported
}

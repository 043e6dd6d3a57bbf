//go:build unix

package scanner

import (
	"io/fs"
	"syscall"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

func identityOf(info fs.FileInfo) (internal.Identity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return internal.Identity{}, false
	}
	return internal.Identity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}

//go:build !unix

package scanner

import (
	"io/fs"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

// TODO: 使用 GetFileInformationByHandle 读取文件索引号以识别 NTFS 硬链接
func identityOf(fs.FileInfo) (internal.Identity, bool) {
	return internal.Identity{}, false
}

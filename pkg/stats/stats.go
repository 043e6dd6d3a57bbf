// Package stats 计算扫描汇总，纯函数，无 I/O。
package stats

import "github.com/WhiteFoxMax/dupemgr/internal"

func Aggregate(files []*internal.FileRecord, groups []*internal.DuplicateGroup) internal.ScanStats {
	var s internal.ScanStats

	for _, f := range files {
		if f.Kind != internal.KindFile {
			continue
		}
		s.TotalFiles++
		s.TotalBytes += f.Size
	}

	for _, g := range groups {
		s.DuplicateFileCount += len(g.Members)
		s.ReclaimableBytes += g.ReclaimableBytes()
	}

	return s
}

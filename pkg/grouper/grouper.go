// Package grouper 把完整摘要相同的文件合并为重复组。
package grouper

import (
	"github.com/WhiteFoxMax/dupemgr/internal"
)

type key struct {
	size   int64
	digest string
}

// Group 以 (size, fullDigest) 为键合并文件。
// empty 为空文件列表，两个及以上时直接成组。
// 成员少于两个的组被丢弃；组内成员保持输入顺序。
func Group(sets [][]*internal.FileRecord, empty []*internal.FileRecord) []*internal.DuplicateGroup {
	var groups []*internal.DuplicateGroup

	if len(empty) >= 2 {
		members := make([]*internal.FileRecord, len(empty))
		for i, rec := range empty {
			rec.FullDigest = internal.EmptyDigest
			members[i] = rec
		}
		groups = append(groups, &internal.DuplicateGroup{
			Digest:  internal.EmptyDigest,
			Members: members,
		})
	}

	index := make(map[key]*internal.DuplicateGroup)
	var order []key

	for _, set := range sets {
		for _, rec := range set {
			if rec.FullDigest == "" {
				continue
			}
			k := key{size: rec.Size, digest: rec.FullDigest}
			g, ok := index[k]
			if !ok {
				g = &internal.DuplicateGroup{Digest: rec.FullDigest, Size: rec.Size}
				index[k] = g
				order = append(order, k)
			}
			g.Members = append(g.Members, rec)
		}
	}

	for _, k := range order {
		if g := index[k]; len(g.Members) >= 2 {
			groups = append(groups, g)
		}
	}

	return groups
}

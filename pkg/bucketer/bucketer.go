// Package bucketer 按字节大小对文件进行预分组。
package bucketer

import (
	"sort"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

// Bucket 大小完全相同的一组文件，顺序与输入一致
type Bucket struct {
	Size    int64
	Records []*internal.FileRecord
}

// Result 分组结果
type Result struct {
	// Empty 所有空文件；多于一个时直接构成重复组，无需哈希
	Empty []*internal.FileRecord
	// Candidates 需要哈希确认的非空桶，每个至少两个成员，按大小降序
	Candidates []Bucket
	// HardLinks 因与已收录路径共享 inode 而被忽略的记录数
	HardLinks int
}

// Split 只处理 KindFile 记录。小于 minSize 的文件不参与比较；
// 指向同一 inode 的硬链接只保留首次出现的路径。
func Split(records []*internal.FileRecord, minSize int64) Result {
	var res Result

	seen := make(map[internal.Identity]struct{})
	bySize := make(map[int64][]*internal.FileRecord)
	var order []int64

	for _, rec := range records {
		if rec.Kind != internal.KindFile || rec.Size < minSize {
			continue
		}
		if rec.HasIdentity {
			if _, ok := seen[rec.Identity]; ok {
				res.HardLinks++
				continue
			}
			seen[rec.Identity] = struct{}{}
		}
		if _, ok := bySize[rec.Size]; !ok {
			order = append(order, rec.Size)
		}
		bySize[rec.Size] = append(bySize[rec.Size], rec)
	}

	for _, size := range order {
		members := bySize[size]
		if len(members) < 2 {
			continue
		}
		if size == 0 {
			res.Empty = members
			continue
		}
		res.Candidates = append(res.Candidates, Bucket{Size: size, Records: members})
	}

	// 大文件优先派发，尽早占满 I/O
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].Size > res.Candidates[j].Size
	})

	return res
}

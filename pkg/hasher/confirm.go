package hasher

import (
	"context"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/bucketer"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// Confirm 对候选桶执行两阶段哈希：
//  1. 部分阶段：每个文件只读前缀，按前缀摘要重新分组，丢弃单成员子组；
//  2. 完整阶段：只对剩余子组中尚无完整摘要的文件读取全文。
//
// 失败的文件记录到 errs 并从所在组移除。返回的每个集合内文件大小和完整摘要都相同，
// 至少两个成员；集合内顺序与输入一致。
func (h *Hasher) Confirm(ctx context.Context, pool *Pool, buckets []bucketer.Bucket, errs *internal.ErrorList) [][]*internal.FileRecord {
	var all []*internal.FileRecord
	for _, b := range buckets {
		all = append(all, b.Records...)
	}

	failed := make([]bool, len(all))
	started := pool.Run(ctx, len(all), func(i int) {
		rec := all[i]
		if err := h.Partial(rec); err != nil {
			logger.Get().Warn().Err(err).Str("path", rec.Path).Msg("部分哈希失败")
			errs.Add(rec.Path, internal.StagePartialHash, err)
			failed[i] = true
		}
	})
	logger.Get().Debug().Msgf("部分哈希阶段完成: %d/%d", started, len(all))

	var subsets [][]*internal.FileRecord
	offset := 0
	for _, b := range buckets {
		byPrefix := make(map[string][]*internal.FileRecord)
		var order []string
		for i, rec := range b.Records {
			if failed[offset+i] || rec.PartialDigest == "" {
				continue
			}
			if _, ok := byPrefix[rec.PartialDigest]; !ok {
				order = append(order, rec.PartialDigest)
			}
			byPrefix[rec.PartialDigest] = append(byPrefix[rec.PartialDigest], rec)
		}
		offset += len(b.Records)

		for _, digest := range order {
			if members := byPrefix[digest]; len(members) >= 2 {
				subsets = append(subsets, members)
			}
		}
	}

	var pending []*internal.FileRecord
	for _, set := range subsets {
		for _, rec := range set {
			if rec.FullDigest == "" {
				pending = append(pending, rec)
			}
		}
	}

	results := make([]error, len(pending))
	started = pool.Run(ctx, len(pending), func(i int) {
		results[i] = h.Full(pending[i])
	})
	for i, err := range results {
		if err != nil {
			rec := pending[i]
			logger.Get().Warn().Err(err).Str("path", rec.Path).Msg("完整哈希失败")
			errs.Add(rec.Path, internal.StageFullHash, err)
		}
	}
	logger.Get().Debug().Msgf("完整哈希阶段完成: %d/%d", started, len(pending))

	var confirmed [][]*internal.FileRecord
	for _, set := range subsets {
		byFull := make(map[string][]*internal.FileRecord)
		var order []string
		for _, rec := range set {
			// 失败或因取消未执行的文件没有完整摘要
			if rec.FullDigest == "" {
				continue
			}
			if _, ok := byFull[rec.FullDigest]; !ok {
				order = append(order, rec.FullDigest)
			}
			byFull[rec.FullDigest] = append(byFull[rec.FullDigest], rec)
		}
		for _, digest := range order {
			if members := byFull[digest]; len(members) >= 2 {
				confirmed = append(confirmed, members)
			}
		}
	}

	return confirmed
}

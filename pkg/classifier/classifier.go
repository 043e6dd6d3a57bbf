// Package classifier 按文件类型汇总重复组，类型来自哈希阶段识别的 MIME。
package classifier

import (
	"sort"

	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

const (
	Image    = "image"
	Video    = "video"
	Audio    = "audio"
	Document = "document"
	Archive  = "archive"
	Font     = "font"
	Other    = "other"
	Unknown  = "unknown"
)

var categories = []struct {
	name  string
	types matchers.Map
}{
	{Image, matchers.Image},
	{Video, matchers.Video},
	{Audio, matchers.Audio},
	{Document, matchers.Document},
	{Archive, matchers.Archive},
	{Font, matchers.Font},
}

// byMIME MIME 到类别的索引，启动时构建一次
var byMIME = func() map[string]string {
	m := make(map[string]string)
	for _, c := range categories {
		for t := range c.types {
			if t == types.Unknown {
				continue
			}
			if _, ok := m[t.MIME.Value]; !ok {
				m[t.MIME.Value] = c.name
			}
		}
	}
	return m
}()

// Category 返回 MIME 所属类别，空 MIME 为 Unknown
func Category(mime string) string {
	if mime == "" {
		return Unknown
	}
	if c, ok := byMIME[mime]; ok {
		return c
	}
	return Other
}

// CategoryStats 某一类别的重复情况
type CategoryStats struct {
	Category         string
	Groups           int
	Files            int
	ReclaimableBytes int64
}

// Summarize 按类别统计重复组，按可释放空间降序排列。
// 一个组的类别取第一个识别出 MIME 的成员。
func Summarize(groups []*internal.DuplicateGroup) []CategoryStats {
	byCategory := make(map[string]*CategoryStats)

	for _, g := range groups {
		name := Unknown
		for _, m := range g.Members {
			if m.MIME != "" {
				name = Category(m.MIME)
				break
			}
		}

		s, ok := byCategory[name]
		if !ok {
			s = &CategoryStats{Category: name}
			byCategory[name] = s
		}
		s.Groups++
		s.Files += len(g.Members)
		s.ReclaimableBytes += g.ReclaimableBytes()
	}

	out := make([]CategoryStats, 0, len(byCategory))
	for _, s := range byCategory {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReclaimableBytes != out[j].ReclaimableBytes {
			return out[i].ReclaimableBytes > out[j].ReclaimableBytes
		}
		return out[i].Category < out[j].Category
	})
	return out
}

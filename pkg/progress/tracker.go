package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

// Snapshot 某一时刻的进度，尽力而为，只有在 Completed 之后才精确
type Snapshot struct {
	State         internal.State
	FilesSeen     int64
	DirsSeen      int64
	BytesSeen     int64
	Candidates    int64
	PartialHashed int64
	FullHashed    int64
	BytesHashed   int64
	Errors        int64
	Elapsed       time.Duration
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s: %d 个文件 (%s), %d 个候选, 已哈希 %s, %d 个错误, 用时 %s",
		s.State, s.FilesSeen, humanize.IBytes(uint64(s.BytesSeen)), s.Candidates,
		humanize.IBytes(uint64(s.BytesHashed)), s.Errors, s.Elapsed.Round(time.Millisecond))
}

// Tracker 遍历阶段的实时计数，可被多个 goroutine 并发更新
type Tracker struct {
	start      time.Time
	filesSeen  atomic.Int64
	dirsSeen   atomic.Int64
	bytesSeen  atomic.Int64
	candidates atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{start: time.Now()}
}

// Observe 统计一条遍历记录
func (t *Tracker) Observe(rec *internal.FileRecord) {
	switch rec.Kind {
	case internal.KindFile:
		t.filesSeen.Add(1)
		t.bytesSeen.Add(rec.Size)
	case internal.KindDirectory:
		t.dirsSeen.Add(1)
	}
}

func (t *Tracker) AddCandidates(n int) {
	t.candidates.Add(int64(n))
}

// Snapshot 返回遍历相关的计数，状态、哈希和错误计数由调用方补充
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		FilesSeen:  t.filesSeen.Load(),
		DirsSeen:   t.dirsSeen.Load(),
		BytesSeen:  t.bytesSeen.Load(),
		Candidates: t.candidates.Load(),
		Elapsed:    time.Since(t.start),
	}
}

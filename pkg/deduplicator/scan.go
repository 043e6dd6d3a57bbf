package deduplicator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/bucketer"
	"github.com/WhiteFoxMax/dupemgr/pkg/grouper"
	"github.com/WhiteFoxMax/dupemgr/pkg/hasher"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
	"github.com/WhiteFoxMax/dupemgr/pkg/progress"
	"github.com/WhiteFoxMax/dupemgr/pkg/safety"
	"github.com/WhiteFoxMax/dupemgr/pkg/scanner"
	"github.com/WhiteFoxMax/dupemgr/pkg/stats"
)

// 合法的状态迁移；Cancelled 可从任意非终止状态进入
var transitions = map[internal.State][]internal.State{
	internal.StateIdle:      {internal.StateWalking},
	internal.StateWalking:   {internal.StateBucketing, internal.StateFailed},
	internal.StateBucketing: {internal.StateHashing, internal.StateGrouping},
	internal.StateHashing:   {internal.StateGrouping},
	internal.StateGrouping:  {internal.StateCompleted},
}

// Scan 一次扫描的句柄，每次扫描拥有独立的工作集
type Scan struct {
	id         string
	root       string
	opts       Options
	classifier *safety.Classifier
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	state   atomic.Int32
	tracker *progress.Tracker
	hasher  *hasher.Hasher
	errs    internal.ErrorList

	// 只在进入终止状态前写入一次
	result *internal.ScanResult
	err    error
}

func newScan(parent context.Context, root string, opts Options, classifier *safety.Classifier) *Scan {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New().String()

	return &Scan{
		id:         id,
		root:       root,
		opts:       opts,
		classifier: classifier,
		log:        logger.Get().With().Str("scan_id", id).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		tracker:    progress.NewTracker(),
		hasher: hasher.New(hasher.Options{
			Fs:          opts.Fs,
			PartialSize: opts.PartialSize,
			BufferSize:  opts.BufferSize,
		}),
	}
}

func (s *Scan) ID() string {
	return s.id
}

func (s *Scan) Root() string {
	return s.root
}

func (s *Scan) State() internal.State {
	return internal.State(s.state.Load())
}

// Cancel 请求取消，可重复调用；扫描结束后调用无效果
func (s *Scan) Cancel() {
	s.cancel()
}

// Done 扫描进入终止状态后关闭
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Poll 返回当前状态和尽力而为的进度计数
func (s *Scan) Poll() progress.Snapshot {
	snap := s.tracker.Snapshot()
	snap.State = s.State()

	c := s.hasher.Counters()
	snap.PartialHashed = c.PartialCalls
	snap.FullHashed = c.FullCalls
	snap.BytesHashed = c.BytesRead
	snap.Errors = int64(s.errs.Len())

	if snap.State.Terminal() && s.result != nil {
		snap.Elapsed = s.result.EndTime.Sub(s.result.StartTime)
	}
	return snap
}

// Result 返回扫描结果。
// Completed 返回完整结果；Cancelled 返回已得到的部分结果和 ErrScanCancelled；
// Failed 返回根目录错误；尚未结束时返回 ErrScanInProgress。
func (s *Scan) Result() (*internal.ScanResult, error) {
	switch s.State() {
	case internal.StateCompleted:
		return s.result, nil
	case internal.StateCancelled:
		return s.result, ErrScanCancelled
	case internal.StateFailed:
		return nil, s.err
	default:
		return nil, ErrScanInProgress
	}
}

// Wait 阻塞直到扫描结束或 ctx 结束
func (s *Scan) Wait(ctx context.Context) (*internal.ScanResult, error) {
	select {
	case <-s.done:
		return s.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transition 唯一修改状态的地方，非法迁移直接 panic
func (s *Scan) transition(to internal.State) {
	from := s.State()

	allowed := to == internal.StateCancelled && !from.Terminal()
	for _, next := range transitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		panic("deduplicator: invalid state transition " + from.String() + " -> " + to.String())
	}

	s.state.Store(int32(to))
	s.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("状态迁移")
}

func (s *Scan) cancelled() bool {
	return s.ctx.Err() != nil
}

func (s *Scan) run() {
	defer close(s.done)
	defer s.cancel()

	start := time.Now()

	s.transition(internal.StateWalking)
	files, err := s.walk()
	if err != nil {
		s.err = err
		s.log.Error().Err(err).Msg("扫描失败")
		s.transition(internal.StateFailed)
		return
	}
	s.log.Info().Msgf("遍历完成，共 %d 条记录，%d 个错误", len(files), s.errs.Len())

	// 取消后不再进行 I/O，但仍对已有数据完成内存中的分组
	var split bucketer.Result
	if !s.cancelled() {
		s.transition(internal.StateBucketing)
	}
	split = bucketer.Split(files, s.opts.MinSize)
	candidates := 0
	for _, b := range split.Candidates {
		candidates += len(b.Records)
	}
	s.tracker.AddCandidates(candidates)
	s.log.Info().Msgf("大小预筛完成: %d 个候选桶, %d 个候选文件, %d 个空文件, %d 个硬链接",
		len(split.Candidates), candidates, len(split.Empty), split.HardLinks)

	var sets [][]*internal.FileRecord
	if !s.cancelled() && len(split.Candidates) > 0 {
		s.transition(internal.StateHashing)
		sets = s.hash(split.Candidates)
	}

	if !s.cancelled() {
		s.transition(internal.StateGrouping)
	}
	groups := grouper.Group(sets, split.Empty)
	if s.cancelled() {
		// 取消后跳过锁和权限检查，全部成员都不作为删除候选
		s.classifier.MarkIndeterminate(groups)
	} else {
		s.classifier.Annotate(groups)
	}

	result := &internal.ScanResult{
		ScanID:          s.id,
		Root:            s.root,
		AllFiles:        files,
		DuplicateGroups: groups,
		Stats:           stats.Aggregate(files, groups),
		Errors:          s.errs.Snapshot(),
		StartTime:       start,
		EndTime:         time.Now(),
	}

	final := internal.StateCompleted
	if s.cancelled() {
		final = internal.StateCancelled
	}
	result.State = final
	s.result = result
	s.transition(final)

	s.log.Info().
		Str("state", final.String()).
		Int("files", result.Stats.TotalFiles).
		Int("groups", len(groups)).
		Int("duplicates", result.Stats.DuplicateFileCount).
		Int64("reclaimable", result.Stats.ReclaimableBytes).
		Int("errors", len(result.Errors)).
		Dur("duration", result.EndTime.Sub(start)).
		Msg("扫描结束")
}

func (s *Scan) walk() ([]*internal.FileRecord, error) {
	walker := scanner.NewFileWalker(scanner.Options{
		Workers: s.opts.WalkWorkers,
		Exclude: s.opts.Exclude,
	})

	tr := walker.Walk(s.ctx, s.root)

	var files []*internal.FileRecord
	for item := range tr.Items() {
		if item.Err != nil {
			s.errs.Add(item.Err.Path, item.Err.Stage, item.Err.Err)
			continue
		}
		files = append(files, item.Record)
		s.tracker.Observe(item.Record)
	}

	if err := tr.Err(); err != nil {
		return nil, rootError(s.root, err)
	}
	return files, nil
}

func (s *Scan) hash(buckets []bucketer.Bucket) [][]*internal.FileRecord {
	pool, err := hasher.NewPool(s.opts.HashWorkers)
	if err != nil {
		// 无法创建池时每个文件都记为错误，扫描本身继续
		s.log.Error().Err(err).Msg("创建哈希计算池失败")
		for _, b := range buckets {
			for _, rec := range b.Records {
				s.errs.Add(rec.Path, internal.StagePartialHash, err)
			}
		}
		return nil
	}
	defer pool.Release()

	return s.hasher.Confirm(s.ctx, pool, buckets, &s.errs)
}

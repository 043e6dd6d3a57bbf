package internal

import (
	"fmt"
	"sync"
	"time"
)

// Kind 文件系统条目类型
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// Identity 设备号与 inode，用于识别硬链接
type Identity struct {
	Dev uint64
	Ino uint64
}

// FileRecord 一个文件系统条目
type FileRecord struct {
	Path     string
	Size     int64
	Modified time.Time
	Kind     Kind

	// 扫描期间由哈希阶段填充，扫描结束后不再修改
	PartialDigest string
	FullDigest    string
	MIME          string

	// Identity 仅在平台支持时有效
	Identity    Identity
	HasIdentity bool

	Safety Verdict
}

// Verdict 安全分类结果，零值视为不可删除
type Verdict struct {
	Safe    bool
	Reasons []string
}

// DuplicateGroup 内容完全相同的一组文件
type DuplicateGroup struct {
	Digest  string
	Size    int64
	Members []*FileRecord

	// Keep 建议保留的成员，由安全分类器设置
	Keep *FileRecord
}

// ReclaimableBytes 只保留一个副本时可释放的字节数
func (g *DuplicateGroup) ReclaimableBytes() int64 {
	if len(g.Members) < 2 {
		return 0
	}
	return g.Size * int64(len(g.Members)-1)
}

// DeletionCandidates 返回可以建议删除的成员：安全成员中除去保留项。
// 永远不会包含全部成员。
func (g *DuplicateGroup) DeletionCandidates() []*FileRecord {
	var out []*FileRecord
	for _, m := range g.Members {
		if m == g.Keep || !m.Safety.Safe {
			continue
		}
		out = append(out, m)
	}
	if len(out) == len(g.Members) {
		return out[1:]
	}
	return out
}

// ScanStats 扫描汇总
type ScanStats struct {
	TotalFiles         int
	TotalBytes         int64
	DuplicateFileCount int
	ReclaimableBytes   int64
}

// Stage 出错阶段
type Stage string

const (
	StageWalk        Stage = "walk"
	StagePartialHash Stage = "hash-partial"
	StageFullHash    Stage = "hash-full"
)

// ScanError 与具体路径关联的可恢复错误
type ScanError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ErrorList 只追加的错误列表，可被多个 worker 并发写入
type ErrorList struct {
	mu     sync.Mutex
	errors []*ScanError
}

func (l *ErrorList) Add(path string, stage Stage, err error) {
	l.mu.Lock()
	l.errors = append(l.errors, &ScanError{Path: path, Stage: stage, Err: err})
	l.mu.Unlock()
}

func (l *ErrorList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// Snapshot 返回当前错误的副本
func (l *ErrorList) Snapshot() []*ScanError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*ScanError, len(l.errors))
	copy(out, l.errors)
	return out
}

// ScanResult 一次扫描的最终结果，返回后不可变
type ScanResult struct {
	ScanID          string
	Root            string
	State           State
	AllFiles        []*FileRecord
	DuplicateGroups []*DuplicateGroup
	Stats           ScanStats
	Errors          []*ScanError
	StartTime       time.Time
	EndTime         time.Time
}

// State 扫描状态机
type State int32

const (
	StateIdle State = iota
	StateWalking
	StateBucketing
	StateHashing
	StateGrouping
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWalking:
		return "walking"
	case StateBucketing:
		return "bucketing"
	case StateHashing:
		return "hashing"
	case StateGrouping:
		return "grouping"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

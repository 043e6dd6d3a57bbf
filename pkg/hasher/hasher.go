package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// ErrSizeChanged 哈希时读到的长度与遍历时记录的大小不一致
var ErrSizeChanged = errors.New("file size changed since it was scanned")

type Options struct {
	Fs          afero.Fs
	PartialSize int64
	BufferSize  int
}

// Counters 哈希调用计数，用于进度显示和测试
type Counters struct {
	PartialCalls int64
	FullCalls    int64
	BytesRead    int64
}

type Hasher struct {
	fs          afero.Fs
	partialSize int64
	bufPool     sync.Pool

	partialCalls atomic.Int64
	fullCalls    atomic.Int64
	bytesRead    atomic.Int64
}

func New(opts Options) *Hasher {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.PartialSize <= 0 {
		opts.PartialSize = internal.DefaultPartialSize
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = internal.DefaultReadBufferSize
	}

	bufSize := opts.BufferSize
	return &Hasher{
		fs:          opts.Fs,
		partialSize: opts.PartialSize,
		bufPool: sync.Pool{
			New: func() any {
				buf := make([]byte, bufSize)
				return &buf
			},
		},
	}
}

func (h *Hasher) Counters() Counters {
	return Counters{
		PartialCalls: h.partialCalls.Load(),
		FullCalls:    h.fullCalls.Load(),
		BytesRead:    h.bytesRead.Load(),
	}
}

// Partial 计算前 PartialSize 字节的 xxHash。
// 文件不超过 PartialSize 时同一次读取顺带算出完整 SHA-256。
func (h *Hasher) Partial(rec *internal.FileRecord) error {
	h.partialCalls.Add(1)

	file, err := h.fs.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	prefix := xxhash.New()
	sum := sha256.New()
	var w io.Writer = prefix

	whole := rec.Size <= h.partialSize
	if whole {
		w = io.MultiWriter(prefix, sum)
	}

	head := true
	n, err := h.stream(w, io.LimitReader(file, h.partialSize), func(chunk []byte) {
		if !head {
			return
		}
		head = false
		if kind, err := filetype.Match(chunk); err == nil && kind != filetype.Unknown {
			rec.MIME = kind.MIME.Value
		}
	})
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	if n != min(rec.Size, h.partialSize) {
		return ErrSizeChanged
	}

	rec.PartialDigest = fmt.Sprintf("%016x", prefix.Sum64())
	if whole {
		rec.FullDigest = hex.EncodeToString(sum.Sum(nil))
	}

	logger.Get().Trace().Str("path", rec.Path).Str("digest", rec.PartialDigest).Msg("部分哈希完成")
	return nil
}

// Full 顺序读取整个文件计算 SHA-256
func (h *Hasher) Full(rec *internal.FileRecord) error {
	h.fullCalls.Add(1)

	file, err := h.fs.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	sum := sha256.New()
	n, err := h.stream(sum, file, nil)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	if n != rec.Size {
		return ErrSizeChanged
	}

	rec.FullDigest = hex.EncodeToString(sum.Sum(nil))
	logger.Get().Trace().Str("path", rec.Path).Str("digest", rec.FullDigest).Msg("完整哈希完成")
	return nil
}

// stream 用固定大小的缓冲区单向读取 r，缓冲区大小与文件大小无关
func (h *Hasher) stream(w io.Writer, r io.Reader, onChunk func([]byte)) (int64, error) {
	bufp := h.bufPool.Get().(*[]byte)
	defer h.bufPool.Put(bufp)
	buf := *bufp

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if onChunk != nil {
				onChunk(buf[:n])
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			h.bytesRead.Add(int64(n))
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

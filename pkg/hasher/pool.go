package hasher

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// Pool 固定大小的哈希 goroutine 池，每个在途任务持有一个文件句柄和一个缓冲区
type Pool struct {
	workers int
	pool    *ants.Pool
}

func NewPool(workers int) (*Pool, error) {
	if workers <= 0 {
		workers = 1
	}
	logger.Get().Debug().Msgf("创建哈希计算池，工作线程数: %d", workers)

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Pool{workers: workers, pool: pool}, nil
}

// Run 为 0..n-1 的每个下标派发一个任务并等待全部完成。
// 每次派发前检查 ctx；取消后不再开始新任务，已开始的任务执行完毕。
// 返回实际执行的任务数。
func (p *Pool) Run(ctx context.Context, n int, job func(i int)) int {
	var wg sync.WaitGroup
	var started atomic.Int64

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			// Submit 可能阻塞到有空闲 worker，期间取消的任务不再执行
			if ctx.Err() != nil {
				return
			}
			started.Add(1)
			job(i)
		})
		if err != nil {
			wg.Done()
			logger.Get().Error().Err(err).Msg("提交哈希任务失败")
			break
		}
	}

	wg.Wait()
	return int(started.Load())
}

func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) Release() {
	logger.Get().Debug().Msg("关闭哈希计算池")
	p.pool.Release()
}

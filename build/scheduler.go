package build

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/voxelsplace/voxbuild/grid"
)

// ChunkFunc processes one chunk using a cache owned by the calling worker.
type ChunkFunc func(cache *grid.GridCache, c grid.Chunk) error

// Scheduler decides how the chunks of a build are distributed. Run returns
// the first error produced by work. A panic in work is re-raised on the
// goroutine that called Run.
type Scheduler interface {
	Run(ctx context.Context, chunks []grid.Chunk, work ChunkFunc) error
}

// Sequential processes chunks in order, reusing a single cache.
type Sequential struct{}

func (Sequential) Run(ctx context.Context, chunks []grid.Chunk, work ChunkFunc) error {
	cache := &grid.GridCache{}
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := work(cache, c); err != nil {
			return err
		}
	}
	return nil
}

// Parallel processes chunks on a fixed set of workers, each with its own
// cache. Workers <= 0 means runtime.NumCPU().
type Parallel struct {
	Workers int
}

// workerPanic carries a recovered panic value out of a worker goroutine.
type workerPanic struct {
	value any
}

func (p *workerPanic) Error() string {
	return fmt.Sprintf("panic in chunk worker: %v", p.value)
}

func (p Parallel) Run(ctx context.Context, chunks []grid.Chunk, work ChunkFunc) error {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(chunks))
	if workers == 0 {
		return nil
	}

	next := make(chan grid.Chunk)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(next)
		for _, c := range chunks {
			select {
			case next <- c:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &workerPanic{value: r}
				}
			}()
			cache := &grid.GridCache{}
			for c := range next {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := work(cache, c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if wp, ok := err.(*workerPanic); ok {
		panic(wp.value)
	}
	if err == nil {
		// The feeder stops quietly on cancellation; report it here.
		err = ctx.Err()
	}
	return err
}

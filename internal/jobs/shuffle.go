package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

var ErrPoolClosed = errors.New("shuffle pool closed")

type ShuffleRequest struct {
	Index int
	Items []string
	Seed  xorshift.Seed

	// Reply receives exactly one result unless the pool shuts down first.
	Reply chan<- ShuffleResult
}

type ShuffleResult struct {
	Index  int
	Values []string
	Seed   xorshift.Seed
	Err    error
}

// ShufflePool runs independent shuffles on a fixed set of workers.
// Every request brings its own seed; workers share no generator state.
type ShufflePool struct {
	req  chan ShuffleRequest
	quit chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewShufflePool(workerCount, queueSize int) *ShufflePool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &ShufflePool{
		req:  make(chan ShuffleRequest, queueSize),
		quit: make(chan struct{}),
	}

	p.wg.Add(workerCount)
	for range workerCount {
		go p.worker()
	}

	return p
}

func (p *ShufflePool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

// Submit queues req, blocking until there is room, ctx ends or the pool closes.
func (p *ShufflePool) Submit(ctx context.Context, req ShuffleRequest) error {
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.req <- req:
		return nil
	}
}

func (p *ShufflePool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return

		case req := <-p.req:
			res := ComputeShuffle(req)

			// Never block worker shutdown on a reader that went away.
			select {
			case <-p.quit:
				return
			case req.Reply <- res:
			}
		}
	}
}

func ComputeShuffle(req ShuffleRequest) ShuffleResult {
	res, err := xorshift.Shuffle(req.Items, req.Seed)
	if err != nil {
		return ShuffleResult{Index: req.Index, Seed: req.Seed, Err: err}
	}
	return ShuffleResult{Index: req.Index, Values: res.Value, Seed: res.Seed}
}

// Run fans reqs out over the pool and returns results in request order.
// Request Index and Reply fields are overwritten.
func Run(ctx context.Context, p *ShufflePool, reqs []ShuffleRequest) ([]ShuffleResult, error) {
	replies := make(chan ShuffleResult, len(reqs))

	submitted := 0
	for i, r := range reqs {
		r.Index = i
		r.Reply = replies
		if err := p.Submit(ctx, r); err != nil {
			return nil, err
		}
		submitted++
	}

	out := make([]ShuffleResult, len(reqs))
	for range submitted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.quit:
			return nil, ErrPoolClosed
		case res := <-replies:
			out[res.Index] = res
		}
	}
	return out, nil
}

package worker

import (
	"context"
	"log"
	"runtime"
	"sync"

	"snipper/src/capture"
	"snipper/src/session"
)

// RunFunc captures and delivers one target.
type RunFunc func(ctx context.Context, target capture.Target) (session.Result, error)

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res session.Result, err error)

// Pool is a fixed-size capture worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	run  RunFunc
	jobs chan job
	wg   sync.WaitGroup
	once sync.Once
}

type job struct {
	ctx    context.Context
	target capture.Target
	cb     ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, run RunFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{run: run, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting capture of %s", j.target)
				res, err := p.runJob(j)
				log.Printf("Worker: capture completed, path=%q err=%v", res.Path, err)
				j.cb(res, err)
			}
		}()
	}
}

func (p *Pool) runJob(j job) (res session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: PANIC during capture: %v", r)
			err = capture.NewError(capture.KindCaptureFailed, "worker", nil)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		return session.Result{}, err
	}
	return p.run(j.ctx, j.target)
}

// Submit enqueues a capture job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, target capture.Target, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, target: target, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

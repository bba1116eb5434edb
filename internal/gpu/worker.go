package gpu

import (
	"fmt"
	"sync"
)

// rowJob processes rows [y0, y1) of a pass on behalf of one worker.
type rowJob func(worker, y0, y1 int)

// workerPool runs the rows of a pass on persistent goroutines. Every worker
// takes one contiguous band of rows per step; run returns once all bands are
// done, so passes never overlap.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	step    int
	pending int
	rows    int
	job     rowJob
	fault   any
	closed  bool
}

// minRowsPerWorker keeps tiny passes on the calling goroutine.
const minRowsPerWorker = 4

func newWorkerPool(count int) *workerPool {
	if count < 1 {
		count = 1
	}
	p := &workerPool{count: count}
	p.cond = sync.NewCond(&p.mu)
	if count > 1 {
		for i := 0; i < count; i++ {
			go p.loop(i)
		}
	}
	return p
}

// size reports the number of workers, which is also the number of scratch
// slots a job may index.
func (p *workerPool) size() int { return p.count }

func (p *workerPool) loop(index int) {
	lastStep := 0
	p.mu.Lock()
	for {
		for p.step == lastStep && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		lastStep = p.step
		job, rows := p.job, p.rows
		p.mu.Unlock()

		y0, y1 := band(index, p.count, rows)
		fault := runBand(job, index, y0, y1)

		p.mu.Lock()
		if fault != nil && p.fault == nil {
			p.fault = fault
		}
		p.pending--
		if p.pending == 0 {
			p.cond.Broadcast()
		}
	}
}

// run executes job over rows and blocks until every band has finished. A
// panic inside a band is re-raised on the caller's goroutine.
func (p *workerPool) run(rows int, job rowJob) {
	if rows <= 0 {
		return
	}
	if p.count == 1 || rows < p.count*minRowsPerWorker {
		job(0, 0, rows)
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		job(0, 0, rows)
		return
	}
	p.job, p.rows = job, rows
	p.pending = p.count
	p.fault = nil
	p.step++
	p.cond.Broadcast()
	for p.pending > 0 {
		p.cond.Wait()
	}
	fault := p.fault
	p.job, p.fault = nil, nil
	p.mu.Unlock()
	if fault != nil {
		panic(fmt.Sprintf("gpu: pass worker: %v", fault))
	}
}

// close stops the worker goroutines. It must not race with run.
func (p *workerPool) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

func runBand(job rowJob, index, y0, y1 int) (fault any) {
	if y0 >= y1 {
		return nil
	}
	defer func() {
		fault = recover()
	}()
	job(index, y0, y1)
	return nil
}

// band splits rows into count contiguous ranges and returns range index.
func band(index, count, rows int) (int, int) {
	return rows * index / count, rows * (index + 1) / count
}

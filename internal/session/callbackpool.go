package session

import (
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// callbackPool runs subscriber/queryable/query callbacks outside the
// session lock: a fixed goroutine count draining a buffered queue,
// falling back to a synchronous call when the queue is full so a slow
// consumer never silently drops a sample.
type callbackPool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func newCallbackPool(workers, queueSize int, logger zerolog.Logger) *callbackPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = workers * 64
	}
	p := &callbackPool{tasks: make(chan func(), queueSize), logger: logger}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *callbackPool) worker() {
	defer p.wg.Done()
	for fn := range p.tasks {
		p.run(fn)
	}
}

func (p *callbackPool) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("callback panicked")
		}
	}()
	fn()
}

// Submit queues fn, running it synchronously if the queue is full.
func (p *callbackPool) Submit(fn func()) {
	select {
	case p.tasks <- fn:
	default:
		p.run(fn)
	}
}

func (p *callbackPool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

package stream

import (
	"sync"

	"market-stream/src/helpers"
	"market-stream/src/logger"
)

// WorkerPool runs session start tasks and poll executions on a fixed number of
// goroutines fed by a bounded queue. Submit never blocks: a full queue rejects.
type WorkerPool struct {
	tasks  chan func()
	logger *logger.Logger
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewWorkerPool(workers, queueSize int, log *logger.Logger) *WorkerPool {
	p := &WorkerPool{
		tasks:  make(chan func(), queueSize),
		logger: log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// -----------------------------------------------------------------------------

func (p *WorkerPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return helpers.ErrPoolStopped
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return helpers.ErrQueueFull
	}
}

// Pending returns the number of queued, not yet started tasks.
func (p *WorkerPool) Pending() int {
	return len(p.tasks)
}

// Stop rejects new tasks, runs what is already queued and waits for the workers.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// -----------------------------------------------------------------------------

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker task panicked: %v", r)
		}
	}()
	task()
}

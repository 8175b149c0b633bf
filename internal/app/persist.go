package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

type persistJob struct {
	name string
	fn   func(ctx context.Context) error
}

// Persister runs store writes off the realtime path. Jobs are fire-and-forget:
// a full queue drops the job, a failing job is logged, nothing is retried.
type Persister struct {
	jobs    chan persistJob
	timeout time.Duration
	wg      conc.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPersister(workers, queueSize int, timeout time.Duration) *Persister {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Persister{
		jobs:    make(chan persistJob, queueSize),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		p.wg.Go(p.work)
	}
	log.Info().Str("module", "app.persist").Int("workers", workers).Int("queue", queueSize).Msg("persister started")
	return p
}

// Submit enqueues fn without blocking and reports whether it was accepted.
func (p *Persister) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Warn().Str("module", "app.persist").Str("job", name).Msg("persister closed, job dropped")
		return false
	}
	select {
	case p.jobs <- persistJob{name: name, fn: fn}:
		return true
	default:
		log.Warn().Str("module", "app.persist").Str("job", name).Msg("queue full, job dropped")
		return false
	}
}

func (p *Persister) work() {
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Persister) run(j persistJob) {
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		err = j.fn(ctx)
	})
	if r := pc.Recovered(); r != nil {
		log.Error().Str("module", "app.persist").Str("job", j.name).Interface("panic", r.Value).Msg("job panicked")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.persist").Str("job", j.name).Msg("job failed")
	}
}

// Close stops accepting jobs and waits for the queue to drain.
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	log.Info().Str("module", "app.persist").Msg("persister drained")
}

package queue

import (
	"log"
	"sync"
	"time"
)

// AgingEngine runs the periodic aging pass that prevents starvation. It is a
// cancellable background timer, not a fire-and-forget daemon: the owning
// scheduler stops it deterministically during shutdown and in tests.
type AgingEngine struct {
	sched    *Scheduler
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newAgingEngine(s *Scheduler, interval time.Duration) *AgingEngine {
	return &AgingEngine{
		sched:    s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (a *AgingEngine) start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true
	go a.run()
}

// stop signals shutdown and waits for the loop to exit. Safe to call more
// than once, and before start.
func (a *AgingEngine) stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	started := a.started
	close(a.stopCh)
	a.mu.Unlock()

	if started {
		<-a.doneCh
	}
}

func (a *AgingEngine) run() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(last).Minutes()
			last = now
			if starving := a.sched.ApplyAging(elapsed); len(starving) > 0 {
				log.Printf("queue: %d patients past starvation threshold: %v", len(starving), starving)
			}
		case <-a.stopCh:
			return
		}
	}
}

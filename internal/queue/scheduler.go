package queue

import (
	"container/heap"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"clinic-scheduler/internal/models"
)

// StarvationFunc is called for every record whose waiting time has crossed
// the starvation threshold during an aging pass. Observational only; the
// record's position is governed by the normal score recompute.
type StarvationFunc func(token int, waitingMinutes float64)

// Scheduler is the dynamic priority scheduler for the clinic queue.
//
// It owns two indexed min-heaps. The emergency heap holds every CRITICAL
// record and is drained unconditionally before the main heap: a critical
// patient with a numerically worse score is still served before any normal
// patient. Within each heap, ordering is by ascending priority score.
//
// All mutating operations and aging ticks are serialized through one mutex so
// the heap invariant and the token index are never observed mid-mutation.
// Persistence is best-effort: a failing store degrades the scheduler to
// in-memory-only operation and is never fatal to scheduling.
type Scheduler struct {
	mu       sync.Mutex
	weights  Weights
	main     recordHeap
	emerg    recordHeap
	byToken  map[int]*entry
	degraded bool

	totalEnqueued   uint64
	totalDequeued   uint64
	reheapifyEvents uint64

	store DataStore

	aging               *AgingEngine
	agingInterval       time.Duration
	starvationThreshold float64
	onStarvation        StarvationFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWeights overrides the default scoring weights.
func WithWeights(w Weights) Option {
	return func(s *Scheduler) { s.weights = w }
}

// WithStore attaches a persistence collaborator.
func WithStore(ds DataStore) Option {
	return func(s *Scheduler) { s.store = ds }
}

// WithAgingInterval sets the period of the aging engine.
func WithAgingInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.agingInterval = d }
}

// WithStarvationThreshold sets the waiting-minutes threshold beyond which a
// record is reported as starving.
func WithStarvationThreshold(minutes float64) Option {
	return func(s *Scheduler) { s.starvationThreshold = minutes }
}

// WithStarvationFunc registers the starvation alert hook.
func WithStarvationFunc(f StarvationFunc) Option {
	return func(s *Scheduler) { s.onStarvation = f }
}

// NewScheduler creates a stopped scheduler. Call Start to rehydrate from the
// store and begin aging.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		weights:             DefaultWeights(),
		byToken:             make(map[int]*entry),
		agingInterval:       5 * time.Minute,
		starvationThreshold: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aging = newAgingEngine(s, s.agingInterval)
	return s
}

// Start rehydrates the in-memory heaps from the store, then starts the aging
// engine. Store failures are logged and leave the scheduler running empty and
// degraded.
func (s *Scheduler) Start(ctx context.Context) {
	if s.store != nil {
		recs, err := s.store.ListActive(ctx)
		if err != nil {
			log.Printf("queue: rehydration failed, continuing in-memory: %v", err)
			s.setDegraded(true)
		} else {
			s.rehydrate(recs)
		}
	}
	s.aging.start()
}

// Stop halts the aging engine deterministically. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.aging.stop()
}

func (s *Scheduler) rehydrate(recs []*models.PatientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if rec.Status != models.StatusWaiting {
			continue
		}
		if _, dup := s.byToken[rec.Token]; dup {
			continue
		}
		rec.PriorityScore = s.weights.Score(rec)
		s.insertLocked(rec)
	}
	if len(recs) > 0 {
		log.Printf("queue: rehydrated %d waiting patients", len(s.byToken))
	}
}

// Enqueue scores and inserts the record, taking ownership of it: the queued
// record keeps mutating under the lock as aging and updates run. The returned
// snapshot is a consistent copy taken before the lock is released, safe for
// callers and for persistence to read. Fails only for a duplicate token;
// store write failures degrade silently to in-memory.
func (s *Scheduler) Enqueue(ctx context.Context, rec *models.PatientRecord) (*models.PatientRecord, error) {
	s.mu.Lock()
	if _, dup := s.byToken[rec.Token]; dup {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: token %d already queued", models.ErrInvalidInput, rec.Token)
	}
	rec.Status = models.StatusWaiting
	rec.Tier = models.TierForScore(rec.Urgency.Score)
	rec.PriorityScore = s.weights.Score(rec)
	rec.LastPriorityUpdate = time.Now().UTC()
	s.insertLocked(rec)
	s.totalEnqueued++
	snap := rec.Clone()
	s.mu.Unlock()

	s.persist(func() error { return s.store.CreateRecord(ctx, snap) })
	s.persist(func() error { return s.store.IncrementCounter(ctx, "total_enqueued") })
	return snap, nil
}

func (s *Scheduler) insertLocked(rec *models.PatientRecord) {
	e := &entry{rec: rec, index: -1, emergency: rec.Tier == models.TierCritical}
	if e.emergency {
		heap.Push(&s.emerg, e)
	} else {
		heap.Push(&s.main, e)
	}
	s.byToken[rec.Token] = e
}

// Dequeue removes and returns the next patient to serve. The emergency heap
// is always drained first. Reports false when both heaps are empty.
func (s *Scheduler) Dequeue(ctx context.Context) (*models.PatientRecord, bool) {
	s.mu.Lock()
	var e *entry
	switch {
	case s.emerg.Len() > 0:
		e = heap.Pop(&s.emerg).(*entry)
	case s.main.Len() > 0:
		e = heap.Pop(&s.main).(*entry)
	default:
		s.mu.Unlock()
		return nil, false
	}
	delete(s.byToken, e.rec.Token)
	e.rec.Status = models.StatusInConsultation
	s.totalDequeued++
	s.mu.Unlock()

	s.persist(func() error { return s.store.MarkStatus(ctx, e.rec.Token, models.StatusInConsultation) })
	s.persist(func() error { return s.store.IncrementCounter(ctx, "total_dequeued") })
	return e.rec, true
}

// Peek returns a copy of the next patient without removing them.
func (s *Scheduler) Peek() (*models.PatientRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.emerg.Len() > 0:
		return s.emerg[0].rec.Clone(), true
	case s.main.Len() > 0:
		return s.main[0].rec.Clone(), true
	default:
		return nil, false
	}
}

// Lookup resolves a token to its record: a copy of the queued record when the
// token is in memory, otherwise the stored record (served and cancelled
// bookings survive only in the store). Reports false when neither has it.
func (s *Scheduler) Lookup(ctx context.Context, token int) (*models.PatientRecord, bool) {
	s.mu.Lock()
	if e, ok := s.byToken[token]; ok {
		rec := e.rec.Clone()
		s.mu.Unlock()
		return rec, true
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil, false
	}
	rec, err := s.store.FindByToken(ctx, token)
	if err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// Remove cancels a specific booking by token. Unknown tokens report false and
// mutate nothing.
func (s *Scheduler) Remove(ctx context.Context, token int) bool {
	s.mu.Lock()
	e, ok := s.byToken[token]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if e.emergency {
		heap.Remove(&s.emerg, e.index)
	} else {
		heap.Remove(&s.main, e.index)
	}
	delete(s.byToken, token)
	e.rec.Status = models.StatusCancelled
	s.totalDequeued++
	s.mu.Unlock()

	s.persist(func() error { return s.store.MarkStatus(ctx, token, models.StatusCancelled) })
	s.persist(func() error { return s.store.IncrementCounter(ctx, "total_cancelled") })
	return true
}

// AttributeUpdate carries a partial real-time update. Nil fields are left
// untouched.
type AttributeUpdate struct {
	TravelMinutes      *float64
	ArrivalProbability *float64
}

// UpdateAttributes applies the update, recomputes the score, and restores the
// heap ordering. Unknown tokens report false and mutate nothing.
func (s *Scheduler) UpdateAttributes(ctx context.Context, token int, upd AttributeUpdate) bool {
	s.mu.Lock()
	e, ok := s.byToken[token]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if upd.TravelMinutes != nil {
		e.rec.TravelMinutes = *upd.TravelMinutes
	}
	if upd.ArrivalProbability != nil {
		e.rec.ArrivalProbability = *upd.ArrivalProbability
	}
	e.rec.PriorityScore = s.weights.Score(e.rec)
	e.rec.LastPriorityUpdate = time.Now().UTC()
	if e.emergency {
		heap.Fix(&s.emerg, e.index)
	} else {
		heap.Fix(&s.main, e.index)
	}
	s.reheapifyEvents++
	s.mu.Unlock()
	return true
}

// ApplyAging adds the elapsed minutes to every waiting record, recomputes all
// scores, and re-heapifies both heaps once. Waiting time only grows and its
// weight is subtracted, so aging can only move a record toward more urgent.
// Returns the tokens that have crossed the starvation threshold.
func (s *Scheduler) ApplyAging(elapsedMinutes float64) []int {
	if elapsedMinutes <= 0 {
		return nil
	}
	now := time.Now().UTC()

	s.mu.Lock()
	var starving []int
	var starvingWait []float64
	for token, e := range s.byToken {
		e.rec.WaitingMinutes += elapsedMinutes
		e.rec.PriorityScore = s.weights.Score(e.rec)
		e.rec.LastPriorityUpdate = now
		if e.rec.WaitingMinutes > s.starvationThreshold {
			starving = append(starving, token)
			starvingWait = append(starvingWait, e.rec.WaitingMinutes)
		}
	}
	heap.Init(&s.main)
	heap.Init(&s.emerg)
	s.reheapifyEvents++
	s.checkInvariantsLocked()
	hook := s.onStarvation
	s.mu.Unlock()

	if hook != nil {
		for i, token := range starving {
			hook(token, starvingWait[i])
		}
	}
	return starving
}

// Len reports the number of queued records across both heaps.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}

// Degraded reports whether a store failure has been observed.
func (s *Scheduler) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Scheduler) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

// persist runs a best-effort store call outside the scheduler lock.
func (s *Scheduler) persist(fn func() error) {
	if s.store == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("queue: store unavailable, operating in-memory: %v", err)
		s.setDegraded(true)
	}
}

// checkInvariantsLocked panics on internal corruption. Exactly one of
// {in main, in emergency, not queued} must hold per record, every emergency
// entry must be critical, and both heaps must satisfy the min-heap property.
func (s *Scheduler) checkInvariantsLocked() {
	if len(s.byToken) != s.main.Len()+s.emerg.Len() {
		panic(fmt.Sprintf("queue: token index holds %d entries, heaps hold %d",
			len(s.byToken), s.main.Len()+s.emerg.Len()))
	}
	for _, e := range s.emerg {
		if e.rec.Tier != models.TierCritical {
			panic(fmt.Sprintf("queue: non-critical token %d in emergency heap", e.rec.Token))
		}
	}
	s.main.mustHold("main")
	s.emerg.mustHold("emergency")
}

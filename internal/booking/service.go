// Package booking composes the classifier, the geocoder, the ETA estimator,
// and the scheduler into the booking flow. ETA resolution happens before the
// scheduler is touched, so no network call ever runs under the queue lock.
package booking

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"clinic-scheduler/internal/eta"
	"clinic-scheduler/internal/models"
	"clinic-scheduler/internal/queue"
	"clinic-scheduler/internal/triage"
)

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (eta.Coord, error)
}

// TokenSource allocates booking tokens. The Postgres store provides the
// durable implementation; a local counter stands in when the store is down.
type TokenSource interface {
	NextToken(ctx context.Context) (int, error)
}

// Service handles new bookings and real-time location updates.
type Service struct {
	sched    *queue.Scheduler
	est      *eta.Estimator
	geocoder Geocoder
	tokens   TokenSource
	clinic   eta.Coord

	fallbackToken atomic.Int64
}

func NewService(sched *queue.Scheduler, est *eta.Estimator, geocoder Geocoder, tokens TokenSource, clinic eta.Coord) *Service {
	return &Service{
		sched:    sched,
		est:      est,
		geocoder: geocoder,
		tokens:   tokens,
		clinic:   clinic,
	}
}

// Book classifies the symptoms, resolves the travel ETA, and enqueues a new
// patient record. The returned record is a snapshot: the queued one keeps
// aging under the scheduler lock.
func (s *Service) Book(ctx context.Context, name, contact, symptoms, address string) (*models.PatientRecord, error) {
	analysis := triage.Classify(symptoms)

	origin, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	estimate := s.est.Estimate(ctx, origin, s.clinic)

	token := s.nextToken(ctx)
	rec, err := models.NewPatientRecord(token, name, analysis.Urgency, estimate.Minutes)
	if err != nil {
		return nil, err
	}
	rec.Contact = contact
	rec.Symptoms = symptoms
	rec.Location = address
	rec.MatchedCategories = analysis.Matched

	queued, err := s.sched.Enqueue(ctx, rec)
	if err != nil {
		return nil, err
	}
	log.Printf("booking: token %d tier %s score %.2f eta %.1fmin via %s",
		queued.Token, queued.Tier, queued.PriorityScore, estimate.Minutes, estimate.Method)
	return queued, nil
}

// UpdateLocation re-estimates travel time from the patient's new position and
// applies it to the queued record. Reports false for unknown tokens.
func (s *Service) UpdateLocation(ctx context.Context, token int, position eta.Coord) bool {
	estimate := s.est.Estimate(ctx, position, s.clinic)
	minutes := estimate.Minutes
	return s.sched.UpdateAttributes(ctx, token, queue.AttributeUpdate{TravelMinutes: &minutes})
}

func (s *Service) nextToken(ctx context.Context) int {
	if s.tokens != nil {
		token, err := s.tokens.NextToken(ctx)
		if err == nil {
			// Keep the local counter ahead so a later store outage cannot
			// reissue a token.
			for {
				cur := s.fallbackToken.Load()
				if int64(token) <= cur || s.fallbackToken.CompareAndSwap(cur, int64(token)) {
					break
				}
			}
			return token
		}
		log.Printf("booking: token allocation degraded to in-memory: %v", err)
	}
	return int(s.fallbackToken.Add(1))
}

package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-scheduler/internal/eta"
	"clinic-scheduler/internal/queue"
)

type stubGeocoder struct {
	coord eta.Coord
	err   error
}

func (g stubGeocoder) Geocode(ctx context.Context, address string) (eta.Coord, error) {
	return g.coord, g.err
}

type stubTokens struct {
	next func() (int, error)
}

func (s stubTokens) NextToken(ctx context.Context) (int, error) { return s.next() }

var (
	bandra = eta.Coord{Lat: 19.0596, Lon: 72.8295}
	dadar  = eta.Coord{Lat: 19.0186, Lon: 72.8481}
)

// offPeak pins the estimator at 15:00 so every traffic factor is 1.0.
func offPeak() time.Time {
	return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, geocoder Geocoder, tokens TokenSource) (*Service, *queue.Scheduler) {
	t.Helper()
	sched := queue.NewScheduler()
	est := eta.NewEstimator(eta.DemoGraph(), eta.WithClock(offPeak))
	return NewService(sched, est, geocoder, tokens, dadar), sched
}

func TestBook(t *testing.T) {
	tokens := stubTokens{next: func() (int, error) { return 41, nil }}
	svc, sched := newTestService(t, stubGeocoder{coord: bandra}, tokens)

	rec, err := svc.Book(context.Background(), "Asha Rao", "98200 00000", "fever and cough", "Bandra West, Mumbai")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.Token != 41 {
		t.Errorf("token = %d, want 41", rec.Token)
	}
	// Bandra to Dadar is a direct 10-minute link at traffic factor 1.0.
	if rec.TravelMinutes != 10 {
		t.Errorf("travel minutes = %v, want 10", rec.TravelMinutes)
	}
	if rec.Urgency.Category != "minor_illness" {
		t.Errorf("category = %q, want minor_illness", rec.Urgency.Category)
	}
	if len(rec.MatchedCategories) != 1 || rec.MatchedCategories[0] != "minor_illness" {
		t.Errorf("matched categories = %v", rec.MatchedCategories)
	}
	if rec.Location != "Bandra West, Mumbai" || rec.Contact != "98200 00000" {
		t.Errorf("contact fields not carried: %+v", rec)
	}
	if sched.Len() != 1 {
		t.Errorf("queue length = %d, want 1", sched.Len())
	}
}

func TestBook_ReturnsDetachedRecord(t *testing.T) {
	tokens := stubTokens{next: func() (int, error) { return 3, nil }}
	svc, sched := newTestService(t, stubGeocoder{coord: bandra}, tokens)

	rec, err := svc.Book(context.Background(), "Asha Rao", "", "fever", "Bandra")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// The caller gets a snapshot; mutating it must not reach the queue.
	rec.PriorityScore = -500
	head, _ := sched.Peek()
	if head.PriorityScore == -500 {
		t.Error("Book exposed the live queued record")
	}
}

func TestBook_GeocoderError(t *testing.T) {
	boom := errors.New("nominatim down")
	svc, sched := newTestService(t, stubGeocoder{err: boom}, nil)

	_, err := svc.Book(context.Background(), "Asha Rao", "", "fever", "nowhere")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped geocoder error", err)
	}
	if sched.Len() != 0 {
		t.Errorf("queue length = %d, want 0", sched.Len())
	}
}

func TestBook_DuplicateTokenFromStore(t *testing.T) {
	tokens := stubTokens{next: func() (int, error) { return 7, nil }}
	svc, _ := newTestService(t, stubGeocoder{coord: bandra}, tokens)

	if _, err := svc.Book(context.Background(), "First", "", "fever", "Bandra"); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	if _, err := svc.Book(context.Background(), "Second", "", "fever", "Bandra"); err == nil {
		t.Fatal("expected duplicate-token error")
	}
}

func TestBook_TokenFallback(t *testing.T) {
	svc, _ := newTestService(t, stubGeocoder{coord: bandra}, nil)

	first, err := svc.Book(context.Background(), "One", "", "fever", "Bandra")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	second, err := svc.Book(context.Background(), "Two", "", "cough", "Bandra")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if first.Token != 1 || second.Token != 2 {
		t.Errorf("tokens = %d, %d, want 1, 2", first.Token, second.Token)
	}
}

func TestBook_FallbackCounterStaysAheadOfStore(t *testing.T) {
	var storeUp = true
	tokens := stubTokens{next: func() (int, error) {
		if !storeUp {
			return 0, errors.New("connection refused")
		}
		return 41, nil
	}}
	svc, _ := newTestService(t, stubGeocoder{coord: bandra}, tokens)

	rec, err := svc.Book(context.Background(), "One", "", "fever", "Bandra")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if rec.Token != 41 {
		t.Fatalf("token = %d, want 41", rec.Token)
	}

	storeUp = false
	rec, err = svc.Book(context.Background(), "Two", "", "cough", "Bandra")
	if err != nil {
		t.Fatalf("Book after outage: %v", err)
	}
	if rec.Token != 42 {
		t.Errorf("token = %d, want 42", rec.Token)
	}
}

func TestUpdateLocation(t *testing.T) {
	tokens := stubTokens{next: func() (int, error) { return 5, nil }}
	svc, sched := newTestService(t, stubGeocoder{coord: bandra}, tokens)

	if _, err := svc.Book(context.Background(), "Asha Rao", "", "fever", "Bandra"); err != nil {
		t.Fatalf("Book: %v", err)
	}

	// Patient is now at the clinic itself: ETA collapses to zero.
	if !svc.UpdateLocation(context.Background(), 5, dadar) {
		t.Fatal("UpdateLocation returned false for a queued token")
	}
	snap := sched.Snapshot()
	if len(snap.Patients) != 1 || snap.Patients[0].TravelMinutes != 0 {
		t.Errorf("snapshot after update = %+v", snap.Patients)
	}

	if svc.UpdateLocation(context.Background(), 99, bandra) {
		t.Error("UpdateLocation returned true for an unknown token")
	}
}

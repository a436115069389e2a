package queue

import (
	"sort"

	"clinic-scheduler/internal/models"
)

// QueueEntry is one patient's position in a snapshot.
type QueueEntry struct {
	Token          int         `json:"token"`
	Name           string      `json:"name"`
	Tier           models.Tier `json:"tier"`
	PriorityScore  float64     `json:"priority_score"`
	WaitingMinutes float64     `json:"waiting_minutes"`
	TravelMinutes  float64     `json:"travel_minutes"`
	Symptoms       string      `json:"symptoms"`
}

// Snapshot is an immutable ordered view of the queue: emergency records
// sorted by score, then main-queue records sorted by score, plus lifetime
// counters.
type Snapshot struct {
	Total          int          `json:"total"`
	EmergencyCount int          `json:"emergency_count"`
	MainCount      int          `json:"main_count"`
	Patients       []QueueEntry `json:"patients"`

	TotalEnqueued   uint64 `json:"total_enqueued"`
	TotalDequeued   uint64 `json:"total_dequeued"`
	ReheapifyEvents uint64 `json:"reheapify_events"`
}

// Snapshot builds the current view from copies taken under the lock; it never
// mutates the heaps, and two consecutive calls with no intervening mutation
// return identical output.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	emerg := make([]QueueEntry, 0, s.emerg.Len())
	for _, e := range s.emerg {
		emerg = append(emerg, snapshotEntry(e.rec))
	}
	main := make([]QueueEntry, 0, s.main.Len())
	for _, e := range s.main {
		main = append(main, snapshotEntry(e.rec))
	}
	snap := Snapshot{
		EmergencyCount:  len(emerg),
		MainCount:       len(main),
		TotalEnqueued:   s.totalEnqueued,
		TotalDequeued:   s.totalDequeued,
		ReheapifyEvents: s.reheapifyEvents,
	}
	s.mu.Unlock()

	sortEntries(emerg)
	sortEntries(main)
	snap.Patients = append(emerg, main...)
	snap.Total = len(snap.Patients)
	return snap
}

func snapshotEntry(rec *models.PatientRecord) QueueEntry {
	return QueueEntry{
		Token:          rec.Token,
		Name:           rec.Name,
		Tier:           rec.Tier,
		PriorityScore:  rec.PriorityScore,
		WaitingMinutes: rec.WaitingMinutes,
		TravelMinutes:  rec.TravelMinutes,
		Symptoms:       rec.Symptoms,
	}
}

func sortEntries(entries []QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PriorityScore != entries[j].PriorityScore {
			return entries[i].PriorityScore < entries[j].PriorityScore
		}
		return entries[i].Token < entries[j].Token
	})
}

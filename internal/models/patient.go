package models

import (
	"fmt"
	"time"
)

// Tier is the coarse priority class derived from the urgency score.
// Its integer value is the tier ordinal used by the scoring formula.
type Tier int

const (
	TierNormal   Tier = 0
	TierPriority Tier = 1
	TierCritical Tier = 2
)

// Urgency score cutoffs for tier classification. These constants are the
// single authoritative pair; nothing else may encode a tier boundary.
const (
	CriticalCutoff = 8
	PriorityCutoff = 6
)

// TierForScore is the one classification function mapping an urgency score to
// a tier. All tier derivation must go through it.
func TierForScore(score int) Tier {
	switch {
	case score >= CriticalCutoff:
		return TierCritical
	case score >= PriorityCutoff:
		return TierPriority
	default:
		return TierNormal
	}
}

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "CRITICAL"
	case TierPriority:
		return "PRIORITY"
	default:
		return "NORMAL"
	}
}

// TierFromString maps a stored tier name back to its Tier. Unknown names map
// to TierNormal.
func TierFromString(s string) Tier {
	switch s {
	case "CRITICAL":
		return TierCritical
	case "PRIORITY":
		return TierPriority
	default:
		return TierNormal
	}
}

type Status string

const (
	StatusWaiting        Status = "WAITING"
	StatusInConsultation Status = "IN_CONSULTATION"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Urgency is the output of the symptom classifier, assigned once at booking
// and immutable afterwards.
type Urgency struct {
	Category       string `json:"category"`
	Score          int    `json:"score"` // 0-10
	ConsultMinutes int    `json:"consult_minutes"`
}

// PatientRecord is one booking. Lower PriorityScore means served sooner.
type PatientRecord struct {
	Token              int       `json:"token"`
	Name               string    `json:"name"`
	Contact            string    `json:"contact"`
	Symptoms           string    `json:"symptoms"`
	Location           string    `json:"location"`
	Urgency            Urgency   `json:"urgency"`
	Tier               Tier      `json:"tier"`
	TravelMinutes      float64   `json:"travel_minutes"`
	WaitingMinutes     float64   `json:"waiting_minutes"`
	ArrivalProbability float64   `json:"arrival_probability"`
	PriorityScore      float64   `json:"priority_score"`
	Status             Status    `json:"status"`
	BookingTime        time.Time `json:"booking_time"`
	LastPriorityUpdate time.Time `json:"last_priority_update"`

	// MatchedCategories records which classifier categories matched the
	// symptom text. Kept for reporting; no effect on scheduling.
	MatchedCategories []string `json:"matched_categories,omitempty"`
}

// ErrInvalidInput marks a record rejected at construction time.
var ErrInvalidInput = fmt.Errorf("invalid input")

// NewPatientRecord is the canonical constructor. It validates once and derives
// the tier through the authoritative classifier; records that fail validation
// never enter the queue structures.
func NewPatientRecord(token int, name string, urgency Urgency, travelMinutes float64) (*PatientRecord, error) {
	if token <= 0 {
		return nil, fmt.Errorf("%w: token must be positive, got %d", ErrInvalidInput, token)
	}
	if urgency.Score < 0 || urgency.Score > 10 {
		return nil, fmt.Errorf("%w: urgency score %d outside 0-10", ErrInvalidInput, urgency.Score)
	}
	if urgency.ConsultMinutes < 0 {
		return nil, fmt.Errorf("%w: consultation minutes cannot be negative", ErrInvalidInput)
	}
	if travelMinutes < 0 {
		return nil, fmt.Errorf("%w: travel minutes cannot be negative", ErrInvalidInput)
	}

	now := time.Now().UTC()
	return &PatientRecord{
		Token:              token,
		Name:               name,
		Urgency:            urgency,
		Tier:               TierForScore(urgency.Score),
		TravelMinutes:      travelMinutes,
		WaitingMinutes:     0,
		ArrivalProbability: 1.0,
		Status:             StatusWaiting,
		BookingTime:        now,
		LastPriorityUpdate: now,
	}, nil
}

// Clone returns a copy safe to hand to readers while the original keeps
// mutating under the scheduler lock.
func (r *PatientRecord) Clone() *PatientRecord {
	c := *r
	if r.MatchedCategories != nil {
		c.MatchedCategories = append([]string(nil), r.MatchedCategories...)
	}
	return &c
}

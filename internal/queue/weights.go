package queue

import (
	"math"

	"clinic-scheduler/internal/models"
)

// Weights are the factor weights of the priority formula. Waiting is
// subtracted: the longer a patient waits, the lower (better) the score gets.
type Weights struct {
	Emergency float64
	Travel    float64
	Consult   float64
	Waiting   float64
	Arrival   float64
}

// DefaultWeights returns the clinic's tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		Emergency: 5.0,
		Travel:    2.0,
		Consult:   1.0,
		Waiting:   3.0,
		Arrival:   1.5,
	}
}

// Score computes the priority score for the record's current fields.
// Lower score = served sooner. Rounded to two decimals so persisted and
// in-memory values compare equal.
func (w Weights) Score(rec *models.PatientRecord) float64 {
	score := w.Emergency*float64(rec.Tier) +
		w.Travel*rec.TravelMinutes +
		w.Consult*float64(rec.Urgency.ConsultMinutes) -
		w.Waiting*rec.WaitingMinutes +
		w.Arrival*(1.0-rec.ArrivalProbability)
	return math.Round(score*100) / 100
}

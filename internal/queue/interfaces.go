package queue

import (
	"context"

	"clinic-scheduler/internal/models"
)

// DataStore defines the persistence operations the scheduler depends on.
// Every call is best-effort: a failing store degrades the scheduler to
// in-memory operation, it never blocks scheduling.
type DataStore interface {
	CreateRecord(ctx context.Context, rec *models.PatientRecord) error
	FindByToken(ctx context.Context, token int) (*models.PatientRecord, error)
	ListActive(ctx context.Context) ([]*models.PatientRecord, error)
	MarkStatus(ctx context.Context, token int, status models.Status) error
	IncrementCounter(ctx context.Context, name string) error
}

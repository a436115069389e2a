// Package store implements the scheduler's persistence collaborator on
// Postgres. Every failure is returned to the caller, which logs it and keeps
// scheduling in memory; the store is never allowed to block the queue.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"clinic-scheduler/internal/models"
)

// ErrNotFound is returned by FindByToken for unknown tokens.
var ErrNotFound = errors.New("patient not found")

// ErrStoreUnavailable wraps infrastructure-level failures so callers can
// distinguish a missing row from a broken store.
var ErrStoreUnavailable = errors.New("store unavailable")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

// NextToken allocates the next booking token from the database sequence so
// tokens stay unique and monotonic across restarts.
func (s *PostgresStore) NextToken(ctx context.Context) (int, error) {
	var token int
	err := s.db.QueryRowContext(ctx, "SELECT nextval('patient_token_seq')").Scan(&token)
	if err != nil {
		return 0, fmt.Errorf("%w: next token: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *models.PatientRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (
			token, name, contact, symptoms, location,
			urgency_category, urgency_score, consult_minutes, tier,
			travel_minutes, waiting_minutes, arrival_probability, priority_score,
			status, matched_categories, booking_time, last_priority_update
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		rec.Token, rec.Name, rec.Contact, rec.Symptoms, rec.Location,
		rec.Urgency.Category, rec.Urgency.Score, rec.Urgency.ConsultMinutes, rec.Tier.String(),
		rec.TravelMinutes, rec.WaitingMinutes, rec.ArrivalProbability, rec.PriorityScore,
		string(rec.Status), pq.Array(rec.MatchedCategories), rec.BookingTime, rec.LastPriorityUpdate,
	)
	if err != nil {
		return fmt.Errorf("%w: create record: %v", ErrStoreUnavailable, err)
	}
	return nil
}

const patientColumns = `token, name, contact, symptoms, location,
	urgency_category, urgency_score, consult_minutes, tier,
	travel_minutes, waiting_minutes, arrival_probability, priority_score,
	status, matched_categories, booking_time, last_priority_update`

func (s *PostgresStore) FindByToken(ctx context.Context, token int) (*models.PatientRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE token = $1", token)
	rec, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %d", ErrNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find token %d: %v", ErrStoreUnavailable, token, err)
	}
	return rec, nil
}

// ListActive returns all WAITING patients ordered by tier then score, the
// order the scheduler rehydrates them in.
func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+patientColumns+` FROM patients
		 WHERE status = 'WAITING'
		 ORDER BY CASE tier WHEN 'CRITICAL' THEN 0 WHEN 'PRIORITY' THEN 1 ELSE 2 END,
		          priority_score ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list active: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var recs []*models.PatientRecord
	for rows.Next() {
		rec, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan active row: %v", ErrStoreUnavailable, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list active: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

func (s *PostgresStore) MarkStatus(ctx context.Context, token int, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE patients SET status = $1 WHERE token = $2", string(status), token)
	if err != nil {
		return fmt.Errorf("%w: mark status: %v", ErrStoreUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: token %d", ErrNotFound, token)
	}
	return nil
}

func (s *PostgresStore) IncrementCounter(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = queue_counters.value + 1`, name)
	if err != nil {
		return fmt.Errorf("%w: increment %s: %v", ErrStoreUnavailable, name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*models.PatientRecord, error) {
	var rec models.PatientRecord
	var tier, status string
	var matched []string
	err := row.Scan(
		&rec.Token, &rec.Name, &rec.Contact, &rec.Symptoms, &rec.Location,
		&rec.Urgency.Category, &rec.Urgency.Score, &rec.Urgency.ConsultMinutes, &tier,
		&rec.TravelMinutes, &rec.WaitingMinutes, &rec.ArrivalProbability, &rec.PriorityScore,
		&status, pq.Array(&matched), &rec.BookingTime, &rec.LastPriorityUpdate,
	)
	if err != nil {
		return nil, err
	}
	rec.Tier = models.TierFromString(tier)
	rec.Status = models.Status(status)
	rec.MatchedCategories = matched
	return &rec, nil
}

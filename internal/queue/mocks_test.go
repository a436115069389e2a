package queue

import (
	"context"

	"clinic-scheduler/internal/models"
)

type MockDataStore struct {
	CreateRecordFunc     func(ctx context.Context, rec *models.PatientRecord) error
	FindByTokenFunc      func(ctx context.Context, token int) (*models.PatientRecord, error)
	ListActiveFunc       func(ctx context.Context) ([]*models.PatientRecord, error)
	MarkStatusFunc       func(ctx context.Context, token int, status models.Status) error
	IncrementCounterFunc func(ctx context.Context, name string) error
}

func (m *MockDataStore) CreateRecord(ctx context.Context, rec *models.PatientRecord) error {
	if m.CreateRecordFunc != nil {
		return m.CreateRecordFunc(ctx, rec)
	}
	return nil
}

func (m *MockDataStore) FindByToken(ctx context.Context, token int) (*models.PatientRecord, error) {
	if m.FindByTokenFunc != nil {
		return m.FindByTokenFunc(ctx, token)
	}
	return nil, nil
}

func (m *MockDataStore) ListActive(ctx context.Context) ([]*models.PatientRecord, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

func (m *MockDataStore) MarkStatus(ctx context.Context, token int, status models.Status) error {
	if m.MarkStatusFunc != nil {
		return m.MarkStatusFunc(ctx, token, status)
	}
	return nil
}

func (m *MockDataStore) IncrementCounter(ctx context.Context, name string) error {
	if m.IncrementCounterFunc != nil {
		return m.IncrementCounterFunc(ctx, name)
	}
	return nil
}

// Package mocks provides testify mocks for the service-layer store
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
)

// MockTokenStore is a mock implementation of service.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) CreateWithTx(ctx context.Context, tx database.Tx, token *models.ConsentToken) error {
	args := m.Called(ctx, tx, token)
	return args.Error(0)
}

func (m *MockTokenStore) GetByID(ctx context.Context, tokenID string) (*models.ConsentToken, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentToken), args.Error(1)
}

func (m *MockTokenStore) ConsumeWithTx(ctx context.Context, tx database.Tx, tokenID, decisionScope string, decisionTime int64) (int64, error) {
	args := m.Called(ctx, tx, tokenID, decisionScope, decisionTime)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenStore) HasBinding(ctx context.Context, clinicianID, patientID string) (bool, error) {
	args := m.Called(ctx, clinicianID, patientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenStore) ListExpiredUnnotified(ctx context.Context, nowMillis int64, limit int) ([]models.ConsentToken, error) {
	args := m.Called(ctx, nowMillis, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConsentToken), args.Error(1)
}

func (m *MockTokenStore) MarkExpiryNotified(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockRecordStore is a mock implementation of service.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) CreateWithTx(ctx context.Context, tx database.Tx, record *models.ConsentRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockRecordStore) GetLatestByPatient(ctx context.Context, patientID string) (*models.ConsentRecord, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentRecord), args.Error(1)
}

func (m *MockRecordStore) ListByPatient(ctx context.Context, patientID string) ([]models.ConsentRecord, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConsentRecord), args.Error(1)
}

func (m *MockRecordStore) HasBinding(ctx context.Context, professionalID, patientID string) (bool, error) {
	args := m.Called(ctx, professionalID, patientID)
	return args.Bool(0), args.Error(1)
}

// MockAuditStore is a mock implementation of service.AuditStore
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Create(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditStore) CreateWithTx(ctx context.Context, tx database.Tx, event *models.AuditEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockAuditStore) ListByPatient(ctx context.Context, patientID string) ([]models.AuditEvent, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}

// StubTxRunner is a database.TxRunner that invokes the function directly
// with a nil transaction, for unit tests that mock the stores.
type StubTxRunner struct {
	Err error
}

func (r *StubTxRunner) WithTransaction(ctx context.Context, fn func(tx database.Tx) error) error {
	if r.Err != nil {
		return r.Err
	}
	return fn(nil)
}

package service

import (
	"context"

	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
)

// TokenStore is the persistence surface the services need for tokens.
// Satisfied by dao.TokenDAO.
type TokenStore interface {
	CreateWithTx(ctx context.Context, tx database.Tx, token *models.ConsentToken) error
	GetByID(ctx context.Context, tokenID string) (*models.ConsentToken, error)
	ConsumeWithTx(ctx context.Context, tx database.Tx, tokenID, decisionScope string, decisionTime int64) (int64, error)
	HasBinding(ctx context.Context, clinicianID, patientID string) (bool, error)
}

// RecordStore is the persistence surface for the append-only consent ledger.
// Satisfied by dao.RecordDAO.
type RecordStore interface {
	CreateWithTx(ctx context.Context, tx database.Tx, record *models.ConsentRecord) error
	GetLatestByPatient(ctx context.Context, patientID string) (*models.ConsentRecord, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.ConsentRecord, error)
	HasBinding(ctx context.Context, professionalID, patientID string) (bool, error)
}

// AuditStore is the persistence surface for the audit trail.
// Satisfied by dao.AuditDAO.
type AuditStore interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	CreateWithTx(ctx context.Context, tx database.Tx, event *models.AuditEvent) error
	ListByPatient(ctx context.Context, patientID string) ([]models.AuditEvent, error)
}

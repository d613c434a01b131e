package dao

import (
	"context"
	"fmt"

	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
)

const insertAuditQuery = `
	INSERT INTO CONSENT_AUDIT (
		AUDIT_ID, EVENT_TYPE, ACTION_TIME, ACTOR_ID, PATIENT_ID, METADATA
	) VALUES (?, ?, ?, ?, ?, ?)
`

// AuditDAO handles database operations for the append-only audit trail
type AuditDAO struct {
	db *database.DB
}

// NewAuditDAO creates a new AuditDAO instance
func NewAuditDAO(db *database.DB) *AuditDAO {
	return &AuditDAO{db: db}
}

// Create appends a new audit event
func (dao *AuditDAO) Create(ctx context.Context, event *models.AuditEvent) error {
	_, err := dao.db.ExecContext(ctx, insertAuditQuery,
		event.AuditID, event.EventType, event.ActionTime,
		event.ActorID, event.PatientID, event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// CreateWithTx appends a new audit event within a transaction
func (dao *AuditDAO) CreateWithTx(ctx context.Context, tx database.Tx, event *models.AuditEvent) error {
	_, err := tx.ExecContext(ctx, insertAuditQuery,
		event.AuditID, event.EventType, event.ActionTime,
		event.ActorID, event.PatientID, event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to create audit event with transaction: %w", err)
	}
	return nil
}

// ListByPatient returns the audit trail for a patient ordered by event time.
func (dao *AuditDAO) ListByPatient(ctx context.Context, patientID string) ([]models.AuditEvent, error) {
	query := `
		SELECT AUDIT_ID, EVENT_TYPE, ACTION_TIME, ACTOR_ID, PATIENT_ID, METADATA
		FROM CONSENT_AUDIT
		WHERE PATIENT_ID = ?
		ORDER BY ACTION_TIME ASC, AUDIT_ID ASC
	`

	var events []models.AuditEvent
	if err := dao.db.SelectContext(ctx, &events, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}

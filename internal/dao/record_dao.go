package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
)

const recordColumns = `RECORD_ID, PATIENT_ID, PROFESSIONAL_ID, CONSENT_METHOD, STATUS,
	       TEXT_VERSION, JURISDICTION, CONSENT_DATE, DECLINE_REASONS,
	       DECLINE_NOTES, WITNESS_STATEMENT`

const insertRecordQuery = `
	INSERT INTO CONSENT_RECORD (
		RECORD_ID, PATIENT_ID, PROFESSIONAL_ID, CONSENT_METHOD, STATUS,
		TEXT_VERSION, JURISDICTION, CONSENT_DATE, DECLINE_REASONS,
		DECLINE_NOTES, WITNESS_STATEMENT
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// RecordDAO handles database operations for the append-only consent ledger.
// There are deliberately no update or delete methods.
type RecordDAO struct {
	db *database.DB
}

// NewRecordDAO creates a new RecordDAO instance
func NewRecordDAO(db *database.DB) *RecordDAO {
	return &RecordDAO{db: db}
}

// CreateWithTx appends a new consent record within a transaction
func (dao *RecordDAO) CreateWithTx(ctx context.Context, tx database.Tx, record *models.ConsentRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid consent record: %w", err)
	}

	_, err := tx.ExecContext(ctx, insertRecordQuery, recordArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to create consent record with transaction: %w", err)
	}
	return nil
}

func recordArgs(record *models.ConsentRecord) []interface{} {
	return []interface{}{
		record.RecordID,
		record.PatientID,
		record.ProfessionalID,
		record.ConsentMethod,
		record.Status,
		record.TextVersion,
		record.Jurisdiction,
		record.ConsentDate,
		record.DeclineReasons,
		record.DeclineNotes,
		record.WitnessStatement,
	}
}

// GetLatestByPatient returns the most recent consent record for a patient,
// or nil, nil when the patient has no history yet.
func (dao *RecordDAO) GetLatestByPatient(ctx context.Context, patientID string) (*models.ConsentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM CONSENT_RECORD
		WHERE PATIENT_ID = ?
		ORDER BY CONSENT_DATE DESC, RECORD_ID DESC
		LIMIT 1
	`

	var record models.ConsentRecord
	err := dao.db.GetContext(ctx, &record, query, patientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest consent record: %w", err)
	}
	return &record, nil
}

// ListByPatient returns the full consent timeline for a patient, newest
// first.
func (dao *RecordDAO) ListByPatient(ctx context.Context, patientID string) ([]models.ConsentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM CONSENT_RECORD
		WHERE PATIENT_ID = ?
		ORDER BY CONSENT_DATE DESC, RECORD_ID DESC
	`

	var records []models.ConsentRecord
	if err := dao.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}
	return records, nil
}

// HasBinding reports whether the professional has ever written a consent
// record for the patient. Second leg of the care-relationship check.
func (dao *RecordDAO) HasBinding(ctx context.Context, professionalID, patientID string) (bool, error) {
	query := `SELECT COUNT(*) FROM CONSENT_RECORD WHERE PROFESSIONAL_ID = ? AND PATIENT_ID = ?`

	var count int
	if err := dao.db.GetContext(ctx, &count, query, professionalID, patientID); err != nil {
		return false, fmt.Errorf("failed to check record binding: %w", err)
	}
	return count > 0, nil
}

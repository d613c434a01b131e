package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
)

// TokenDAO handles database operations for consent tokens
type TokenDAO struct {
	db *database.DB
}

// NewTokenDAO creates a new TokenDAO instance
func NewTokenDAO(db *database.DB) *TokenDAO {
	return &TokenDAO{db: db}
}

// CreateWithTx inserts a new consent token within a transaction
func (dao *TokenDAO) CreateWithTx(ctx context.Context, tx database.Tx, token *models.ConsentToken) error {
	query := `
		INSERT INTO CONSENT_TOKEN (
			TOKEN_ID, PATIENT_ID, PATIENT_NAME, PATIENT_PHONE, PATIENT_EMAIL,
			CLINICIAN_ID, CLINIC_NAME, CREATED_TIME, EXPIRY_TIME, USED,
			EXPIRY_NOTIFIED
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		token.TokenID,
		token.PatientID,
		token.PatientName,
		token.PatientPhone,
		token.PatientEmail,
		token.ClinicianID,
		token.ClinicName,
		token.CreatedTime,
		token.ExpiryTime,
		token.Used,
		token.ExpiryNotified,
	)

	if err != nil {
		return fmt.Errorf("failed to create consent token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its opaque identifier. Returns nil, nil when
// no such token exists.
func (dao *TokenDAO) GetByID(ctx context.Context, tokenID string) (*models.ConsentToken, error) {
	query := `
		SELECT TOKEN_ID, PATIENT_ID, PATIENT_NAME, PATIENT_PHONE, PATIENT_EMAIL,
		       CLINICIAN_ID, CLINIC_NAME, CREATED_TIME, EXPIRY_TIME, USED,
		       DECISION_SCOPE, DECISION_TIME, EXPIRY_NOTIFIED
		FROM CONSENT_TOKEN
		WHERE TOKEN_ID = ?
	`

	var token models.ConsentToken
	err := dao.db.GetContext(ctx, &token, query, tokenID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get consent token: %w", err)
	}
	return &token, nil
}

// ConsumeWithTx atomically flips the used flag and writes the decision, as
// a conditional write guarded on USED = FALSE. The returned row count is the
// race arbiter: of two near-simultaneous consumption attempts exactly one
// observes 1 and the other 0.
func (dao *TokenDAO) ConsumeWithTx(ctx context.Context, tx database.Tx, tokenID, decisionScope string, decisionTime int64) (int64, error) {
	query := `
		UPDATE CONSENT_TOKEN
		SET USED = TRUE, DECISION_SCOPE = ?, DECISION_TIME = ?
		WHERE TOKEN_ID = ? AND USED = FALSE
	`

	result, err := tx.ExecContext(ctx, query, decisionScope, decisionTime, tokenID)
	if err != nil {
		return 0, fmt.Errorf("failed to consume consent token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read consume result: %w", err)
	}
	return rows, nil
}

// ListExpiredUnnotified returns unused tokens whose validity window has
// passed and which have not yet been flagged by the expiry sweeper.
func (dao *TokenDAO) ListExpiredUnnotified(ctx context.Context, nowMillis int64, limit int) ([]models.ConsentToken, error) {
	query := `
		SELECT TOKEN_ID, PATIENT_ID, PATIENT_NAME, PATIENT_PHONE, PATIENT_EMAIL,
		       CLINICIAN_ID, CLINIC_NAME, CREATED_TIME, EXPIRY_TIME, USED,
		       DECISION_SCOPE, DECISION_TIME, EXPIRY_NOTIFIED
		FROM CONSENT_TOKEN
		WHERE USED = FALSE AND EXPIRY_NOTIFIED = FALSE AND EXPIRY_TIME < ?
		ORDER BY EXPIRY_TIME ASC
		LIMIT ?
	`

	var tokens []models.ConsentToken
	if err := dao.db.SelectContext(ctx, &tokens, query, nowMillis, limit); err != nil {
		return nil, fmt.Errorf("failed to list expired tokens: %w", err)
	}
	return tokens, nil
}

// MarkExpiryNotified flags an expired token exactly once. Conditional on the
// flag still being unset so concurrent sweeps cannot double-audit.
func (dao *TokenDAO) MarkExpiryNotified(ctx context.Context, tokenID string) (bool, error) {
	query := `
		UPDATE CONSENT_TOKEN
		SET EXPIRY_NOTIFIED = TRUE
		WHERE TOKEN_ID = ? AND EXPIRY_NOTIFIED = FALSE AND USED = FALSE
	`

	result, err := dao.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to mark token expiry notified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read expiry mark result: %w", err)
	}
	return rows == 1, nil
}

// HasBinding reports whether the clinician has ever issued a token for the
// patient. Used as one leg of the care-relationship authorization check.
func (dao *TokenDAO) HasBinding(ctx context.Context, clinicianID, patientID string) (bool, error) {
	query := `SELECT COUNT(*) FROM CONSENT_TOKEN WHERE CLINICIAN_ID = ? AND PATIENT_ID = ?`

	var count int
	if err := dao.db.GetContext(ctx, &count, query, clinicianID, patientID); err != nil {
		return false, fmt.Errorf("failed to check token binding: %w", err)
	}
	return count > 0, nil
}

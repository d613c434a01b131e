package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medinote/consent-service/internal/config"
	"github.com/medinote/consent-service/internal/consenttext"
	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/policy"
	"github.com/medinote/consent-service/internal/serviceerror"
	"github.com/medinote/consent-service/internal/validator"
	"github.com/medinote/consent-service/pkg/utils"
)

// ConsentService handles the clinician-facing consent operations: status
// checks, the verbal flow, withdrawal, and history.
type ConsentService struct {
	tokens       TokenStore
	records      RecordStore
	audits       AuditStore
	tx           database.TxRunner
	logger       *logrus.Logger
	jurisdiction policy.Jurisdiction

	now func() time.Time
}

// NewConsentService creates a new consent service instance
func NewConsentService(
	tokens TokenStore,
	records RecordStore,
	audits AuditStore,
	txRunner database.TxRunner,
	cfg *config.ConsentConfig,
	logger *logrus.Logger,
) *ConsentService {
	return &ConsentService{
		tokens:       tokens,
		records:      records,
		audits:       audits,
		tx:           txRunner,
		logger:       logger,
		jurisdiction: cfg.JurisdictionCode(),
		now:          time.Now,
	}
}

// authorize enforces the care-relationship scope: a clinician may only act
// on patients they have issued a token for or written a record about.
func (s *ConsentService) authorize(ctx context.Context, clinicianID, patientID string) *serviceerror.ServiceError {
	if err := utils.ValidateClinicianID(clinicianID); err != nil {
		return serviceerror.CustomServiceError(serviceerror.PermissionDeniedError, err.Error())
	}
	if err := utils.ValidatePatientID(patientID); err != nil {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	viaToken, err := s.tokens.HasBinding(ctx, clinicianID, patientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check token binding")
		return &serviceerror.DatabaseError
	}
	if viaToken {
		return nil
	}

	viaRecord, err := s.records.HasBinding(ctx, clinicianID, patientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check record binding")
		return &serviceerror.DatabaseError
	}
	if !viaRecord {
		return &serviceerror.PermissionDeniedError
	}
	return nil
}

// CheckStatus answers "is there valid consent for this patient" on behalf of
// an authenticated clinician. The validity decision is delegated entirely to
// the validator gate.
func (s *ConsentService) CheckStatus(ctx context.Context, clinicianID, patientID string) (*models.ConsentStatusResponse, *serviceerror.ServiceError) {
	if svcErr := s.authorize(ctx, clinicianID, patientID); svcErr != nil {
		return nil, svcErr
	}

	record, err := s.records.GetLatestByPatient(ctx, patientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest consent record")
		return nil, &serviceerror.DatabaseError
	}
	if record == nil {
		return &models.ConsentStatusResponse{Success: true, HasValidConsent: false}, nil
	}

	response := &models.ConsentStatusResponse{
		Success:       true,
		Status:        record.Status,
		ConsentMethod: record.ConsentMethod,
	}

	if validator.IsValid(record, s.jurisdiction) {
		response.HasValidConsent = true
		grantedAt := record.ConsentDate
		response.GrantedAt = &grantedAt

		audit := s.newAudit(models.EventConsentVerified, clinicianID, patientID, map[string]string{
			"recordId": record.RecordID,
		})
		if err := s.audits.Create(ctx, audit); err != nil {
			s.logger.WithError(err).Error("Failed to audit consent verification")
		}
	}

	return response, nil
}

// RecordVerbalConsent records a verbal decision taken in the room. The
// read-aloud confirmation is a hard precondition; a declined decision must
// carry at least one machine-readable reason code.
func (s *ConsentService) RecordVerbalConsent(ctx context.Context, clinicianID string, req *models.VerbalConsentRequest) (*models.ConsentRecord, *serviceerror.ServiceError) {
	if err := utils.ValidateClinicianID(clinicianID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.PermissionDeniedError, err.Error())
	}
	if err := utils.ValidatePatientID(req.PatientID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if !req.TextReadAloud {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"the full consent text must be read aloud to the patient before a verbal decision can be recorded")
	}

	textVersion, ok := consenttext.CurrentVersion(s.jurisdiction)
	if !ok {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, fmt.Sprintf("no consent text configured for jurisdiction %s", s.jurisdiction))
	}

	currentTime := utils.TimeToMillis(s.now())
	record := &models.ConsentRecord{
		RecordID:       utils.GenerateRecordID(),
		PatientID:      req.PatientID,
		ProfessionalID: clinicianID,
		ConsentMethod:  models.MethodVerbal,
		Status:         req.Decision,
		TextVersion:    textVersion,
		Jurisdiction:   string(s.jurisdiction),
		ConsentDate:    currentTime,
	}
	if req.WitnessStatement != "" {
		witness := utils.SanitizeString(req.WitnessStatement)
		record.WitnessStatement = &witness
	}

	eventType := models.EventConsentGranted
	scope := models.ScopeOngoing
	if req.Decision == models.StatusDeclined {
		if err := models.ValidateDeclineReasons(req.DeclineReasons); err != nil {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
		}
		reasonsJSON, err := json.Marshal(req.DeclineReasons)
		if err != nil {
			return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, "failed to encode decline reasons")
		}
		reasons := string(reasonsJSON)
		record.DeclineReasons = &reasons
		if req.DeclineNotes != "" {
			notes := utils.SanitizeString(req.DeclineNotes)
			record.DeclineNotes = &notes
		}
		eventType = models.EventConsentDeclined
		scope = models.ScopeDeclined
	}

	audit := s.newAudit(eventType, clinicianID, req.PatientID, map[string]string{
		"method": models.MethodVerbal,
		"scope":  scope,
	})

	txErr := s.tx.WithTransaction(ctx, func(tx database.Tx) error {
		if err := s.records.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		return s.audits.CreateWithTx(ctx, tx, audit)
	})
	if txErr != nil {
		s.logger.WithError(txErr).Error("Failed to record verbal consent")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to record verbal consent")
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"decision":   req.Decision,
	}).Info("Verbal consent decision recorded")

	return record, nil
}

// Withdraw appends a withdrawn record to the patient's timeline. The earlier
// granted record stays in place; only the timeline's head changes.
func (s *ConsentService) Withdraw(ctx context.Context, clinicianID string, req *models.WithdrawRequest) (*models.ConsentRecord, *serviceerror.ServiceError) {
	if svcErr := s.authorize(ctx, clinicianID, req.PatientID); svcErr != nil {
		return nil, svcErr
	}

	latest, err := s.records.GetLatestByPatient(ctx, req.PatientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest consent record")
		return nil, &serviceerror.DatabaseError
	}
	if latest == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.RecordNotFoundError, "no consent exists to withdraw")
	}

	currentTime := utils.TimeToMillis(s.now())
	record := &models.ConsentRecord{
		RecordID:       utils.GenerateRecordID(),
		PatientID:      req.PatientID,
		ProfessionalID: clinicianID,
		ConsentMethod:  latest.ConsentMethod,
		Status:         models.StatusWithdrawn,
		TextVersion:    latest.TextVersion,
		Jurisdiction:   latest.Jurisdiction,
		ConsentDate:    currentTime,
	}

	metadata := map[string]string{"previousStatus": latest.Status}
	if req.Notes != "" {
		metadata["notes"] = utils.SanitizeString(req.Notes)
	}
	audit := s.newAudit(models.EventConsentWithdrawn, clinicianID, req.PatientID, metadata)

	txErr := s.tx.WithTransaction(ctx, func(tx database.Tx) error {
		if err := s.records.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		return s.audits.CreateWithTx(ctx, tx, audit)
	})
	if txErr != nil {
		s.logger.WithError(txErr).Error("Failed to withdraw consent")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to withdraw consent")
	}

	s.logger.WithField("patient_id", req.PatientID).Info("Consent withdrawn")
	return record, nil
}

// History returns the full append-only consent timeline for a patient.
func (s *ConsentService) History(ctx context.Context, clinicianID, patientID string) (*models.ConsentHistoryResponse, *serviceerror.ServiceError) {
	if svcErr := s.authorize(ctx, clinicianID, patientID); svcErr != nil {
		return nil, svcErr
	}

	records, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list consent records")
		return nil, &serviceerror.DatabaseError
	}

	return &models.ConsentHistoryResponse{
		PatientID: patientID,
		Records:   records,
	}, nil
}

// AuditTrail returns the lifecycle event log for a patient, oldest first.
func (s *ConsentService) AuditTrail(ctx context.Context, clinicianID, patientID string) (*models.AuditTrailResponse, *serviceerror.ServiceError) {
	if svcErr := s.authorize(ctx, clinicianID, patientID); svcErr != nil {
		return nil, svcErr
	}

	events, err := s.audits.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list audit events")
		return nil, &serviceerror.DatabaseError
	}

	return &models.AuditTrailResponse{
		PatientID: patientID,
		Events:    events,
	}, nil
}

func (s *ConsentService) newAudit(eventType, actorID, patientID string, metadata map[string]string) *models.AuditEvent {
	event := &models.AuditEvent{
		AuditID:    utils.GenerateAuditID(),
		EventType:  eventType,
		ActionTime: utils.TimeToMillis(s.now()),
		ActorID:    actorID,
		PatientID:  &patientID,
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			meta := string(raw)
			event.Metadata = &meta
		}
	}
	return event
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medinote/consent-service/internal/config"
	"github.com/medinote/consent-service/internal/consenttext"
	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/policy"
	"github.com/medinote/consent-service/internal/serviceerror"
	"github.com/medinote/consent-service/internal/sms"
	"github.com/medinote/consent-service/pkg/utils"
)

// errAlreadyUsed is an internal sentinel carried out of the consume
// transaction when the conditional write affected no rows.
var errAlreadyUsed = fmt.Errorf("consent token already used")

// TokenService issues and consumes single-use, time-limited consent tokens
type TokenService struct {
	tokens       TokenStore
	records      RecordStore
	audits       AuditStore
	tx           database.TxRunner
	smsSender    sms.Sender
	logger       *logrus.Logger
	jurisdiction policy.Jurisdiction
	expiryWindow time.Duration
	clinicName   string
	linkBase     string

	// now is swappable for clock-sensitive tests
	now func() time.Time
}

// NewTokenService creates a new token service instance
func NewTokenService(
	tokens TokenStore,
	records RecordStore,
	audits AuditStore,
	txRunner database.TxRunner,
	smsSender sms.Sender,
	cfg *config.ConsentConfig,
	logger *logrus.Logger,
) *TokenService {
	return &TokenService{
		tokens:       tokens,
		records:      records,
		audits:       audits,
		tx:           txRunner,
		smsSender:    smsSender,
		logger:       logger,
		jurisdiction: cfg.JurisdictionCode(),
		expiryWindow: cfg.TokenExpiry,
		clinicName:   cfg.ClinicName,
		linkBase:     strings.TrimRight(cfg.ConsentLinkBase, "/"),
		now:          time.Now,
	}
}

// Issue generates a token bound to the patient/clinician pair, appends an
// sms_requested record, audits the issuance, and dispatches the consent
// link when a phone number is available. Callers without an authenticated
// clinician identity are rejected.
func (s *TokenService) Issue(ctx context.Context, req *models.TokenIssueRequest, clinicianID string) (*models.TokenIssueResponse, *serviceerror.ServiceError) {
	if err := utils.ValidateClinicianID(clinicianID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.PermissionDeniedError, "an authenticated clinician identity is required to issue consent tokens")
	}
	if err := utils.ValidatePatientID(req.PatientID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if req.PatientPhone != nil {
		if err := utils.ValidatePhone(*req.PatientPhone); err != nil {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
		}
	}

	textVersion, ok := consenttext.CurrentVersion(s.jurisdiction)
	if !ok {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, fmt.Sprintf("no consent text configured for jurisdiction %s", s.jurisdiction))
	}

	tokenValue, err := utils.GenerateConsentToken()
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, "failed to generate token")
	}

	currentTime := utils.TimeToMillis(s.now())
	token := &models.ConsentToken{
		TokenID:      tokenValue,
		PatientID:    req.PatientID,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		PatientEmail: req.PatientEmail,
		ClinicianID:  clinicianID,
		ClinicName:   s.clinicName,
		CreatedTime:  currentTime,
		ExpiryTime:   currentTime + s.expiryWindow.Milliseconds(),
		Used:         false,
	}

	record := &models.ConsentRecord{
		RecordID:       utils.GenerateRecordID(),
		PatientID:      req.PatientID,
		ProfessionalID: clinicianID,
		ConsentMethod:  models.MethodDigital,
		Status:         models.StatusSmsRequested,
		TextVersion:    textVersion,
		Jurisdiction:   string(s.jurisdiction),
		ConsentDate:    currentTime,
	}

	issueAudit := s.newAudit(models.EventTokenIssued, clinicianID, req.PatientID, currentTime, map[string]string{
		"textVersion": textVersion,
	})

	txErr := s.tx.WithTransaction(ctx, func(tx database.Tx) error {
		if err := s.tokens.CreateWithTx(ctx, tx, token); err != nil {
			return err
		}
		if err := s.records.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		return s.audits.CreateWithTx(ctx, tx, issueAudit)
	})
	if txErr != nil {
		s.logger.WithError(txErr).Error("Failed to issue consent token")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to issue consent token")
	}

	smsSent := false
	if req.PatientPhone != nil {
		if err := s.dispatchSMS(ctx, token, clinicianID); err != nil {
			// Token stays issued; the clinician can resend or fall back to
			// the verbal flow.
			s.logger.WithError(err).Warn("Consent SMS dispatch failed")
		} else {
			smsSent = true
		}
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":   req.PatientID,
		"clinician_id": clinicianID,
		"expires_at":   token.ExpiryTime,
		"sms_sent":     smsSent,
	}).Info("Consent token issued")

	return &models.TokenIssueResponse{
		Token:     tokenValue,
		PatientID: req.PatientID,
		ExpiresAt: token.ExpiryTime,
		SMSSent:   smsSent,
	}, nil
}

func (s *TokenService) dispatchSMS(ctx context.Context, token *models.ConsentToken, clinicianID string) error {
	link := fmt.Sprintf("%s/consent/%s", s.linkBase, token.TokenID)
	message := fmt.Sprintf("%s: Bitte bestätigen Sie Ihre Einwilligung zur Behandlungsdokumentation: %s", s.clinicName, link)

	if err := s.smsSender.Send(ctx, *token.PatientPhone, message); err != nil {
		return err
	}

	audit := s.newAudit(models.EventSMSSent, clinicianID, token.PatientID, utils.TimeToMillis(s.now()), nil)
	if err := s.audits.Create(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit SMS dispatch")
	}
	return nil
}

// Consume atomically marks the token used and records the patient decision.
// Error precedence is fixed: unknown token, then expired (regardless of the
// used flag), then already used.
func (s *TokenService) Consume(ctx context.Context, req *models.DecisionSubmitRequest) (*models.ConsentRecord, *serviceerror.ServiceError) {
	token, err := s.tokens.GetByID(ctx, req.Token)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up consent token")
		return nil, &serviceerror.DatabaseError
	}
	if token == nil {
		return nil, &serviceerror.TokenNotFoundError
	}

	currentTime := utils.TimeToMillis(s.now())
	if token.IsExpired(currentTime) {
		return nil, &serviceerror.TokenExpiredError
	}
	if token.Used {
		return nil, &serviceerror.TokenAlreadyUsedError
	}

	record, svcErr := s.buildDecisionRecord(token, req, currentTime)
	if svcErr != nil {
		return nil, svcErr
	}

	scope := models.ScopeDeclined
	eventType := models.EventConsentDeclined
	if req.Decision == models.StatusGranted {
		scope = models.ScopeOngoing
		eventType = models.EventConsentGranted
	}

	// Patient-initiated transition: the actor is the patient, mediated by
	// this trusted backend.
	audit := s.newAudit(eventType, token.PatientID, token.PatientID, currentTime, map[string]string{
		"method": models.MethodDigital,
		"scope":  scope,
	})

	txErr := s.tx.WithTransaction(ctx, func(tx database.Tx) error {
		rows, err := s.tokens.ConsumeWithTx(ctx, tx, token.TokenID, scope, currentTime)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errAlreadyUsed
		}
		if err := s.records.CreateWithTx(ctx, tx, record); err != nil {
			return err
		}
		return s.audits.CreateWithTx(ctx, tx, audit)
	})
	if txErr != nil {
		if txErr == errAlreadyUsed {
			// Lost the race against a concurrent consumption attempt.
			return nil, &serviceerror.TokenAlreadyUsedError
		}
		s.logger.WithError(txErr).Error("Failed to consume consent token")
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "failed to record consent decision")
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": token.PatientID,
		"decision":   req.Decision,
	}).Info("Consent decision recorded")

	return record, nil
}

func (s *TokenService) buildDecisionRecord(token *models.ConsentToken, req *models.DecisionSubmitRequest, currentTime int64) (*models.ConsentRecord, *serviceerror.ServiceError) {
	textVersion, ok := consenttext.CurrentVersion(s.jurisdiction)
	if !ok {
		return nil, serviceerror.CustomServiceError(serviceerror.InternalServerError, fmt.Sprintf("no consent text configured for jurisdiction %s", s.jurisdiction))
	}

	record := &models.ConsentRecord{
		RecordID:       utils.GenerateRecordID(),
		PatientID:      token.PatientID,
		ProfessionalID: token.ClinicianID,
		ConsentMethod:  models.MethodDigital,
		Status:         req.Decision,
		TextVersion:    textVersion,
		Jurisdiction:   string(s.jurisdiction),
		ConsentDate:    currentTime,
	}

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
	}

	return record, nil
}

func (s *TokenService) newAudit(eventType, actorID, patientID string, actionTime int64, metadata map[string]string) *models.AuditEvent {
	event := &models.AuditEvent{
		AuditID:    utils.GenerateAuditID(),
		EventType:  eventType,
		ActionTime: actionTime,
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

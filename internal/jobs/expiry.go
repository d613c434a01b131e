// Package jobs holds background maintenance work scheduled with cron.
package jobs

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/pkg/utils"
)

const sweepBatchSize = 200

// ExpiredTokenLister is the token-store surface the sweeper needs
type ExpiredTokenLister interface {
	ListExpiredUnnotified(ctx context.Context, nowMillis int64, limit int) ([]models.ConsentToken, error)
	MarkExpiryNotified(ctx context.Context, tokenID string) (bool, error)
}

// AuditWriter appends audit events outside a transaction
type AuditWriter interface {
	Create(ctx context.Context, event *models.AuditEvent) error
}

// ExpirySweeper flags expired unused tokens exactly once and records a
// token_expired audit event for each. Tokens are never deleted; expiry is
// always recomputable from EXPIRY_TIME.
type ExpirySweeper struct {
	tokens ExpiredTokenLister
	audits AuditWriter
	logger *logrus.Logger
	now    func() time.Time
}

// NewExpirySweeper creates a sweeper instance
func NewExpirySweeper(tokens ExpiredTokenLister, audits AuditWriter, logger *logrus.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		tokens: tokens,
		audits: audits,
		logger: logger,
		now:    time.Now,
	}
}

// Run performs one sweep pass. Returns the number of tokens flagged.
func (s *ExpirySweeper) Run(ctx context.Context) (int, error) {
	nowMillis := utils.TimeToMillis(s.now())

	tokens, err := s.tokens.ListExpiredUnnotified(ctx, nowMillis, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, token := range tokens {
		marked, err := s.tokens.MarkExpiryNotified(ctx, token.TokenID)
		if err != nil {
			s.logger.WithError(err).WithField("patient_id", token.PatientID).Error("Failed to flag expired token")
			continue
		}
		if !marked {
			// Another sweep instance got there first.
			continue
		}

		patientID := token.PatientID
		metadata, _ := json.Marshal(map[string]string{
			"clinicianId": token.ClinicianID,
			"expiredAt":   strconv.FormatInt(token.ExpiryTime, 10),
		})
		meta := string(metadata)

		event := &models.AuditEvent{
			AuditID:    utils.GenerateAuditID(),
			EventType:  models.EventTokenExpired,
			ActionTime: nowMillis,
			ActorID:    "system",
			PatientID:  &patientID,
			Metadata:   &meta,
		}
		if err := s.audits.Create(ctx, event); err != nil {
			s.logger.WithError(err).Error("Failed to audit token expiry")
			continue
		}
		flagged++
	}

	if flagged > 0 {
		s.logger.WithField("count", flagged).Info("Expired consent tokens flagged")
	}
	return flagged, nil
}

// Schedule registers the sweeper on the given cron runner with the
// configured spec (e.g. "@every 15m").
func (s *ExpirySweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.Run(ctx); err != nil {
			s.logger.WithError(err).Error("Token expiry sweep failed")
		}
	})
}

package jobs

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/service/mocks"
)

func sweeperForTest(tokens *mocks.MockTokenStore, audits *mocks.MockAuditStore) *ExpirySweeper {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewExpirySweeper(tokens, audits, logger)
}

func expiredToken(id string) models.ConsentToken {
	return models.ConsentToken{
		TokenID:     id,
		PatientID:   "patient-" + id,
		ClinicianID: "clinician-1",
		ExpiryTime:  1000,
	}
}

func TestSweepFlagsAndAuditsExpiredTokens(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	audits := new(mocks.MockAuditStore)
	sweeper := sweeperForTest(tokens, audits)

	batch := []models.ConsentToken{expiredToken("a"), expiredToken("b")}
	tokens.On("ListExpiredUnnotified", mock.Anything, mock.Anything, sweepBatchSize).Return(batch, nil)
	tokens.On("MarkExpiryNotified", mock.Anything, "a").Return(true, nil)
	tokens.On("MarkExpiryNotified", mock.Anything, "b").Return(true, nil)
	audits.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditEvent) bool {
		return e.EventType == models.EventTokenExpired && e.ActorID == "system"
	})).Return(nil).Twice()

	flagged, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)
	audits.AssertExpectations(t)
}

// A token already flagged by a concurrent sweep is skipped without a second
// audit event.
func TestSweepSkipsAlreadyFlaggedTokens(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	audits := new(mocks.MockAuditStore)
	sweeper := sweeperForTest(tokens, audits)

	batch := []models.ConsentToken{expiredToken("a"), expiredToken("b")}
	tokens.On("ListExpiredUnnotified", mock.Anything, mock.Anything, sweepBatchSize).Return(batch, nil)
	tokens.On("MarkExpiryNotified", mock.Anything, "a").Return(false, nil)
	tokens.On("MarkExpiryNotified", mock.Anything, "b").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	flagged, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	audits.AssertExpectations(t)
}

func TestSweepContinuesPastSingleTokenFailure(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	audits := new(mocks.MockAuditStore)
	sweeper := sweeperForTest(tokens, audits)

	batch := []models.ConsentToken{expiredToken("a"), expiredToken("b")}
	tokens.On("ListExpiredUnnotified", mock.Anything, mock.Anything, sweepBatchSize).Return(batch, nil)
	tokens.On("MarkExpiryNotified", mock.Anything, "a").Return(false, fmt.Errorf("deadlock"))
	tokens.On("MarkExpiryNotified", mock.Anything, "b").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	flagged, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
}

func TestSweepNothingExpired(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	audits := new(mocks.MockAuditStore)
	sweeper := sweeperForTest(tokens, audits)

	tokens.On("ListExpiredUnnotified", mock.Anything, mock.Anything, sweepBatchSize).Return([]models.ConsentToken{}, nil)

	flagged, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSweepListFailure(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	sweeper := sweeperForTest(tokens, new(mocks.MockAuditStore))

	tokens.On("ListExpiredUnnotified", mock.Anything, mock.Anything, sweepBatchSize).Return(nil, fmt.Errorf("connection refused"))

	_, err := sweeper.Run(context.Background())
	require.Error(t, err)
}

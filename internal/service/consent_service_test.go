package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/service/mocks"
	"github.com/medinote/consent-service/internal/serviceerror"
	"github.com/medinote/consent-service/pkg/utils"
)

func newConsentServiceForTest(tokens *mocks.MockTokenStore, records *mocks.MockRecordStore, audits *mocks.MockAuditStore) *ConsentService {
	return NewConsentService(tokens, records, audits, &mocks.StubTxRunner{}, testConsentConfig(), testLogger())
}

func grantBindings(tokens *mocks.MockTokenStore, clinicianID, patientID string) {
	tokens.On("HasBinding", mock.Anything, clinicianID, patientID).Return(true, nil)
}

func TestCheckStatusRejectsUnrelatedClinician(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	svc := newConsentServiceForTest(tokens, records, new(mocks.MockAuditStore))

	tokens.On("HasBinding", mock.Anything, "clinician-2", "patient-1").Return(false, nil)
	records.On("HasBinding", mock.Anything, "clinician-2", "patient-1").Return(false, nil)

	_, svcErr := svc.CheckStatus(context.Background(), "clinician-2", "patient-1")
	require.NotNil(t, svcErr)
	assert.Equal(t, serviceerror.PermissionDeniedError.Code, svcErr.Code)
	records.AssertNotCalled(t, "GetLatestByPatient", mock.Anything, mock.Anything)
}

func TestCheckStatusNoRecords(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	svc := newConsentServiceForTest(tokens, records, new(mocks.MockAuditStore))

	grantBindings(tokens, "clinician-1", "patient-1")
	records.On("GetLatestByPatient", mock.Anything, "patient-1").Return(nil, nil)

	resp, svcErr := svc.CheckStatus(context.Background(), "clinician-1", "patient-1")
	require.Nil(t, svcErr)
	assert.True(t, resp.Success)
	assert.False(t, resp.HasValidConsent)
}

func TestCheckStatusValidConsentAuditsVerification(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	audits := new(mocks.MockAuditStore)
	svc := newConsentServiceForTest(tokens, records, audits)

	grantedAt := utils.TimeToMillis(time.Now().Add(-24 * time.Hour))
	grantBindings(tokens, "clinician-1", "patient-1")
	records.On("GetLatestByPatient", mock.Anything, "patient-1").Return(&models.ConsentRecord{
		RecordID:       "RECORD-1",
		PatientID:      "patient-1",
		ProfessionalID: "clinician-1",
		ConsentMethod:  models.MethodDigital,
		Status:         models.StatusGranted,
		TextVersion:    "de-DE-v3",
		Jurisdiction:   "DE",
		ConsentDate:    grantedAt,
	}, nil)
	audits.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditEvent) bool {
		return e.EventType == models.EventConsentVerified && e.ActorID == "clinician-1"
	})).Return(nil)

	resp, svcErr := svc.CheckStatus(context.Background(), "clinician-1", "patient-1")
	require.Nil(t, svcErr)
	assert.True(t, resp.HasValidConsent)
	require.NotNil(t, resp.GrantedAt)
	assert.Equal(t, grantedAt, *resp.GrantedAt)
	audits.AssertExpectations(t)
}

// A latest record whose text version is not the jurisdiction's accepted set
// reports no valid consent, even though the status is granted.
func TestCheckStatusStaleTextVersion(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	audits := new(mocks.MockAuditStore)
	svc := newConsentServiceForTest(tokens, records, audits)

	grantBindings(tokens, "clinician-1", "patient-1")
	records.On("GetLatestByPatient", mock.Anything, "patient-1").Return(&models.ConsentRecord{
		RecordID:      "RECORD-1",
		PatientID:     "patient-1",
		ConsentMethod: models.MethodVerbal,
		Status:        models.StatusGranted,
		TextVersion:   "en-GB-v2",
		Jurisdiction:  "DE",
		ConsentDate:   utils.TimeToMillis(time.Now()),
	}, nil)

	resp, svcErr := svc.CheckStatus(context.Background(), "clinician-1", "patient-1")
	require.Nil(t, svcErr)
	assert.False(t, resp.HasValidConsent)
	assert.Equal(t, models.StatusGranted, resp.Status)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRecordVerbalConsentRequiresReadAloud(t *testing.T) {
	svc := newConsentServiceForTest(new(mocks.MockTokenStore), new(mocks.MockRecordStore), new(mocks.MockAuditStore))

	_, svcErr := svc.RecordVerbalConsent(context.Background(), "clinician-1", &models.VerbalConsentRequest{
		PatientID:     "patient-1",
		TextReadAloud: false,
		Decision:      models.StatusGranted,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, serviceerror.ValidationError.Code, svcErr.Code)
}

func TestRecordVerbalConsentGranted(t *testing.T) {
	records := new(mocks.MockRecordStore)
	audits := new(mocks.MockAuditStore)
	svc := newConsentServiceForTest(new(mocks.MockTokenStore), records, audits)

	records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.Status == models.StatusGranted && r.ConsentMethod == models.MethodVerbal &&
			r.TextVersion == "de-DE-v3" && r.WitnessStatement != nil
	})).Return(nil)
	audits.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(e *models.AuditEvent) bool {
		return e.EventType == models.EventConsentGranted
	})).Return(nil)

	record, svcErr := svc.RecordVerbalConsent(context.Background(), "clinician-1", &models.VerbalConsentRequest{
		PatientID:        "patient-1",
		TextReadAloud:    true,
		Decision:         models.StatusGranted,
		WitnessStatement: "Patient verbally agreed after the full text was read",
	})
	require.Nil(t, svcErr)
	assert.Equal(t, models.MethodVerbal, record.ConsentMethod)
	records.AssertExpectations(t)
	audits.AssertExpectations(t)
}

func TestRecordVerbalConsentDeclinedNeedsReasons(t *testing.T) {
	svc := newConsentServiceForTest(new(mocks.MockTokenStore), new(mocks.MockRecordStore), new(mocks.MockAuditStore))

	_, svcErr := svc.RecordVerbalConsent(context.Background(), "clinician-1", &models.VerbalConsentRequest{
		PatientID:     "patient-1",
		TextReadAloud: true,
		Decision:      models.StatusDeclined,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, serviceerror.ValidationError.Code, svcErr.Code)
}

func TestWithdrawWithoutExistingConsent(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	svc := newConsentServiceForTest(tokens, records, new(mocks.MockAuditStore))

	grantBindings(tokens, "clinician-1", "patient-1")
	records.On("GetLatestByPatient", mock.Anything, "patient-1").Return(nil, nil)

	_, svcErr := svc.Withdraw(context.Background(), "clinician-1", &models.WithdrawRequest{PatientID: "patient-1"})
	require.NotNil(t, svcErr)
	assert.Equal(t, serviceerror.RecordNotFoundError.Code, svcErr.Code)
}

// Withdrawal appends a new record at the head of the timeline. The earlier
// granted record is never touched.
func TestWithdrawAppendsRecord(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	audits := new(mocks.MockAuditStore)
	svc := newConsentServiceForTest(tokens, records, audits)

	grantBindings(tokens, "clinician-1", "patient-1")
	records.On("GetLatestByPatient", mock.Anything, "patient-1").Return(&models.ConsentRecord{
		RecordID:      "RECORD-1",
		PatientID:     "patient-1",
		ConsentMethod: models.MethodDigital,
		Status:        models.StatusGranted,
		TextVersion:   "de-DE-v3",
		Jurisdiction:  "DE",
	}, nil)
	records.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r *models.ConsentRecord) bool {
		return r.Status == models.StatusWithdrawn && r.RecordID != "RECORD-1" &&
			r.TextVersion == "de-DE-v3" && r.ConsentMethod == models.MethodDigital
	})).Return(nil)
	audits.On("CreateWithTx", mock.Anything, mock.Anything, mock.MatchedBy(func(e *models.AuditEvent) bool {
		return e.EventType == models.EventConsentWithdrawn
	})).Return(nil)

	record, svcErr := svc.Withdraw(context.Background(), "clinician-1", &models.WithdrawRequest{
		PatientID: "patient-1",
		Notes:     "patient asked by phone",
	})
	require.Nil(t, svcErr)
	assert.Equal(t, models.StatusWithdrawn, record.Status)
	records.AssertExpectations(t)
}

func TestHistoryReturnsFullTimeline(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	svc := newConsentServiceForTest(tokens, records, new(mocks.MockAuditStore))

	grantBindings(tokens, "clinician-1", "patient-1")
	timeline := []models.ConsentRecord{
		{RecordID: "RECORD-2", Status: models.StatusWithdrawn},
		{RecordID: "RECORD-1", Status: models.StatusGranted},
	}
	records.On("ListByPatient", mock.Anything, "patient-1").Return(timeline, nil)

	resp, svcErr := svc.History(context.Background(), "clinician-1", "patient-1")
	require.Nil(t, svcErr)
	assert.Equal(t, "patient-1", resp.PatientID)
	assert.Len(t, resp.Records, 2)
}

// The record-store binding path is the fallback when no token was ever
// issued, for patients whose consent was taken verbally.
func TestAuthorizeFallsBackToRecordBinding(t *testing.T) {
	tokens := new(mocks.MockTokenStore)
	records := new(mocks.MockRecordStore)
	svc := newConsentServiceForTest(tokens, records, new(mocks.MockAuditStore))

	tokens.On("HasBinding", mock.Anything, "clinician-1", "patient-1").Return(false, nil)
	records.On("HasBinding", mock.Anything, "clinician-1", "patient-1").Return(true, nil)
	records.On("ListByPatient", mock.Anything, "patient-1").Return([]models.ConsentRecord{}, nil)

	_, svcErr := svc.History(context.Background(), "clinician-1", "patient-1")
	assert.Nil(t, svcErr)
}

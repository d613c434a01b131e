package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinote/consent-service/internal/models"
)

var recordTestColumns = []string{
	"RECORD_ID", "PATIENT_ID", "PROFESSIONAL_ID", "CONSENT_METHOD", "STATUS",
	"TEXT_VERSION", "JURISDICTION", "CONSENT_DATE", "DECLINE_REASONS",
	"DECLINE_NOTES", "WITNESS_STATEMENT",
}

func TestRecordDAOCreateWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	mock.ExpectExec("INSERT INTO CONSENT_RECORD").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := dao.CreateWithTx(context.Background(), db, &models.ConsentRecord{
		RecordID:       "RECORD-1",
		PatientID:      "patient-1",
		ProfessionalID: "clinician-1",
		ConsentMethod:  models.MethodDigital,
		Status:         models.StatusGranted,
		TextVersion:    "de-DE-v3",
		Jurisdiction:   "DE",
		ConsentDate:    1000,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A record with an invalid variant shape never reaches the database.
func TestRecordDAOCreateWithTxRejectsInvalidShape(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	reasons := `["privacy_concerns"]`
	err := dao.CreateWithTx(context.Background(), db, &models.ConsentRecord{
		RecordID:       "RECORD-1",
		PatientID:      "patient-1",
		ProfessionalID: "clinician-1",
		ConsentMethod:  models.MethodDigital,
		Status:         models.StatusGranted,
		TextVersion:    "de-DE-v3",
		Jurisdiction:   "DE",
		ConsentDate:    1000,
		DeclineReasons: &reasons,
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDAOGetLatestByPatient(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	rows := sqlmock.NewRows(recordTestColumns).AddRow(
		"RECORD-2", "patient-1", "clinician-1", models.MethodVerbal, models.StatusWithdrawn,
		"de-DE-v3", "DE", int64(2000), nil, nil, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM CONSENT_RECORD (.+) LIMIT 1").
		WithArgs("patient-1").
		WillReturnRows(rows)

	record, err := dao.GetLatestByPatient(context.Background(), "patient-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "RECORD-2", record.RecordID)
	assert.Equal(t, models.StatusWithdrawn, record.Status)
}

func TestRecordDAOGetLatestByPatientNoHistory(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	mock.ExpectQuery("SELECT (.+) FROM CONSENT_RECORD").
		WithArgs("patient-9").
		WillReturnRows(sqlmock.NewRows(recordTestColumns))

	record, err := dao.GetLatestByPatient(context.Background(), "patient-9")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRecordDAOListByPatient(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	rows := sqlmock.NewRows(recordTestColumns).
		AddRow("RECORD-2", "patient-1", "clinician-1", models.MethodDigital, models.StatusWithdrawn,
			"de-DE-v3", "DE", int64(2000), nil, nil, nil).
		AddRow("RECORD-1", "patient-1", "clinician-1", models.MethodDigital, models.StatusGranted,
			"de-DE-v3", "DE", int64(1000), nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM CONSENT_RECORD").
		WithArgs("patient-1").
		WillReturnRows(rows)

	records, err := dao.ListByPatient(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "RECORD-2", records[0].RecordID)
}

func TestRecordDAOHasBinding(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewRecordDAO(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM CONSENT_RECORD").
		WithArgs("clinician-1", "patient-1").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))

	bound, err := dao.HasBinding(context.Background(), "clinician-1", "patient-1")
	require.NoError(t, err)
	assert.True(t, bound)
}

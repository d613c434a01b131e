package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinote/consent-service/internal/models"
)

func statusServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusClientValidConsent(t *testing.T) {
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/consent/status/patient-1", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "clinician-1", r.Header.Get("X-Clinician-ID"))

		grantedAt := int64(1700000000000)
		json.NewEncoder(w).Encode(models.ConsentStatusResponse{
			Success:         true,
			HasValidConsent: true,
			Status:          models.StatusGranted,
			GrantedAt:       &grantedAt,
		})
	})

	client := NewStatusClient(srv.URL, "key-1", "clinician-1", pollerLogger())
	granted, err := client.HasValidConsent(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestStatusClientNoConsentYet(t *testing.T) {
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ConsentStatusResponse{Success: true, HasValidConsent: false})
	})

	client := NewStatusClient(srv.URL, "key-1", "clinician-1", pollerLogger())
	granted, err := client.HasValidConsent(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestStatusClientForbiddenMapsToPermissionDenied(t *testing.T) {
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := NewStatusClient(srv.URL, "key-1", "clinician-1", pollerLogger())
	_, err := client.HasValidConsent(context.Background(), "patient-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestStatusClientServerError(t *testing.T) {
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewStatusClient(srv.URL, "key-1", "clinician-1", pollerLogger())
	_, err := client.HasValidConsent(context.Background(), "patient-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

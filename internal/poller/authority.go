package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medinote/consent-service/internal/models"
)

// StatusClient is an Authority backed by the server's trusted status-check
// endpoint. It runs on the clinician's device; the caller identity travels
// as a bearer credential plus clinician header, never inside the body.
type StatusClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	clinicianID string
	logger      *logrus.Logger
}

// NewStatusClient creates a status-check client for one clinician session.
func NewStatusClient(baseURL, apiKey, clinicianID string, logger *logrus.Logger) *StatusClient {
	return &StatusClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		clinicianID: clinicianID,
		logger:      logger,
	}
}

// HasValidConsent implements Authority against the HTTP endpoint. A 403 is
// mapped to ErrPermissionDenied so the poller treats it as "no data yet".
func (c *StatusClient) HasValidConsent(ctx context.Context, patientID string) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/consent/status/%s", c.baseURL, patientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Clinician-ID", c.clinicianID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return false, ErrPermissionDenied
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read status response: %w", err)
	}

	var status models.ConsentStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return false, fmt.Errorf("failed to decode status response: %w", err)
	}

	return status.Success && status.HasValidConsent, nil
}

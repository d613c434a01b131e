package models

// Decision scopes recorded when a token is consumed
const (
	ScopeOngoing  = "ongoing"
	ScopeDeclined = "declined"
)

// ConsentToken represents the CONSENT_TOKEN table. A token binds a
// patient/clinician pair to exactly one pending consent decision and is
// permanently inert once Used is set.
type ConsentToken struct {
	TokenID        string  `db:"TOKEN_ID" json:"token"`
	PatientID      string  `db:"PATIENT_ID" json:"patientId"`
	PatientName    string  `db:"PATIENT_NAME" json:"patientName"`
	PatientPhone   *string `db:"PATIENT_PHONE" json:"patientPhone,omitempty"`
	PatientEmail   *string `db:"PATIENT_EMAIL" json:"patientEmail,omitempty"`
	ClinicianID    string  `db:"CLINICIAN_ID" json:"clinicianId"`
	ClinicName     string  `db:"CLINIC_NAME" json:"clinicName"`
	CreatedTime    int64   `db:"CREATED_TIME" json:"createdAt"`
	ExpiryTime     int64   `db:"EXPIRY_TIME" json:"expiresAt"`
	Used           bool    `db:"USED" json:"used"`
	DecisionScope  *string `db:"DECISION_SCOPE" json:"decisionScope,omitempty"`
	DecisionTime   *int64  `db:"DECISION_TIME" json:"decisionTime,omitempty"`
	ExpiryNotified bool    `db:"EXPIRY_NOTIFIED" json:"-"`
}

// IsExpired reports whether the token validity window has passed at nowMillis.
func (t *ConsentToken) IsExpired(nowMillis int64) bool {
	return nowMillis > t.ExpiryTime
}

// TokenIssueRequest represents the request for issuing a consent token
type TokenIssueRequest struct {
	PatientID    string  `json:"patientId" binding:"required"`
	PatientName  string  `json:"patientName" binding:"required"`
	PatientPhone *string `json:"patientPhone,omitempty"`
	PatientEmail *string `json:"patientEmail,omitempty"`
}

// TokenIssueResponse represents the response after issuing a consent token
type TokenIssueResponse struct {
	Token     string `json:"token"`
	PatientID string `json:"patientId"`
	ExpiresAt int64  `json:"expiresAt"`
	SMSSent   bool   `json:"smsSent"`
}

// DecisionSubmitRequest is the body of the public decision-submission
// endpoint. The token is the only credential attached to the call.
type DecisionSubmitRequest struct {
	Token          string   `json:"token" binding:"required"`
	Decision       string   `json:"decision" binding:"required,oneof=granted declined"`
	DeclineReasons []string `json:"declineReasons,omitempty"`
	DeclineNotes   string   `json:"declineNotes,omitempty"`
}

// DecisionSubmitResponse represents the response for a decision submission
type DecisionSubmitResponse struct {
	Success bool `json:"success"`
}

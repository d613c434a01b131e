package models

// Audit event types. Every lifecycle transition of a token or record must
// produce at least one event; entries are never redacted after write.
const (
	EventTokenIssued      = "token_issued"
	EventSMSSent          = "sms_sent"
	EventTokenExpired     = "token_expired"
	EventConsentGranted   = "consent_granted"
	EventConsentDeclined  = "consent_declined"
	EventConsentWithdrawn = "consent_withdrawn"
	EventConsentVerified  = "consent_verified"
)

// AuditEvent represents the CONSENT_AUDIT table
type AuditEvent struct {
	AuditID    string  `db:"AUDIT_ID" json:"auditId"`
	EventType  string  `db:"EVENT_TYPE" json:"type"`
	ActionTime int64   `db:"ACTION_TIME" json:"timestamp"`
	ActorID    string  `db:"ACTOR_ID" json:"actorId"`
	PatientID  *string `db:"PATIENT_ID" json:"patientId,omitempty"`
	Metadata   *string `db:"METADATA" json:"metadata,omitempty"`
}

// AuditTrailResponse lists a patient's lifecycle events, oldest first
type AuditTrailResponse struct {
	PatientID string       `json:"patientId"`
	Events    []AuditEvent `json:"events"`
}

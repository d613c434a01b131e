package models

import "fmt"

// Consent methods
const (
	MethodVerbal  = "verbal"
	MethodDigital = "digital"
)

// Consent record statuses. Records are append-only; a new record is created
// for every transition and history is never overwritten.
const (
	StatusGranted      = "granted"
	StatusDeclined     = "declined"
	StatusSmsRequested = "sms_requested"
	StatusWithdrawn    = "withdrawn"
)

// Machine-readable decline reason codes. At least one is required on every
// declined decision.
const (
	ReasonPrivacyConcerns = "privacy_concerns"
	ReasonAIDistrust      = "ai_distrust"
	ReasonLanguageBarrier = "language_barrier"
	ReasonNeedsMoreTime   = "needs_more_time"
	ReasonOther           = "other"
)

var validDeclineReasons = map[string]bool{
	ReasonPrivacyConcerns: true,
	ReasonAIDistrust:      true,
	ReasonLanguageBarrier: true,
	ReasonNeedsMoreTime:   true,
	ReasonOther:           true,
}

// IsValidDeclineReason reports whether code is a known decline reason.
func IsValidDeclineReason(code string) bool {
	return validDeclineReasons[code]
}

// ValidateDeclineReasons checks that at least one known reason code is given.
func ValidateDeclineReasons(codes []string) error {
	if len(codes) == 0 {
		return fmt.Errorf("at least one decline reason code is required")
	}
	for _, code := range codes {
		if !IsValidDeclineReason(code) {
			return fmt.Errorf("unknown decline reason code: %s", code)
		}
	}
	return nil
}

// ConsentRecord represents the CONSENT_RECORD table
type ConsentRecord struct {
	RecordID         string  `db:"RECORD_ID" json:"recordId"`
	PatientID        string  `db:"PATIENT_ID" json:"patientId"`
	ProfessionalID   string  `db:"PROFESSIONAL_ID" json:"professionalId"`
	ConsentMethod    string  `db:"CONSENT_METHOD" json:"consentMethod"`
	Status           string  `db:"STATUS" json:"status"`
	TextVersion      string  `db:"TEXT_VERSION" json:"textVersion"`
	Jurisdiction     string  `db:"JURISDICTION" json:"jurisdiction"`
	ConsentDate      int64   `db:"CONSENT_DATE" json:"consentDate"`
	DeclineReasons   *string `db:"DECLINE_REASONS" json:"declineReasons,omitempty"`
	DeclineNotes     *string `db:"DECLINE_NOTES" json:"declineNotes,omitempty"`
	WitnessStatement *string `db:"WITNESS_STATEMENT" json:"witnessStatement,omitempty"`
}

// Validate enforces the variant shape of a record: which optional fields may
// be present is determined by the status and method, not sniffed at read time.
func (r *ConsentRecord) Validate() error {
	switch r.ConsentMethod {
	case MethodVerbal, MethodDigital:
	default:
		return fmt.Errorf("invalid consent method: %s", r.ConsentMethod)
	}

	switch r.Status {
	case StatusGranted, StatusSmsRequested, StatusWithdrawn:
		if r.DeclineReasons != nil {
			return fmt.Errorf("decline reasons are only valid on declined records")
		}
	case StatusDeclined:
		if r.DeclineReasons == nil || *r.DeclineReasons == "" {
			return fmt.Errorf("declined record requires decline reasons")
		}
	default:
		return fmt.Errorf("invalid consent status: %s", r.Status)
	}

	if r.WitnessStatement != nil && r.ConsentMethod != MethodVerbal {
		return fmt.Errorf("witness statement is only valid on verbal records")
	}
	return nil
}

// VerbalConsentRequest is the clinician-facing two-step verbal flow body.
// TextReadAloud is a precondition, not a consent decision.
type VerbalConsentRequest struct {
	PatientID        string   `json:"patientId" binding:"required"`
	TextReadAloud    bool     `json:"textReadAloud"`
	Decision         string   `json:"decision" binding:"required,oneof=granted declined"`
	DeclineReasons   []string `json:"declineReasons,omitempty"`
	DeclineNotes     string   `json:"declineNotes,omitempty"`
	WitnessStatement string   `json:"witnessStatement,omitempty"`
}

// WithdrawRequest is the clinician-facing withdrawal body
type WithdrawRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	Notes     string `json:"notes,omitempty"`
}

// ConsentStatusResponse is the trusted status-check endpoint response
type ConsentStatusResponse struct {
	Success         bool   `json:"success"`
	HasValidConsent bool   `json:"hasValidConsent"`
	Status          string `json:"status,omitempty"`
	ConsentMethod   string `json:"consentMethod,omitempty"`
	GrantedAt       *int64 `json:"grantedAt,omitempty"`
}

// ConsentHistoryResponse lists the full append-only timeline for a patient
type ConsentHistoryResponse struct {
	PatientID string          `json:"patientId"`
	Records   []ConsentRecord `json:"records"`
}

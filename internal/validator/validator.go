// Package validator is the single gate deciding whether recorded consent is
// valid for a jurisdiction. Every downstream feature gate must call IsValid;
// no other code path may independently decide consent is satisfied.
package validator

import (
	"github.com/medinote/consent-service/internal/consenttext"
	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/policy"
)

// IsValid reports whether record represents valid consent under the given
// jurisdiction. Pure and side-effect-free: false if the record is absent,
// not granted, references an unknown text version, or references a text
// whose language is not in the jurisdiction's allowed set.
func IsValid(record *models.ConsentRecord, jurisdiction policy.Jurisdiction) bool {
	if record == nil {
		return false
	}
	if record.Status != models.StatusGranted {
		return false
	}

	pol, ok := policy.Lookup(jurisdiction)
	if !ok {
		return false
	}

	text, ok := consenttext.Resolve(record.TextVersion)
	if !ok {
		return false
	}

	return pol.Allows(text.Language)
}

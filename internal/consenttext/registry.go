// Package consenttext is the versioned legal-text store. A text version is
// immutable once published; new wording always gets a new version identifier.
package consenttext

import "github.com/medinote/consent-service/internal/policy"

// ConsentText is one published legal-text variant
type ConsentText struct {
	Version  string
	Language string
	Content  string
}

var texts = map[string]ConsentText{
	"de-DE-v3": {
		Version:  "de-DE-v3",
		Language: "de-DE",
		Content:  "Ich willige ein, dass während der Behandlung eine KI-gestützte Audioaufzeichnung zur Erstellung der klinischen Dokumentation erfolgt. Die Einwilligung kann jederzeit widerrufen werden.",
	},
	"de-AT-v2": {
		Version:  "de-AT-v2",
		Language: "de-AT",
		Content:  "Ich stimme zu, dass zur Erstellung der Behandlungsdokumentation eine KI-gestützte Aufzeichnung angefertigt wird. Ein Widerruf ist jederzeit möglich.",
	},
	"en-GB-v2": {
		Version:  "en-GB-v2",
		Language: "en-GB",
		Content:  "I consent to AI-assisted audio recording during my consultation for the purpose of clinical documentation. I may withdraw this consent at any time.",
	},
	"de-CH-v1": {
		Version:  "de-CH-v1",
		Language: "de-CH",
		Content:  "Ich willige in eine KI-gestützte Aufzeichnung der Konsultation zur klinischen Dokumentation ein. Die Einwilligung ist jederzeit widerrufbar.",
	},
	"fr-CH-v1": {
		Version:  "fr-CH-v1",
		Language: "fr-CH",
		Content:  "Je consens à un enregistrement assisté par IA de la consultation à des fins de documentation clinique. Ce consentement peut être retiré à tout moment.",
	},
	"it-CH-v1": {
		Version:  "it-CH-v1",
		Language: "it-CH",
		Content:  "Acconsento alla registrazione assistita da IA della consultazione ai fini della documentazione clinica. Il consenso può essere revocato in qualsiasi momento.",
	},
}

// Current text version per jurisdiction, used when issuing new consent
// requests. Older versions stay resolvable for validating historic records.
var currentVersions = map[policy.Jurisdiction]string{
	policy.JurisdictionDE: "de-DE-v3",
	policy.JurisdictionAT: "de-AT-v2",
	policy.JurisdictionCH: "de-CH-v1",
}

// Resolve returns the text for a version identifier.
func Resolve(version string) (ConsentText, bool) {
	t, ok := texts[version]
	return t, ok
}

// CurrentVersion returns the text version newly issued consent requests
// should reference in the given jurisdiction.
func CurrentVersion(j policy.Jurisdiction) (string, bool) {
	v, ok := currentVersions[j]
	return v, ok
}

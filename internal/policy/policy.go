// Package policy holds the static jurisdiction/language configuration.
// Policies are looked up for every consent check and never mutated at runtime.
package policy

// Jurisdiction is an enumerated clinical/legal region
type Jurisdiction string

const (
	JurisdictionDE Jurisdiction = "DE"
	JurisdictionAT Jurisdiction = "AT"
	JurisdictionCH Jurisdiction = "CH"
)

// LanguagePolicy describes which consent-text language variants a
// jurisdiction accepts. Strict regions allow exactly one variant.
type LanguagePolicy struct {
	Jurisdiction     Jurisdiction
	AllowedLanguages []string
	Strict           bool
}

var policies = map[Jurisdiction]LanguagePolicy{
	JurisdictionDE: {
		Jurisdiction:     JurisdictionDE,
		AllowedLanguages: []string{"de-DE"},
		Strict:           true,
	},
	JurisdictionAT: {
		Jurisdiction:     JurisdictionAT,
		AllowedLanguages: []string{"de-AT", "en-GB"},
		Strict:           false,
	},
	JurisdictionCH: {
		Jurisdiction:     JurisdictionCH,
		AllowedLanguages: []string{"de-CH", "fr-CH", "it-CH"},
		Strict:           false,
	},
}

// Lookup returns the language policy for a jurisdiction.
func Lookup(j Jurisdiction) (LanguagePolicy, bool) {
	p, ok := policies[j]
	return p, ok
}

// IsKnown reports whether j is a configured jurisdiction.
func IsKnown(j Jurisdiction) bool {
	_, ok := policies[j]
	return ok
}

// Allows reports whether the given language variant is acceptable under
// this policy.
func (p LanguagePolicy) Allows(language string) bool {
	for _, l := range p.AllowedLanguages {
		if l == language {
			return true
		}
	}
	return false
}

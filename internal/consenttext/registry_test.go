package consenttext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medinote/consent-service/internal/policy"
)

func TestResolveKnownVersion(t *testing.T) {
	text, ok := Resolve("de-DE-v3")
	assert.True(t, ok)
	assert.Equal(t, "de-DE", text.Language)
	assert.NotEmpty(t, text.Content)
}

func TestResolveUnknownVersion(t *testing.T) {
	_, ok := Resolve("de-DE-v99")
	assert.False(t, ok)
}

func TestCurrentVersionResolvesForEveryJurisdiction(t *testing.T) {
	for _, j := range []policy.Jurisdiction{policy.JurisdictionDE, policy.JurisdictionAT, policy.JurisdictionCH} {
		version, ok := CurrentVersion(j)
		assert.True(t, ok, "jurisdiction %s should have a current text version", j)

		text, ok := Resolve(version)
		assert.True(t, ok, "current version %s should resolve", version)

		pol, ok := policy.Lookup(j)
		assert.True(t, ok)
		assert.True(t, pol.Allows(text.Language),
			"current text for %s must be in the jurisdiction's allowed set", j)
	}
}

package utils

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// GenerateRecordID generates a unique consent record ID
func GenerateRecordID() string {
	return "RECORD-" + uuid.New().String()
}

// GenerateAuditID generates a unique audit event ID
func GenerateAuditID() string {
	return "AUDIT-" + uuid.New().String()
}

// GenerateConsentToken generates an unguessable single-use token value.
// 32 bytes of crypto/rand entropy, base64url without padding.
func GenerateConsentToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

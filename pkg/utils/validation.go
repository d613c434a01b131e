package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var e164Regex = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// ValidatePatientID validates patient ID format
func ValidatePatientID(patientID string) error {
	if patientID == "" {
		return fmt.Errorf("patient ID cannot be empty")
	}
	if len(patientID) > 255 {
		return fmt.Errorf("patient ID too long (max 255 characters)")
	}
	return nil
}

// ValidateClinicianID validates clinician ID format
func ValidateClinicianID(clinicianID string) error {
	if clinicianID == "" {
		return fmt.Errorf("clinician ID cannot be empty")
	}
	if len(clinicianID) > 255 {
		return fmt.Errorf("clinician ID too long (max 255 characters)")
	}
	return nil
}

// ValidatePhone validates an E.164-ish phone number
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number cannot be empty")
	}
	if !e164Regex.MatchString(strings.ReplaceAll(phone, " ", "")) {
		return fmt.Errorf("invalid phone number format")
	}
	return nil
}

// ValidateRequired validates that a field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// SanitizeString removes dangerous characters from user input
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

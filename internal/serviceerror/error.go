// Package serviceerror defines the typed error taxonomy shared by services
// and handlers. Token-layer errors carry the exact public codes the
// patient-facing decision endpoint must return, so the correct user action
// (ask for a new link vs. already handled) is always distinguishable.
package serviceerror

// ServiceErrorType classifies an error as caller-caused or server-caused
type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

// ServiceError is the typed error returned by every service operation
type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             "CLS-5000",
		Error:            "INTERNAL_ERROR",
		ErrorDescription: "An unexpected error occurred",
	}

	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             "CLS-5001",
		Error:            "INTERNAL_ERROR",
		ErrorDescription: "A database error occurred",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4001",
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	// Token layer

	TokenNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4040",
		Error:            "INVALID_TOKEN",
		ErrorDescription: "This consent link is not valid. Please ask your clinic for a new link.",
	}

	TokenExpiredError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4100",
		Error:            "TOKEN_EXPIRED",
		ErrorDescription: "This consent link has expired. Please ask your clinic for a new link.",
	}

	TokenAlreadyUsedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4090",
		Error:            "CONSENT_ALREADY_RECORDED",
		ErrorDescription: "A consent decision has already been recorded for this link.",
	}

	// Status-check / transport layer

	PermissionDeniedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4030",
		Error:            "permission_denied",
		ErrorDescription: "The caller is not authorized for this patient",
	}

	RecordNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CLS-4041",
		Error:            "record_not_found",
		ErrorDescription: "No consent record found",
	}
)

// CustomServiceError derives a copy of baseError carrying a specific
// description.
func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medinote/consent-service/internal/middleware"
	"github.com/medinote/consent-service/internal/models"
	"github.com/medinote/consent-service/internal/service"
	"github.com/medinote/consent-service/internal/serviceerror"
)

// ConsentHandler handles consent-related HTTP requests
type ConsentHandler struct {
	tokenService   *service.TokenService
	consentService *service.ConsentService
}

// NewConsentHandler creates a new consent handler instance
func NewConsentHandler(tokenService *service.TokenService, consentService *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{
		tokenService:   tokenService,
		consentService: consentService,
	}
}

// IssueToken handles POST /consent/tokens
func (h *ConsentHandler) IssueToken(c *gin.Context) {
	var req models.TokenIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	resp, svcErr := h.tokenService.Issue(c.Request.Context(), &req, middleware.ClinicianID(c))
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SubmitDecision handles POST /consent/decisions. This is the only write
// path reachable from the unauthenticated patient-facing surface: the token
// itself is the credential, and the record write happens server-side.
func (h *ConsentHandler) SubmitDecision(c *gin.Context) {
	var req models.DecisionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	if _, svcErr := h.tokenService.Consume(c.Request.Context(), &req); svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, models.DecisionSubmitResponse{Success: true})
}

// CheckStatus handles GET /consent/status/:patientId
func (h *ConsentHandler) CheckStatus(c *gin.Context) {
	patientID := c.Param("patientId")

	resp, svcErr := h.consentService.CheckStatus(c.Request.Context(), middleware.ClinicianID(c), patientID)
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordVerbalConsent handles POST /consent/verbal
func (h *ConsentHandler) RecordVerbalConsent(c *gin.Context) {
	var req models.VerbalConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	record, svcErr := h.consentService.RecordVerbalConsent(c.Request.Context(), middleware.ClinicianID(c), &req)
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Withdraw handles POST /consent/withdraw
func (h *ConsentHandler) Withdraw(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	record, svcErr := h.consentService.Withdraw(c.Request.Context(), middleware.ClinicianID(c), &req)
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// History handles GET /consent/history/:patientId
func (h *ConsentHandler) History(c *gin.Context) {
	patientID := c.Param("patientId")

	resp, svcErr := h.consentService.History(c.Request.Context(), middleware.ClinicianID(c), patientID)
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AuditTrail handles GET /consent/audit/:patientId
func (h *ConsentHandler) AuditTrail(c *gin.Context) {
	patientID := c.Param("patientId")

	resp, svcErr := h.consentService.AuditTrail(c.Request.Context(), middleware.ClinicianID(c), patientID)
	if svcErr != nil {
		sendServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func sendBadRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": description,
	})
}

// sendServiceError maps the service-error taxonomy onto HTTP statuses. Each
// token-layer error keeps its distinct public code so the patient surface
// can show the correct action (new link vs. already handled).
func sendServiceError(c *gin.Context, svcErr *serviceerror.ServiceError) {
	status := http.StatusInternalServerError
	if svcErr.Type == serviceerror.ClientErrorType {
		switch svcErr.Code {
		case serviceerror.TokenNotFoundError.Code, serviceerror.RecordNotFoundError.Code:
			status = http.StatusNotFound
		case serviceerror.TokenExpiredError.Code:
			status = http.StatusGone
		case serviceerror.TokenAlreadyUsedError.Code:
			status = http.StatusConflict
		case serviceerror.PermissionDeniedError.Code:
			status = http.StatusForbidden
		default:
			status = http.StatusBadRequest
		}
	}

	c.JSON(status, gin.H{
		"error":             svcErr.Error,
		"error_description": svcErr.ErrorDescription,
	})
}

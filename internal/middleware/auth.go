package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextClinicianID is the gin context key carrying the authenticated
	// clinician identity.
	ContextClinicianID = "clinicianID"

	headerClinicianID = "X-Clinician-ID"
)

// RequireClinician authenticates the trusted clinician-facing surface: a
// bearer credential plus the clinician identity header. The caller identity
// always arrives out-of-band, never in a request body, so a patient session
// can never check status on behalf of a clinician.
func RequireClinician(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "A bearer credential is required",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "Invalid credential",
			})
			return
		}

		clinicianID := c.GetHeader(headerClinicianID)
		if clinicianID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "A clinician identity is required",
			})
			return
		}

		c.Set(ContextClinicianID, clinicianID)
		c.Next()
	}
}

// ClinicianID returns the authenticated clinician identity from the context.
func ClinicianID(c *gin.Context) string {
	return c.GetString(ContextClinicianID)
}

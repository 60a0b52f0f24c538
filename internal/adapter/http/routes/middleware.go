package routes

import (
	"net/http"
	"strings"

	"realtypay/internal/adapter/http/handlers"
	"realtypay/pkg"

	"github.com/gin-gonic/gin"
)

// IdentityRequired establishes the authenticated caller from the identity
// headers set by the upstream auth layer. Authentication itself (sessions,
// token issuance) lives outside this service; the payment core only needs a
// trusted user id and email.
func IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		email := strings.TrimSpace(c.GetHeader("X-User-Email"))

		if userID == "" {
			appErr := pkg.NewDomainErrorSimple("AUTH_REQUIRED", "Authentication required", http.StatusUnauthorized)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
			return
		}

		c.Set(handlers.ContextUserIDKey, userID)
		c.Set(handlers.ContextUserEmailKey, email)
		c.Next()
	}
}

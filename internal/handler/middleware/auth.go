package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "sunrun/credithub/pkg/jwt"
	"sunrun/credithub/pkg/response"
)

const ContextKeyAdminSubject = "admin_subject"

// JWTAuth accepts "Authorization: Bearer <access token>" and stores the
// trimmed subject on the context.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "missing or malformed bearer token")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(strings.TrimSpace(token))
		if err != nil || claims.TokenType != jwtpkg.TokenTypeAccess {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		subject := strings.TrimSpace(claims.Subject)
		if subject == "" {
			response.Unauthorized(c, "token has no subject")
			c.Abort()
			return
		}

		c.Set(ContextKeyAdminSubject, subject)
		c.Next()
	}
}

// AdminSubject returns the subject stored by JWTAuth.
func AdminSubject(c *gin.Context) (string, bool) {
	subject := c.GetString(ContextKeyAdminSubject)
	return subject, subject != ""
}

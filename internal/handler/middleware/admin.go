package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"sunrun/credithub/pkg/response"
)

// AdminAuth admits only subjects listed in admin.user_ids. Subjects are
// opaque strings; an empty list admits nobody. Must run after JWTAuth.
func AdminAuth(adminSubjects []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminSubjects))
	for _, s := range adminSubjects {
		if s = strings.TrimSpace(s); s != "" {
			allowed[s] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		subject, ok := AdminSubject(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}
		if _, isAdmin := allowed[subject]; !isAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"snaplink-be/internal/jwt"
	"snaplink-be/internal/models"
)

// principalKey is the gin context key the auth middlewares store the
// authenticated principal under.
const principalKey = "principal"

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthMiddleware requires a valid bearer token and stores the principal
// in the request context.
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header with Bearer token required",
			})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(principalKey, &models.Principal{ID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a principal when a valid token is
// present and lets the request through anonymously otherwise. Invalid
// tokens are treated as anonymous rather than rejected, so public
// endpoints stay public.
func OptionalAuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := jwtService.ValidateToken(token); err == nil {
				c.Set(principalKey, &models.Principal{ID: claims.UserID, Role: claims.Role})
			}
		}
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the principal carries the admin
// role. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentPrincipal(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal, or nil for
// anonymous requests.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*models.Principal); ok {
			return p
		}
	}
	return nil
}

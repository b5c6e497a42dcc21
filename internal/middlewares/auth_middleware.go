package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdministrador = "Administrador"
	RoleResponsable   = "Responsable"
	RoleProductor     = "Productor"
)

// Context keys set by AuthMiddleware.
const (
	CtxEmail        = "email"
	CtxRole         = "role"
	CtxDependencies = "dependencies"
	CtxToken        = "token"
)

func bearerToken(c *gin.Context) string {
	if tok, err := c.Cookie("access_token"); err == nil && tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// AuthMiddleware verifies the session token issued by the identity provider
// and exposes email, role and dependencies to the handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := bearerToken(c)
		if accessToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing access token"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		email, _ := claims["email"].(string)
		email = strings.TrimSpace(email)
		if email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user email"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)

		dependencies := []string{}
		if arr, ok := claims["dependencies"].([]interface{}); ok {
			for _, v := range arr {
				if s, ok := v.(string); ok && s != "" {
					dependencies = append(dependencies, s)
				}
			}
		}

		c.Set(CtxEmail, strings.ToLower(email))
		c.Set(CtxRole, role)
		c.Set(CtxDependencies, dependencies)
		c.Set(CtxToken, accessToken)
		c.Next()
	}
}

// RequireRole answers 403 unless AuthMiddleware stored one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		for _, r := range roles {
			if strings.EqualFold(r, role) {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
	"github.com/noah-isme/oficios-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

var errMalformedHeader = appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")

// JWT requires a valid bearer token. The token's user becomes the acting user
// of every lifecycle operation on the route.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *models.JWTClaims
			if claims, err = validator.ValidateToken(token); err == nil {
				c.Set(ContextUserKey, claims)
				c.Next()
				return
			}
		}
		c.Header("WWW-Authenticate", `Bearer realm="oficios-api"`)
		response.Error(c, err)
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedHeader
	}
	return token, nil
}

// Claims returns the verified claims of the current request, if any.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

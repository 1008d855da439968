package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenVerifier interface {
	Verify(token string) (*models.JWTClaims, error)
}

// JWT requires a bearer token on the route. A missing or malformed header is
// rejected as 403, a token that fails verification as 401.
func JWT(verifier tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Not authenticated"))
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

// Authorizer turns a session token into an identity allowed on class routes.
type Authorizer interface {
	Authorize(token string, class service.RouteClass) (models.Identity, error)
}

// Auth rejects requests whose bearer token does not authorize class.
func Auth(authorizer Authorizer, class service.RouteClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authorizer.Authorize(BearerToken(c.GetHeader("Authorization")), class)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// AbortWithError stops the chain with the JSON body of err.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), appErr.Body())
}

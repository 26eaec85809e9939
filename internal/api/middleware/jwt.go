package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/bookbot/internal/utils"
)

const ContextUsername = "username"

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type TokenAuthenticator interface {
	Authenticate(token string) (username string, err error)
}

// BearerToken splits an Authorization header of the form "Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func JWTAuth(authn TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "Invalid token header",
			})
			return
		}

		username, err := authn.Authenticate(raw)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ContextUsername, username)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(status, apiError{Code: ae.Code, Message: ae.Message})
		return
	}
	c.AbortWithStatusJSON(status, apiError{Code: utils.CodeInternal, Message: http.StatusText(status)})
}

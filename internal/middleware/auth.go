package middleware

import (
	"strings"

	"lifeplan-backend/internal/auth"
	"lifeplan-backend/internal/errors"

	"github.com/gin-gonic/gin"
)

// AuthMiddleWare verifies the bearer token and puts the owner identity on the
// context. The engine trusts this identity; authorization policy lives with
// the identity provider, not here.
func AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		parsedToken, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ownerID, err := auth.OwnerFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", ownerID)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}

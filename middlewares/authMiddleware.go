package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/gin-gonic/gin"
)

const msgUnauthorized = "Token de acesso ausente ou inválido."

// RequireAuth rejects requests without a valid bearer token and stores the token owner in the
// request context.
func RequireAuth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.Request.Header.Get("Authorization"))

		bearer := "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"erro": msgUnauthorized})
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		claims, err := tokens.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"erro": msgUnauthorized})
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), claims.Username)
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package middlewares

import (
	"carpool/src/config"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DispatchSecretMiddleware guards the server-to-server accept endpoint. The
// dispatcher authenticates with a shared secret header, not a user identity.
func DispatchSecretMiddleware(ctx *gin.Context) {
	secret := config.DispatchAcceptSecret()
	header := ctx.GetHeader("X-DISPATCH-SECRET")
	if secret == "" || subtle.ConstantTimeCompare([]byte(header), []byte(secret)) != 1 {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid dispatch secret"})
		return
	}
}

package middlewares

import "github.com/gin-gonic/gin"

// abortJSON writes the shared error envelope. handlers.RespondError cannot be
// used here without an import cycle.
func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

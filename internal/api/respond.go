package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"goldvault/internal/apperr" // Typed business errors
)

// respondError maps a service error to an HTTP response. Typed business
// errors surface their message; anything else is logged and hidden behind a
// generic 500.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		// Log the unexpected error with request context
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Request path
			"error": err.Error(),  // Error message
		}).Error("Unhandled service error")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	body := gin.H{"error": err.Error(), "kind": apperr.KindOf(err)}
	// Quantity errors carry the nearest valid amounts for the client UI
	if e, ok := err.(*apperr.Error); ok && e.SuggestedLower != nil && e.SuggestedUpper != nil {
		body["suggested_lower"] = e.SuggestedLower.String()
		body["suggested_upper"] = e.SuggestedUpper.String()
	}
	c.JSON(status, body)
}

// currentUserID extracts the authenticated user ID set by the JWT middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	id, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/middlewares"
	"github.com/dembasy/jokko/internal/services"
)

// sessionFromContext resolves the caller's session, rebuilding it from
// the token identity when the server restarted since login. Writes the
// error response itself and returns nil on failure.
func sessionFromContext(c *gin.Context, users *services.UserService, sessions *services.SessionManager) *services.Session {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}

	if s := sessions.Get(userID); s != nil {
		return s
	}

	user, err := users.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return nil
	}
	s, err := sessions.GetOrCreate(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return nil
	}
	return s
}

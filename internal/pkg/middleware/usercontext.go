package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitmenuai/fitmenu/internal/pkg/session"
	"github.com/fitmenuai/fitmenu/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes user session handling and eliminates code duplication.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: treat as anonymous user
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			IsLoggedIn: false,
		})
		return c.Next()
	}

	// Get user ID from session
	userID := sess.Get(usercontext.KeyUserID)
	uid, ok := userID.(uint)
	if !ok || uid == 0 {
		// Anonymous user - no session data
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			IsLoggedIn: false,
		})
		return c.Next()
	}

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     uid,
		Username:   session.GetSessionValue(c, usercontext.KeyUsername),
		Email:      session.GetSessionValue(c, usercontext.KeyUserEmail),
		IsLoggedIn: true,
	})

	return c.Next()
}

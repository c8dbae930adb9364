package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitmenuai/fitmenu/app/repository"
	"github.com/fitmenuai/fitmenu/internal/pkg/billing"
	"github.com/fitmenuai/fitmenu/internal/pkg/session"
	"github.com/fitmenuai/fitmenu/internal/pkg/usercontext"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and opens a session.
// POST /api/v1/auth/login
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid JSON body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		if billing.IsNotFound(err) {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
		}
		fiberlog.Error(fmt.Sprintf("login lookup failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("session open failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserEmail, user.Email)
	if err := sess.Save(); err != nil {
		fiberlog.Error(fmt.Sprintf("session save failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		// Not worth failing the login over.
		fiberlog.Warn(fmt.Sprintf("could not record last login for user %d: %v", user.ID, err))
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// HandleLogout destroys the current session.
// POST /api/v1/auth/logout
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			fiberlog.Warn(fmt.Sprintf("session destroy failed: %v", err))
		}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

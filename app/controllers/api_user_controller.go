package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitmenuai/fitmenu/app/models"
	"github.com/fitmenuai/fitmenu/app/repository"
	"github.com/fitmenuai/fitmenu/internal/pkg/billing"
	"github.com/fitmenuai/fitmenu/internal/pkg/usercontext"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleCreateUser registers a new account.
// POST /api/v1/users
func HandleCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid JSON body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Name, a valid email and a password of at least 6 characters are required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := repo.GetByEmail(req.Email); err == nil && existing != nil {
		return jsonError(c, fiber.StatusBadRequest, "email_in_use", "An account with this email already exists")
	} else if err != nil && !billing.IsNotFound(err) {
		fiberlog.Error(fmt.Sprintf("user lookup failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create user")
	}

	if err := repo.Create(user); err != nil {
		fiberlog.Error(fmt.Sprintf("user create failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

// HandleGetCurrentUser returns the authenticated user's account.
// GET /api/v1/users/me
func HandleGetCurrentUser(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if billing.IsNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		fiberlog.Error(fmt.Sprintf("user load failed: %v", err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"id":            account.ID,
			"name":          account.Name,
			"email":         account.Email,
			"last_login_at": formatTimePtr(account.LastLoginAt),
			"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

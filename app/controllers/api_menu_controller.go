package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/fitmenuai/fitmenu/internal/pkg/menugen"
	"github.com/fitmenuai/fitmenu/internal/pkg/usercontext"
)

var (
	menuGenerator menugen.Generator
	menuValidate  = validator.New()
)

// InitializeMenuController injects the generator; tests pass a fake.
func InitializeMenuController(gen menugen.Generator) {
	menuGenerator = gen
}

func getMenuGenerator() (menugen.Generator, error) {
	if menuGenerator == nil {
		client, err := menugen.NewClientFromEnv()
		if err != nil {
			return nil, err
		}
		menuGenerator = client
	}
	return menuGenerator, nil
}

type generateMenuRequest struct {
	Ingredients string `json:"ingredients" validate:"required"`
	Name        string `json:"name"`
}

// HandleGenerateMenu generates a menu from an ingredient list. Access is
// gated: the caller must hold an active subscription or have donated. Results
// are returned directly and never persisted.
// POST /api/v1/menus
func HandleGenerateMenu(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	var req generateMenuRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid JSON body")
	}
	if err := menuValidate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "ingredients is required")
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}
	status, err := svc.CurrentStatus(c.Context(), userCtx.UserID, time.Now())
	if err != nil {
		fiberlog.Error(fmt.Sprintf("entitlement check failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to verify subscription")
	}
	if !status.Active && !status.Donor {
		return jsonError(c, fiber.StatusForbidden, "subscription_required", "An active subscription or donation is required")
	}

	gen, err := getMenuGenerator()
	if err != nil {
		if errors.Is(err, menugen.ErrNotConfigured) {
			return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Menu generation is not configured")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate menu")
	}

	menu, err := gen.GenerateMenu(c.Context(), req.Ingredients)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("menu generation failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "generation_failed", "Failed to generate menu")
	}

	name := req.Name
	if name == "" {
		name = menu.MenuName
	}

	now := time.Now().UTC().Format(time.RFC3339)
	menuID := uuid.NewString()

	recipes := make([]fiber.Map, 0, len(menu.Recipes))
	for _, r := range menu.Recipes {
		recipes = append(recipes, fiber.Map{
			"id":           uuid.NewString(),
			"menuId":       menuID,
			"name":         r.Name,
			"ingredients":  r.Ingredients,
			"instructions": r.Instructions,
			"prepTime":     r.PrepTime,
			"cookTime":     r.CookTime,
			"servings":     r.Servings,
			"createdAt":    now,
			"updatedAt":    now,
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"id":          menuID,
			"name":        name,
			"ingredients": req.Ingredients,
			"protein":     menu.Nutrition.Protein,
			"carbs":       menu.Nutrition.Carbs,
			"fat":         menu.Nutrition.Fat,
			"calories":    menu.Nutrition.Calories,
			"createdAt":   now,
			"updatedAt":   now,
			"recipes":     recipes,
		},
	})
}

// HandleListMenus returns the stored menus. Nothing is persisted, so the
// list is always empty.
// GET /api/v1/menus
func HandleListMenus(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
	return c.JSON(fiber.Map{"data": []fiber.Map{}})
}

// HandleGetMenu looks up a stored menu by id; always 404 since menus are
// never persisted.
// GET /api/v1/menus/:id
func HandleGetMenu(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
	return jsonError(c, fiber.StatusNotFound, "not_found", "Menu not found")
}

// HandleDeleteMenu mirrors HandleGetMenu.
// DELETE /api/v1/menus/:id
func HandleDeleteMenu(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
	return jsonError(c, fiber.StatusNotFound, "not_found", "Menu not found")
}

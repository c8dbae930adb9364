package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fitmenuai/fitmenu/app/controllers"
	"github.com/fitmenuai/fitmenu/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public routes
	v1.Post("/users", controllers.HandleCreateUser)
	v1.Post("/auth/login", controllers.HandleLogin)
	// Stripe calls this; authentication happens via signature verification.
	v1.Post("/subscriptions/webhook", controllers.HandleStripeWebhook)

	// Session-protected routes
	v1.Post("/auth/logout", middleware.RequireAPISessionAuth, controllers.HandleLogout)
	v1.Get("/auth/me", middleware.RequireAPISessionAuth, controllers.HandleGetCurrentUser)
	v1.Get("/users/me", middleware.RequireAPISessionAuth, controllers.HandleGetCurrentUser)

	v1.Post("/subscriptions/checkout", middleware.RequireAPISessionAuth, controllers.HandleCreateCheckout)
	v1.Post("/subscriptions/donate", middleware.RequireAPISessionAuth, controllers.HandleCreateDonation)
	v1.Post("/subscriptions/billing", middleware.RequireAPISessionAuth, controllers.HandleBillingPortal)
	v1.Get("/subscriptions/current", middleware.RequireAPISessionAuth, controllers.HandleCurrentSubscription)

	v1.Post("/menus", middleware.RequireAPISessionAuth, controllers.HandleGenerateMenu)
	v1.Get("/menus", middleware.RequireAPISessionAuth, controllers.HandleListMenus)
	v1.Get("/menus/:id", middleware.RequireAPISessionAuth, controllers.HandleGetMenu)
	v1.Delete("/menus/:id", middleware.RequireAPISessionAuth, controllers.HandleDeleteMenu)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

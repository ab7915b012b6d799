package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/config"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	moodHandler *handlers.MoodHandler,
	followHandler *handlers.FollowHandler,
	userHandler *handlers.UserHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.SessionRequired()}
	api.Post("/auth/logout", append(protected, authHandler.Logout)...)
	api.Delete("/auth/account", append(protected, authHandler.DeleteAccount)...)

	moods := api.Group("/moods", protected...)
	moods.Get("/", moodHandler.List)
	moods.Post("/", moodHandler.Create)
	moods.Patch("/:id", moodHandler.Update)
	moods.Delete("/:id", moodHandler.Delete)

	follows := api.Group("/follows", protected...)
	follows.Post("/requests", followHandler.Request)
	follows.Get("/requests", followHandler.Requests)
	follows.Post("/requests/:username/accept", followHandler.Accept)
	follows.Post("/requests/:username/deny", followHandler.Deny)
	follows.Get("/followers", followHandler.Followers)
	follows.Delete("/followers/:username", followHandler.RemoveFollower)
	follows.Get("/following", followHandler.Followings)
	follows.Delete("/following/:username", followHandler.Unfollow)

	usersGroup := api.Group("/users", protected...)
	usersGroup.Get("/", userHandler.Search)
	usersGroup.Get("/me", userHandler.Me)
	usersGroup.Patch("/me", userHandler.Rename)
	usersGroup.Get("/:username", userHandler.Get)
}

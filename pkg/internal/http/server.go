package http

import (
	"git.solsynth.dev/hypernet/forms/pkg/internal/config"
	"git.solsynth.dev/hypernet/forms/pkg/internal/http/admin"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type App struct {
	app  *fiber.App
	bind string
}

// NewServer serves the documentation website, prometheus metrics and the
// operator API.
func NewServer(cfg config.HTTPConfig, store *services.Store, closer *services.Closer) *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ServerHeader:          "Forms",
		AppName:               "Forms",
		ProxyHeader:           fiber.HeaderXForwardedFor,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
	})

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: log.Logger,
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/docs", fiber.StatusFound)
	})
	app.Static("/docs", cfg.Docs, fiber.Static{Index: "index.html"})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin.MapControllers(app, "/api/admin", cfg.AdminToken, store, closer)

	return &App{app: app, bind: cfg.Bind}
}

func (v *App) Listen() {
	if err := v.app.Listen(v.bind); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}

func (v *App) Shutdown() error {
	return v.app.Shutdown()
}

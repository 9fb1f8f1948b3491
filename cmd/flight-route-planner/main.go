package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/i474232898/flight-route-planner/internal/airport"
	httpapi "github.com/i474232898/flight-route-planner/internal/api/http"
	"github.com/i474232898/flight-route-planner/internal/config"
	"github.com/i474232898/flight-route-planner/internal/flightplan"
	"github.com/i474232898/flight-route-planner/internal/fuel"
	"github.com/i474232898/flight-route-planner/internal/route"
	"github.com/i474232898/flight-route-planner/internal/scheduler"
	"github.com/i474232898/flight-route-planner/internal/store"
	"github.com/i474232898/flight-route-planner/internal/upstream"
	"github.com/i474232898/flight-route-planner/internal/weather"
	"github.com/i474232898/flight-route-planner/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Airport table, read-only for the life of the process.
	var airports *airport.Directory
	if cfg.AirportsFile != "" {
		airports, err = airport.LoadFile(cfg.AirportsFile)
	} else {
		airports, err = airport.LoadEmbedded()
	}
	if err != nil {
		log.Fatalf("failed to load airports: %v", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	if cfg.FlightPlanAPIKey == "" {
		log.Printf("INFO: FLIGHTPLAN_API_KEY not set; using anonymous flight plan quota")
	}
	plans := flightplan.NewClient(httpClient, cfg.FlightPlanBaseURL, cfg.FlightPlanAPIKey, upstream.RetryPolicy{
		MaxRetries: cfg.RateLimitMaxRetries,
		BaseDelay:  cfg.RateLimitBaseDelay,
		MaxDelay:   cfg.RateLimitMaxDelay,
	})

	// Weather cache; a zero TTL disables it.
	var cache weather.Store
	if cfg.WeatherCacheTTL > 0 {
		cache = store.NewMemoryStore(cfg.WeatherCacheMax, cfg.WeatherCacheTTL)
	}
	weatherSvc := weather.NewService(
		providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey),
		cache,
		cfg.WeatherConcurrency,
	)

	fuelClient := fuel.NewClient(httpClient, cfg.FuelBaseURL)
	assessor := route.NewService(plans, weatherSvc, fuelClient)

	sched := scheduler.New(weatherSvc, cfg.CachePruneInterval)
	if cache != nil {
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "flight-route-planner",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.UpstreamTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Server is running.")
	})

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "flight-route-planner",
			"airports": airports.Len(),
		})
	})

	// API routes, also under /api for existing frontends.
	deps := httpapi.Deps{
		Plans:           plans,
		Fuel:            fuelClient,
		Assessor:        assessor,
		Airports:        airports,
		DefaultAircraft: cfg.DefaultAircraft,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}
	httpapi.RegisterRoutes(app, deps)
	httpapi.RegisterRoutes(app.Group("/api"), deps)

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

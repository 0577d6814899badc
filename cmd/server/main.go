package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/database"
	"github.com/papershelf/papershelf/internal/handlers"
	"github.com/papershelf/papershelf/internal/middleware"
	"github.com/papershelf/papershelf/internal/scholar"
	"github.com/papershelf/papershelf/internal/types"
	"github.com/papershelf/papershelf/internal/utils"

	_ "github.com/papershelf/papershelf/docs/api" // Swagger docs
)

// @title PaperShelf API
// @version 1.0.0
// @description Research paper library service over a relational and a document store
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/papershelf/papershelf

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to the relational store
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to relational store: %v", err)
	}
	defer database.Close(db)

	// Connect to the document store (separate pool)
	docDB, err := database.ConnectDocuments(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer database.Close(docDB)

	// Run auto-migrations on both pools
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run relational migrations: %v", err)
	}
	if err := database.AutoMigrateDocuments(docDB); err != nil {
		log.Fatalf("Failed to run document store migrations: %v", err)
	}

	// Upstream scholarly API client
	scholarClient := scholar.NewClient(
		scholar.WithBaseURL(cfg.ScholarAPIURL),
		scholar.WithAPIKey(cfg.ScholarAPIKey),
		scholar.WithRateLimit(cfg.ScholarRPS),
		scholar.WithTimeout(time.Duration(cfg.ScholarTimeout)*time.Second),
	)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("papershelf")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Create handlers
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db, DocDB: docDB}
	userHandler := &handlers.UserHandler{DB: db, DocDB: docDB}
	libraryHandler := &handlers.LibraryHandler{DB: db, DocDB: docDB}
	libraryPaperHandler := &handlers.LibraryPaperHandler{DB: db, DocDB: docDB}
	paperHandler := &handlers.PaperHandler{Scholar: scholarClient}

	app.Get("/health", healthHandler.Check)

	// API routes under /api; everything below requires a valid session
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	api.Use(middleware.AuthUser(cfg))

	// User routes
	api.Post("/user/register", userHandler.Register)
	api.Get("/user/profile", userHandler.GetProfile)
	api.Patch("/user/profile", userHandler.UpdateProfile)
	api.Get("/user/papers", userHandler.ListAllPapers)

	// Library routes
	api.Post("/libraries", libraryHandler.Create)
	api.Get("/libraries", libraryHandler.List)
	api.Get("/libraries/:library_id", libraryHandler.Get)
	api.Patch("/libraries/:library_id", libraryHandler.Update)
	api.Delete("/libraries/:library_id", libraryHandler.Delete)
	api.Post("/libraries/:library_id/collaborators", libraryHandler.AddCollaborator)
	api.Delete("/libraries/:library_id/collaborators/:user_id", libraryHandler.RemoveCollaborator)

	// Library paper routes
	api.Post("/libraries/:library_id/papers", libraryPaperHandler.Save)
	api.Get("/libraries/:library_id/papers", libraryPaperHandler.List)
	api.Delete("/libraries/:library_id/papers/:paper_id", libraryPaperHandler.Remove)
	api.Patch("/libraries/:library_id/papers/:paper_id/status", libraryPaperHandler.UpdateStatus)
	api.Patch("/libraries/:library_id/papers/:paper_id/note", libraryPaperHandler.UpdateNote)

	// Paper discovery routes (upstream proxy)
	api.Get("/papers/search", paperHandler.Search)
	api.Get("/papers/:paper_id/citations", paperHandler.Citations)
	api.Get("/papers/:paper_id/references", paperHandler.References)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// The Authorizer client is initialized lazily by the auth middleware,
	// since it needs the request host for the redirect URL.
	log.Printf("Authorizer will be initialized on first authenticated request")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Tagged domain errors carry their own transport status
	var domainErr *types.DomainError
	if errors.As(err, &domainErr) {
		return utils.DomainErrorResponse(c, domainErr)
	}

	code := fiber.StatusInternalServerError
	message := err.Error()

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      "unknown",
	})
}

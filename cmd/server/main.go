package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"givto/internal/api"
	"givto/internal/config"
	"givto/internal/credentials"
	"givto/internal/database"
	"givto/internal/handlers"
	"givto/internal/repository"
	"givto/internal/security"
	"givto/internal/service"
)

func main() {
	// A missing .env file is fine; the environment may be set directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}

	ctx := context.Background()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	store := repository.NewStore(db)
	codes, closeCodes, err := repository.OpenLoginCodeStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to open login code store: %v", err)
	}
	defer closeCodes()

	log.Printf("Login codes stored in %s", cfg.LoginCodeStore)

	mailer, err := service.NewMailer(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	dispatcher := service.NewMailDispatcher(mailer, service.MessageBuilder{
		AppName:    cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	}, cfg.MailAttempts, cfg.MailTimeout, cfg.Debug)

	// Initialize services
	authService := service.NewAuthService(store, codes, credentials.NewCodeHasher(cfg.CodeSecret()), dispatcher, service.AuthOptions{
		CodeTTL: cfg.LoginCodeTTL,
		Debug:   cfg.Debug,
	})
	groupService := service.NewGroupService(store, service.NewGuard(store), dispatcher, service.GroupOptions{
		SlugMaxAttempts: cfg.SlugMaxAttempts,
		Debug:           cfg.Debug,
	})

	signer, err := security.NewSessionSigner(cfg.SessionSecret, cfg.SessionDuration, nil)
	if err != nil {
		log.Fatalf("Failed to initialize session signer: %v", err)
	}

	apiServer, err := api.NewServer(api.Dependencies{
		Store:  store,
		Auth:   authService,
		Groups: groupService,
		Signer: signer,
	}, api.Options{
		OperationTimeout: cfg.OperationTimeout,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize API: %v", err)
	}

	rateLimiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer rateLimiter.Stop()

	middleware := handlers.NewMiddleware(signer, rateLimiter, cfg.Debug)
	handler := handlers.NewRouter(handlers.NewGraphHandler(apiServer), middleware)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OperationTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Printf("Pending emails were not delivered: %v", err)
	}
}

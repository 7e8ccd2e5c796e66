package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chameleon-backend/internal/cleanup"
	"chameleon-backend/internal/config"
	"chameleon-backend/internal/crypto"
	"chameleon-backend/internal/github_client"
	"chameleon-backend/internal/llm_client"
	"chameleon-backend/internal/repository"
	"chameleon-backend/internal/server"
	"chameleon-backend/internal/service"
	"chameleon-backend/internal/synthesis_client"

	"github.com/sirupsen/logrus"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()
	log := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Load the prompt cipher key pair once for the whole run
	var cipher *crypto.PromptCipher
	if cfg.Cipher.PrivateKeyFile != "" {
		cipher, err = crypto.LoadPromptCipher(cfg.Cipher.PrivateKeyFile)
		if err != nil {
			logger.Fatal("Failed to load prompt cipher key", zap.Error(err))
		}
		logger.Info("Prompt cipher initialized from key file", zap.String("file", cfg.Cipher.PrivateKeyFile))
	} else {
		cipher, err = crypto.GeneratePromptCipher()
		if err != nil {
			logger.Fatal("Failed to generate prompt cipher key", zap.Error(err))
		}
		logger.Warn("No cipher key file configured - generated an ephemeral key pair; previously issued public keys will not decrypt")
	}

	// Ensure the upload storage root exists
	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		logger.Fatal("Failed to create storage root", zap.Error(err))
	}

	// External service clients
	githubClient := github_client.NewClient(
		cfg.GitHub.ClientID,
		cfg.GitHub.ClientSecret,
		cfg.GitHub.RedirectURI,
		cfg.GitHub.AuthorizeURL,
		cfg.GitHub.TokenURL,
		cfg.GitHub.UserInfoURL,
		logger,
	)
	llmClient := llm_client.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Model)
	synthClient := synthesis_client.NewClient(cfg.Synthesis.URL, cfg.Synthesis.APIKey, cfg.Synthesis.Model)

	// Repositories and services
	uploadRepo := repository.NewUploadRepository(db, log)
	sessions := service.NewSessions([]byte(cfg.Session.SigningKey), cfg.SessionTTL(), logger)
	authService := service.NewAuthService(githubClient, sessions, logger)
	moderation := service.NewModeration(llmClient, logger)
	uploadsService := service.NewUploads(cfg.Storage.Root, cfg.Storage.AllowedExtensions, uploadRepo, logger)
	imageService := service.NewImageService(moderation, synthClient, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the retention sweep in a goroutine
	cleaner := cleanup.NewCleaner(uploadRepo, cfg.Retention(), time.Hour, logger)
	go cleaner.Run(ctx)

	// Initialize and run the server
	srv := server.NewServer(cfg, cipher, sessions, authService, moderation, uploadsService, imageService, logger, log)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}

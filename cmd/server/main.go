package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/crewfinder/internal/config"
	"github.com/example/crewfinder/internal/server"
	"github.com/example/crewfinder/pkg/clients/geocodeclient"
	"github.com/example/crewfinder/pkg/clients/gmailclient"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/postgres"
	"github.com/example/crewfinder/pkg/utils/logging"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	env := os.Getenv("CREWFINDER_ENV")
	if env == "" {
		env = "prod"
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.InitLogger(env)
	if err != nil {
		log.Fatalf("could not initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	database, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		logger.Fatal("Failed to load OAuth client config", zap.Error(err))
	}
	mailer, err := gmailclient.NewClient(ctx, oauthCfg, cfg.GmailSender)
	if err != nil {
		logger.Fatal("Failed to create gmail client", zap.Error(err))
	}

	geocodeOpts := []geocodeclient.Option{}
	if cfg.Geocode.BaseURL != "" {
		geocodeOpts = append(geocodeOpts, geocodeclient.WithBaseURL(cfg.Geocode.BaseURL))
	}
	if cfg.Geocode.RequestIntervalMS > 0 {
		geocodeOpts = append(geocodeOpts, geocodeclient.WithRequestInterval(cfg.Geocode.RequestInterval()))
	}
	geocoder := geocodeclient.NewClient(geocodeOpts...)

	handler := &server.Handler{
		Database: database,
		Pipeline: search.NewPipeline(geocoder, logger, cfg.Geocode.Concurrency),
		Mailer:   mailer,
		Logger:   logger,
		Sessions: server.NewSessionRegistry(),
	}

	router := server.NewRouter(handler)

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8000"
	}

	logger.Info("Server starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("Could not run server", zap.Error(err))
	}
}

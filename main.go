package main

import (
	"context"
	"log"

	"scifig/internal/config"
	"scifig/internal/container"
	"scifig/internal/logging"

	"github.com/joho/godotenv"
)

// main starts the HTTP API with configuration from the environment; see
// cmd/cli for the command-line interface
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Log)

	c, err := container.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create application container")
	}
	if err := c.Connect(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer c.Shutdown()

	if err := c.WebAPI().Start(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}

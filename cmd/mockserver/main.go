package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/mock"
)

func main() {
	config := mock.DefaultConfig()
	if path := getEnv("MOCK_CONFIG", ""); path != "" {
		loaded, err := mock.LoadConfig(path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config = loaded
	}

	config.Port = getEnvInt("PORT", config.Port)

	// Database
	config.Database.Driver = getEnv("DB_DRIVER", config.Database.Driver)
	config.Database.DSN = getEnv("DATABASE_URL", config.Database.DSN)

	// Seed data
	config.SeedFile = getEnv("SEED_FILE", config.SeedFile)
	config.WatchSeed = getEnv("WATCH_SEED", strconv.FormatBool(config.WatchSeed)) == "true"

	config.Agent.StepDelay = getEnvDuration("AGENT_STEP_DELAY", config.Agent.StepDelay)
	config.Agent.IndexingDelay = getEnvDuration("AGENT_INDEXING_DELAY", config.Agent.IndexingDelay)

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetOutput(os.Stderr)
	logger.SetLevelFromString(getEnv("LOG_LEVEL", "info"))

	server, err := mock.NewServer(config)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Mock scanning backend running on port %d", config.Port)
	log.Printf("📦 Database: %s", config.Database.Driver)
	if config.SeedFile != "" {
		log.Printf("🌱 Seed: %s (watch=%v)", config.SeedFile, config.WatchSeed)
	}

	if err := server.Start(); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

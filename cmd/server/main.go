package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/helpmate-ai/cobalt/internal/config"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s (%v), using defaults", cfgPath, err)
		cfg = config.Default()
	}

	lg, err := logger.New(cfg.Server.LogMode, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	srv, err := server.NewServer(cfg, lg)
	if err != nil {
		lg.Fatal("failed to start server", "error", err)
	}
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	lg.Info("starting server", "port", port)
	if err := r.Run(":" + port); err != nil {
		lg.Fatal("server exited", "error", err)
	}
}

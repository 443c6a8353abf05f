package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/mihaigidu/FitGenius/internal/dbmigrate"
	"github.com/mihaigidu/FitGenius/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: go run ./cmd/migrate [up|status|down|version]")
	}

	command := os.Args[1]
	switch command {
	case "up", "status", "down", "version":
	default:
		log.Fatal().Str("command", command).Msg("unsupported command (allowed: up, status, down, version)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel).With().Str("component", "migrate").Logger()

	target, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("no database to migrate")
	}

	target.Log(logger, command)
	if err := dbmigrate.Run(context.Background(), command, target.URL, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Str("command", command).Msg("completed successfully")
}

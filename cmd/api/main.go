package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/mihaigidu/FitGenius/internal/dbmigrate"
	"github.com/mihaigidu/FitGenius/internal/httpserver"
	"github.com/mihaigidu/FitGenius/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.Setup(cfg.Env, cfg.LogLevel)

	printStartupBanner(logger, cfg)

	if err := validateProductionConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("startup migrations")
		}

		target.Log(logger, "up")
		if err := dbmigrate.Run(ctx, "up", target.URL, logger); err != nil {
			logger.Fatal().Err(err).Msg("startup migrations failed")
		}
		logger.Info().Msg("startup migrations: completed")
	}

	server, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server init failed")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
		os.Exit(1)
	}
	logger.Info().Msg("bye")
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets only ever show up as "set" / "not set".
func printStartupBanner(logger zerolog.Logger, cfg *config.Config) {
	logger.Info().
		Str("env", cfg.Env).
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("========== FitGenius API ==========")

	logger.Info().
		Str("runtime_url", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled)).
		Str("pooled", setOrNot(cfg.DatabaseURLPooled)).
		Str("direct", setOrNot(cfg.DatabaseURLDirect)).
		Bool("migrations_on_startup", cfg.RunMigrationsOnStartup).
		Msg("---- database ----")

	logger.Info().
		Str("auth_mode", cfg.AuthMode).
		Bool("auth_required", cfg.AuthRequired).
		Str("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")).
		Int("jwt_ttl_minutes", cfg.JWTTTLMinutes).
		Msg("---- auth ----")

	blobEvent := logger.Info().
		Str("blob_mode", cfg.Blob.Mode).
		Str("exports_mode", displayExportsMode(cfg)).
		Int("exports_max_per_user", cfg.ExportsMaxPerUser).
		Int("exports_ttl_hours", cfg.ExportsDefaultTTLHours)
	if cfg.Blob.EffectiveExportsMode() != config.BlobModeLocal {
		blobEvent = blobEvent.Str("s3", cfg.Blob.S3.DiagnosticsSummary())
	}
	blobEvent.Msg("---- blob ----")

	aiEvent := logger.Info().
		Str("ai_mode", cfg.AI.Mode).
		Int("timeout_seconds", cfg.AI.TimeoutSeconds).
		Int("max_concurrent", cfg.AI.MaxConcurrent).
		Str("plan_format", cfg.PlanFormat).
		Str("plan_time_zone", nonEmptyOrDash(cfg.PlanTimeZone))
	switch cfg.AI.Mode {
	case config.AIModeOpenAI:
		aiEvent = aiEvent.Str("base_url", cfg.AI.BaseURL).Str("model", cfg.AI.Model).Str("api_key", setOrNot(cfg.AI.APIKey))
	case config.AIModeGemini:
		aiEvent = aiEvent.Str("model", cfg.AI.GeminiModel).Str("api_key", setOrNot(cfg.AI.GeminiAPIKey))
	}
	aiEvent.Msg("---- ai ----")
}

// validateProductionConfig performs the checks that only matter outside local.
func validateProductionConfig(cfg *config.Config) error {
	isProd := cfg.Env == "production" || cfg.Env == "staging"

	if cfg.Blob.EffectiveExportsMode() == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			return fmt.Errorf("EXPORTS_MODE resolves to 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if isProd && cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		return fmt.Errorf("JWT_SECRET must not be 'change_me' in %s with AUTH_REQUIRED=1", cfg.Env)
	}

	if isProd && cfg.DatabaseURL == "" {
		return fmt.Errorf("no DATABASE_URL configured in %s", cfg.Env)
	}

	if isProd && cfg.AI.Mode == config.AIModeMock {
		log.Warn().Str("env", cfg.Env).Msg("AI_MODE=mock outside local: every plan is the canned fixture")
	}
	return nil
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

func displayExportsMode(cfg *config.Config) string {
	if cfg.Blob.ExportsModeSet {
		return cfg.Blob.ExportsMode
	}
	return fmt.Sprintf("(inherits BLOB_MODE=%s)", cfg.Blob.Mode)
}

package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	appcfg "github.com/mihaigidu/FitGenius/internal/config"
)

// NewStore builds a blob store for mode local|s3|auto. Local mode returns a nil Store:
// workbooks are then kept in the exports table itself.
func NewStore(ctx context.Context, mode string, s3cfg appcfg.S3Config, logger zerolog.Logger) (Store, string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}
	logger = logger.With().Str("component", "blob").Logger()

	switch mode {
	case appcfg.BlobModeLocal:
		logger.Info().Str("mode", appcfg.BlobModeLocal).Msg("blob mode forced")
		return nil, appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !s3cfg.IsConfigured() {
			level, code, msg := s3cfg.Diagnostics()
			logger.WithLevel(parseLevel(level)).Str("code", code).Msg(msg)
			logger.Info().Str("s3", s3cfg.DiagnosticsSummary()).Msg("s3 settings")
			logger.Info().Str("mode", appcfg.BlobModeLocal).Msg("blob mode auto, S3 not configured")
			return nil, appcfg.BlobModeLocal, nil
		}

		logger.Info().Str("code", "s3_ready").Str("s3", s3cfg.DiagnosticsSummary()).Msg("s3 settings")
		store, err := NewS3Store(ctx, s3cfg.Endpoint, s3cfg.Region, s3cfg.Bucket, s3cfg.AccessKeyID, s3cfg.SecretAccessKey)
		if err != nil {
			logger.Warn().Err(err).Msg("s3 init failed, falling back to local")
			return nil, appcfg.BlobModeLocal, nil
		}

		logger.Info().Str("mode", appcfg.BlobModeS3).Msg("blob mode auto, S3 configured")
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !s3cfg.IsConfigured() {
			missing := s3cfg.MissingRequired()
			logger.Error().Str("code", "s3_config_incomplete").Strs("missing", missing).Msg("s3 settings")
			return nil, "", fmt.Errorf("blob mode s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		logger.Info().Str("code", "s3_ready").Str("s3", s3cfg.DiagnosticsSummary()).Msg("s3 settings")
		store, err := NewS3Store(ctx, s3cfg.Endpoint, s3cfg.Region, s3cfg.Bucket, s3cfg.AccessKeyID, s3cfg.SecretAccessKey)
		if err != nil {
			return nil, "", fmt.Errorf("blob mode s3 init failed: %w", err)
		}

		logger.Info().Str("mode", appcfg.BlobModeS3).Msg("blob mode forced")
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

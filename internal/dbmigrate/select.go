package dbmigrate

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mihaigidu/FitGenius/internal/config"
)

const (
	envDirect = "DATABASE_URL_DIRECT"
	envURL    = "DATABASE_URL"
	envPooled = "DATABASE_URL_POOLED"
)

var ErrNoDatabaseURL = errors.New("no database URL configured")

// Target is the database a migration run goes to and the variable it came from.
type Target struct {
	URL     string
	Source  string
	Warning string
}

// Log reports the chosen source without the URL, which may carry credentials.
func (t Target) Log(logger zerolog.Logger, command string) {
	if t.Warning != "" {
		logger.Warn().Str("using", t.Source).Msg(t.Warning)
	}
	logger.Info().Str("command", command).Str("using", t.Source).Msg("migrate")
}

// SelectDatabaseURL picks DATABASE_URL_DIRECT, then DATABASE_URL, then DATABASE_URL_POOLED.
// Startup migrations (RUN_MIGRATIONS_ON_STARTUP) pass requireDirect and accept only the direct URL,
// since the profiles, plans and exports DDL must not run through a transaction pooler.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (Target, error) {
	if requireDirect {
		if cfg.DatabaseURLDirect == "" {
			return Target{}, fmt.Errorf("%w: %s is required when RUN_MIGRATIONS_ON_STARTUP is set", ErrNoDatabaseURL, envDirect)
		}
		return Target{URL: cfg.DatabaseURLDirect, Source: envDirect}, nil
	}

	switch {
	case cfg.DatabaseURLDirect != "":
		return Target{URL: cfg.DatabaseURLDirect, Source: envDirect}, nil
	case cfg.DatabaseURLRaw != "":
		return Target{URL: cfg.DatabaseURLRaw, Source: envURL}, nil
	case cfg.DatabaseURLPooled != "":
		return Target{
			URL:     cfg.DatabaseURLPooled,
			Source:  envPooled,
			Warning: fmt.Sprintf("%s goes through the pooler; goose needs a session connection, set %s", envPooled, envDirect),
		}, nil
	}
	return Target{}, fmt.Errorf("%w: set %s or %s", ErrNoDatabaseURL, envDirect, envURL)
}

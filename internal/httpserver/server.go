package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/blob"
	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/mihaigidu/FitGenius/internal/exports"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/plans"
	"github.com/mihaigidu/FitGenius/internal/profiles"
	"github.com/mihaigidu/FitGenius/internal/storage"
	"github.com/mihaigidu/FitGenius/internal/storage/memory"
	"github.com/mihaigidu/FitGenius/internal/storage/postgres"
)

// Server is the FitGenius HTTP API.
type Server struct {
	config         *config.Config
	logger         zerolog.Logger
	mux            *http.ServeMux
	storage        storage.Storage
	provider       ai.Provider
	plans          *plans.Controller
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New wires storage, the completion provider and every route.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.initStorage(ctx)

	provider, err := ai.NewProvider(ctx, cfg.AI, logger)
	if err != nil {
		s.storage.Close()
		return nil, fmt.Errorf("ai provider: %w", err)
	}
	s.provider = provider

	if err := s.routes(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// initStorage picks Postgres when a database URL is configured, memory otherwise.
func (s *Server) initStorage(ctx context.Context) {
	if s.config.DatabaseURL == "" {
		s.logger.Info().Str("storage", "memory").Msg("using in-memory storage")
		s.storage = memory.New()
		return
	}

	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		s.logger.Error().Err(err).Msg("postgres connection failed, falling back to in-memory storage")
		s.storage = memory.New()
		return
	}
	s.logger.Info().Str("storage", "postgres").Msg("postgres connected")
	s.storage = pgStorage
}

func (s *Server) routes(ctx context.Context) error {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Auth API (public)
	authService := auth.NewService(s.config, s.storage, s.logger)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	s.mux.HandleFunc("POST /v1/auth/register", authHandler.HandleRegister)
	s.mux.HandleFunc("POST /v1/auth/login", authHandler.HandleLogin)

	// Profile API
	format := plan.ParseFormat(s.config.PlanFormat)
	profileService := profiles.NewService(s.storage, format, s.logger)
	profileHandler := profiles.NewHandler(profileService)

	s.mux.HandleFunc("GET /v1/profile", profileHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/profile", profileHandler.HandlePut)
	s.mux.HandleFunc("PATCH /v1/profile", profileHandler.HandlePatch)
	s.mux.HandleFunc("GET /v1/profile/prompt", profileHandler.HandlePrompt)
	s.mux.HandleFunc("GET /v1/profile/options", profileHandler.HandleOptions)

	// Plans API
	controller, err := plans.NewController(s.provider, profileService, s.getPlansStorage(), plans.Options{
		Format:        format,
		Timeout:       time.Duration(s.config.AI.TimeoutSeconds) * time.Second,
		MaxConcurrent: s.config.AI.MaxConcurrent,
		CacheSize:     s.config.PlanCacheSize,
		Location:      s.planLocation(),
	}, s.logger)
	if err != nil {
		return fmt.Errorf("plans controller: %w", err)
	}
	s.plans = controller
	plansHandler := plans.NewHandler(controller)

	s.mux.HandleFunc("POST /v1/plans/generate", plansHandler.HandleGenerate)
	s.mux.HandleFunc("GET /v1/plans/current", plansHandler.HandleCurrent)
	s.mux.HandleFunc("DELETE /v1/plans/current", plansHandler.HandleClear)
	s.mux.HandleFunc("GET /v1/plans/today", plansHandler.HandleToday)
	s.mux.HandleFunc("GET /v1/plans/export.xlsx", plansHandler.HandleWorkbook)

	// Stored exports API
	blobStore, mode, err := blob.NewStore(ctx, s.config.Blob.EffectiveExportsMode(), s.config.Blob.S3, s.logger)
	if err != nil {
		return fmt.Errorf("exports blob store: %w", err)
	}
	s.logger.Info().Str("mode", mode).Msg("exports blob store ready")

	exportsService := exports.NewService(
		s.getExportsStorage(),
		controller,
		blobStore,
		s.config.ExportsMaxPerUser,
		time.Duration(s.config.ExportsDefaultTTLHours)*time.Hour,
		time.Duration(s.config.Blob.S3.PresignTTLSeconds)*time.Second,
		s.config.Blob.S3.PublicBaseURL,
		s.config.Blob.S3.PreferPublicURL,
		s.logger,
	)
	exportsHandler := exports.NewHandlers(exportsService)

	s.mux.HandleFunc("POST /v1/exports", exportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/exports", exportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/exports/{id}/download", exportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/exports/{id}", exportsHandler.HandleDelete)

	return nil
}

func (s *Server) planLocation() *time.Location {
	if s.config.PlanTimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.config.PlanTimeZone)
	if err != nil {
		s.logger.Warn().Err(err).Str("tz", s.config.PlanTimeZone).Msg("unknown PLAN_TIMEZONE, using UTC")
		return time.UTC
	}
	return loc
}

// getPlansStorage returns plans storage based on storage type.
func (s *Server) getPlansStorage() storage.PlansStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetPlansStorage()
	case *postgres.PostgresStorage:
		return st.GetPlansStorage()
	default:
		panic("unsupported storage type")
	}
}

// getExportsStorage returns exports storage based on storage type.
func (s *Server) getExportsStorage() storage.ExportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetExportsStorage()
	case *postgres.PostgresStorage:
		return st.GetExportsStorage()
	default:
		panic("unsupported storage type")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"provider": s.provider.Name(),
	})
}

// Handler builds the middleware chain (outermost first):
// access log → CORS → rate limit → auth → router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.config.AuthMode != config.AuthModeNone {
		handler = s.authMiddleware.Handler(handler)
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return requestLogger(s.logger, handler)
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msgf("server listening on http://localhost%s", addr)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, lets running generations finish within ctx
// and releases storage.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.plans != nil {
		if err := s.plans.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("waiting for generations: %w", err))
		}
	}
	if err := s.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases storage and the completion client.
func (s *Server) Close() error {
	var errs []error
	if c, ok := s.provider.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}

func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	handler := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
	handler = hlog.RemoteAddrHandler("ip")(handler)
	handler = hlog.RequestIDHandler("request_id", "X-Request-Id")(handler)
	return hlog.NewHandler(logger)(handler)
}

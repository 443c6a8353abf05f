package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/mihaigidu/FitGenius/internal/config"
)

type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
	}
}

// Handler picks RequireAuth or OptionalAuth from the configuration.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m.config.AuthRequired {
		return m.RequireAuth(next)
	}
	return m.OptionalAuth(next)
}

// RequireAuth rejects requests without a valid Bearer token, except on public paths.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticateHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// OptionalAuth validates a Bearer token only when one is sent.
// Requests without a token act as DefaultOwnerID.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if strings.TrimSpace(header) == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticateHeader(header)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		hlog.FromRequest(r).Debug().Str("sub", userID).Msg("auth token accepted")
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticateHeader(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return m.service.VerifyJWT(strings.TrimSpace(token))
}

func isPublicPath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/v1/auth/")
}

package httpserver

import (
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/mihaigidu/FitGenius/internal/config"
)

// CORSMiddleware allows the configured browser origins. Preflights are answered with 204.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	origins := make([]string, 0, len(cfg.CORSAllowedOrigins))
	for _, o := range cfg.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           600,
	})
	return c.Handler(next)
}
